package ledger

import (
	"flag"
	"testing"

	domainledger "github.com/avendale/damagelog/internal/ledger"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.SystemID != "dnd5e" {
		t.Fatalf("expected default system, got %q", cfg.SystemID)
	}
	if cfg.DatabasePath != "ledger.db" {
		t.Fatalf("expected default db path, got %q", cfg.DatabasePath)
	}
	if !cfg.ClampToMin || !cfg.ClampToMax {
		t.Fatalf("expected clamping on by default, got %+v", cfg)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("DAMAGELOG_HTTP_ADDR", ":9090")
	t.Setenv("DAMAGELOG_SYSTEM", "swade")
	t.Setenv("DAMAGELOG_ALLOW_PLAYER_VIEW", "true")
	t.Setenv("DAMAGELOG_MIN_PLAYER_PERMISSION", "observer")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.HTTPAddr != ":9090" || cfg.SystemID != "swade" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	settings := cfg.Settings()
	if !settings.AllowPlayerView {
		t.Fatal("expected player view enabled")
	}
	if settings.MinPlayerPermission != domainledger.PermissionObserver {
		t.Fatalf("expected observer threshold, got %v", settings.MinPlayerPermission)
	}
}

func TestParseConfigFlagsWinOverEnv(t *testing.T) {
	t.Setenv("DAMAGELOG_HTTP_ADDR", ":9090")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", ":7070", "-system", "pf2e"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("expected flag override, got %q", cfg.HTTPAddr)
	}
	if cfg.SystemID != "pf2e" {
		t.Fatalf("expected flag override, got %q", cfg.SystemID)
	}
}
