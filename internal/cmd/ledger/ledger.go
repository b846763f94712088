// Package ledger parses ledger command flags and composes transport entrypoints.
package ledger

import (
	"context"
	"flag"
	"fmt"

	"github.com/avendale/damagelog/internal/ledger"
	entrypoint "github.com/avendale/damagelog/internal/platform/cmd"
	server "github.com/avendale/damagelog/internal/services/ledger/app"
)

// Config holds ledger command configuration.
type Config struct {
	HTTPAddr     string `env:"DAMAGELOG_HTTP_ADDR"    envDefault:":8080"`
	SystemID     string `env:"DAMAGELOG_SYSTEM"       envDefault:"dnd5e"`
	Locale       string `env:"DAMAGELOG_LOCALE"       envDefault:"en-US"`
	DatabasePath string `env:"DAMAGELOG_DB_PATH"      envDefault:"ledger.db"`
	SystemsFile  string `env:"DAMAGELOG_SYSTEMS_FILE"`

	AllowPlayerView          bool   `env:"DAMAGELOG_ALLOW_PLAYER_VIEW"            envDefault:"false"`
	MinPlayerPermission      string `env:"DAMAGELOG_MIN_PLAYER_PERMISSION"        envDefault:"owner"`
	AllowPlayerUndo          bool   `env:"DAMAGELOG_ALLOW_PLAYER_UNDO"            envDefault:"false"`
	ShowLimitedInfoToPlayers bool   `env:"DAMAGELOG_SHOW_LIMITED_INFO"            envDefault:"false"`
	HideHealingInLimitedInfo bool   `env:"DAMAGELOG_HIDE_HEALING_IN_LIMITED_INFO" envDefault:"false"`
	ClampToMin               bool   `env:"DAMAGELOG_CLAMP_TO_MIN"                 envDefault:"true"`
	ClampToMax               bool   `env:"DAMAGELOG_CLAMP_TO_MAX"                 envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "ledger HTTP listen address")
	fs.StringVar(&cfg.SystemID, "system", cfg.SystemID, "game system identifier")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for flavor text and resource names")
	fs.StringVar(&cfg.DatabasePath, "db-path", cfg.DatabasePath, "SQLite database path")
	fs.StringVar(&cfg.SystemsFile, "systems-file", cfg.SystemsFile, "YAML file of custom system tables")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Settings converts the flat toggle fields into the domain settings value.
func (c Config) Settings() ledger.Settings {
	return ledger.Settings{
		AllowPlayerView:          c.AllowPlayerView,
		MinPlayerPermission:      ledger.ParsePermissionLevel(c.MinPlayerPermission),
		AllowPlayerUndo:          c.AllowPlayerUndo,
		ShowLimitedInfoToPlayers: c.ShowLimitedInfoToPlayers,
		HideHealingInLimitedInfo: c.HideHealingInLimitedInfo,
		ClampToMin:               c.ClampToMin,
		ClampToMax:               c.ClampToMax,
	}
}

// Run builds the ledger app and starts realtime transport behavior.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceLedger, func(context.Context) error {
		if err := server.Run(ctx, server.Config{
			HTTPAddr:     cfg.HTTPAddr,
			SystemID:     cfg.SystemID,
			Locale:       cfg.Locale,
			DatabasePath: cfg.DatabasePath,
			SystemsFile:  cfg.SystemsFile,
			Settings:     cfg.Settings(),
		}); err != nil {
			return fmt.Errorf("serve ledger: %w", err)
		}
		return nil
	})
}
