package ledger

import (
	"reflect"
	"testing"
)

// fakePerms maps viewer->actor->level, defaulting to none.
type fakePerms struct {
	levels map[string]map[string]PermissionLevel
}

func (p *fakePerms) PermissionLevel(viewerID, actorID string) PermissionLevel {
	if p == nil || p.levels == nil {
		return PermissionNone
	}
	return p.levels[viewerID][actorID]
}

func ownerPerms(viewerID, actorID string) *fakePerms {
	return &fakePerms{levels: map[string]map[string]PermissionLevel{
		viewerID: {actorID: PermissionOwner},
	}}
}

func TestCanViewActorDamage(t *testing.T) {
	gm := Viewer{ID: "gm", Name: "GM", GM: true}
	owner := Viewer{ID: "alice", Name: "Alice"}
	stranger := Viewer{ID: "bob", Name: "Bob"}
	perms := ownerPerms("alice", "actor-1")

	tests := []struct {
		name     string
		settings Settings
		viewer   Viewer
		want     bool
	}{
		{"gm always views", DefaultSettings(), gm, true},
		{"player view disabled", DefaultSettings(), owner, false},
		{"owner with view enabled", Settings{AllowPlayerView: true, MinPlayerPermission: PermissionOwner}, owner, true},
		{"stranger with view enabled", Settings{AllowPlayerView: true, MinPlayerPermission: PermissionOwner}, stranger, false},
		{"lower threshold admits stranger", Settings{AllowPlayerView: true, MinPlayerPermission: PermissionNone}, stranger, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewActorDamage(tt.settings, perms, tt.viewer, "actor-1"); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func actorEntry(actorID string) *Entry {
	return &Entry{ID: "entry-1", Speaker: Speaker{ActorID: actorID}}
}

func TestDetailForViewerWithoutPermission(t *testing.T) {
	// Scenario: no permission on the actor, limited info disabled.
	settings := Settings{AllowPlayerView: true, MinPlayerPermission: PermissionOwner}
	viewer := Viewer{ID: "bob", Name: "Bob"}
	perms := ownerPerms("alice", "actor-1")

	detail := DetailFor(settings, perms, viewer, actorEntry("actor-1"), false)
	if detail != DetailNone {
		t.Fatalf("expected no detail, got %v", detail)
	}

	classes := StateClasses("damage", false, detail)
	want := []string{"damage", "not-permitted"}
	if !reflect.DeepEqual(classes, want) {
		t.Fatalf("expected classes %v, got %v", want, classes)
	}
}

func TestDetailForPublicOverride(t *testing.T) {
	// An entry forced public shows full numbers to everyone it reaches,
	// permission or not; forcing it private restores the normal rules.
	perms := ownerPerms("alice", "actor-1")
	bob := Viewer{ID: "bob", Name: "Bob"}

	truth := true
	entry := actorEntry("actor-1")
	entry.Public = &truth
	if got := DetailFor(DefaultSettings(), perms, bob, entry, false); got != DetailFull {
		t.Fatalf("expected full detail on public entry, got %v", got)
	}

	falsity := false
	entry.Public = &falsity
	if got := DetailFor(DefaultSettings(), perms, bob, entry, false); got != DetailNone {
		t.Fatalf("expected no detail on private entry, got %v", got)
	}
}

func TestDetailForLimitedInfo(t *testing.T) {
	perms := ownerPerms("alice", "actor-1")
	bob := Viewer{ID: "bob", Name: "Bob"}
	entry := actorEntry("actor-1")

	settings := Settings{
		AllowPlayerView:          true,
		MinPlayerPermission:      PermissionOwner,
		ShowLimitedInfoToPlayers: true,
	}
	if got := DetailFor(settings, perms, bob, entry, false); got != DetailLimited {
		t.Fatalf("expected limited detail, got %v", got)
	}

	settings.HideHealingInLimitedInfo = true
	if got := DetailFor(settings, perms, bob, entry, true); got != DetailNone {
		t.Fatalf("expected healing hidden from limited view, got %v", got)
	}
	if got := DetailFor(settings, perms, bob, entry, false); got != DetailLimited {
		t.Fatalf("expected damage still limited, got %v", got)
	}
}

func TestDefaultRecipients(t *testing.T) {
	perms := ownerPerms("alice", "actor-1")
	// The roster covers every viewer named in the actor's permission map,
	// present or not.
	viewerIDs := []string{"alice", "bob"}

	t.Run("restricted when limited view is off", func(t *testing.T) {
		settings := Settings{AllowPlayerView: true, MinPlayerPermission: PermissionOwner}
		got := DefaultRecipients(settings, perms, viewerIDs, "actor-1", false)
		want := []string{"alice"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("unrestricted when everyone gets at least limited", func(t *testing.T) {
		settings := Settings{
			AllowPlayerView:          true,
			MinPlayerPermission:      PermissionOwner,
			ShowLimitedInfoToPlayers: true,
		}
		if got := DefaultRecipients(settings, perms, viewerIDs, "actor-1", false); got != nil {
			t.Fatalf("expected nil (unrestricted), got %v", got)
		}
	})

	t.Run("healing restricted when hidden from limited view", func(t *testing.T) {
		settings := Settings{
			AllowPlayerView:          true,
			MinPlayerPermission:      PermissionOwner,
			ShowLimitedInfoToPlayers: true,
			HideHealingInLimitedInfo: true,
		}
		got := DefaultRecipients(settings, perms, viewerIDs, "actor-1", true)
		want := []string{"alice"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("gm only when player view disabled", func(t *testing.T) {
		got := DefaultRecipients(DefaultSettings(), perms, viewerIDs, "actor-1", false)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected restricted empty list, got %v", got)
		}
	})
}

func TestDeliveredTo(t *testing.T) {
	truth := true
	falsity := false
	gm := Viewer{ID: "gm", GM: true}
	alice := Viewer{ID: "alice"}
	bob := Viewer{ID: "bob"}

	tests := []struct {
		name   string
		entry  *Entry
		viewer Viewer
		want   bool
	}{
		{"nil entry", nil, alice, false},
		{"gm always delivered", &Entry{Recipients: []string{}}, gm, true},
		{"nil recipients is unrestricted", &Entry{}, bob, true},
		{"listed recipient", &Entry{Recipients: []string{"alice"}}, alice, true},
		{"unlisted viewer", &Entry{Recipients: []string{"alice"}}, bob, false},
		{"forced public", &Entry{Recipients: []string{"alice"}, Public: &truth}, bob, true},
		{"forced private falls back to list", &Entry{Recipients: []string{"alice"}, Public: &falsity}, bob, false},
		{"forced private keeps listed", &Entry{Recipients: []string{"alice"}, Public: &falsity}, alice, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeliveredTo(tt.entry, tt.viewer); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCanUndo(t *testing.T) {
	perms := ownerPerms("alice", "actor-1")
	gm := Viewer{ID: "gm", GM: true}
	alice := Viewer{ID: "alice"}
	bob := Viewer{ID: "bob"}

	tests := []struct {
		name     string
		settings Settings
		viewer   Viewer
		want     bool
	}{
		{"gm always", DefaultSettings(), gm, true},
		{"player undo disabled", DefaultSettings(), alice, false},
		{"owning player with undo enabled", Settings{AllowPlayerUndo: true}, alice, true},
		{"non-owner with undo enabled", Settings{AllowPlayerUndo: true}, bob, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanUndo(tt.settings, perms, tt.viewer, "actor-1"); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
