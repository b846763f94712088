package ledger

import (
	"testing"

	"github.com/avendale/damagelog/internal/platform/errors"
)

// fakePresence tracks connected viewers for arbitration tests.
type fakePresence struct {
	viewers []Viewer
}

func (p *fakePresence) IsConnected(viewerID string) bool {
	for _, viewer := range p.viewers {
		if viewer.ID == viewerID {
			return true
		}
	}
	return false
}

func (p *fakePresence) ConnectedViewers() []Viewer {
	return p.viewers
}

func (p *fakePresence) ConnectedGMs() []Viewer {
	var gms []Viewer
	for _, viewer := range p.viewers {
		if viewer.GM {
			gms = append(gms, viewer)
		}
	}
	return gms
}

func TestArbitratePrefersConnectedAuthor(t *testing.T) {
	presence := &fakePresence{viewers: []Viewer{
		{ID: "gm", Name: "GM", GM: true},
		{ID: "alice", Name: "Alice"},
	}}

	executor, err := Arbitrate(presence, "alice", "Alice", "undo", "damage")
	if err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if executor.ID != "alice" {
		t.Fatalf("expected author to execute, got %q", executor.ID)
	}
}

func TestArbitrateFallsBackToGM(t *testing.T) {
	presence := &fakePresence{viewers: []Viewer{
		{ID: "gm-b", Name: "Second GM", GM: true},
		{ID: "gm-a", Name: "First GM", GM: true},
	}}

	executor, err := Arbitrate(presence, "alice", "Alice", "undo", "damage")
	if err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if executor.ID != "gm-a" {
		t.Fatalf("expected deterministic lowest-id GM, got %q", executor.ID)
	}
}

func TestArbitrateNoAuthority(t *testing.T) {
	// Author disconnected, no GM connected: the operation must fail and
	// name the action, kind, and author.
	presence := &fakePresence{viewers: []Viewer{{ID: "bob", Name: "Bob"}}}

	_, err := Arbitrate(presence, "alice", "Alice", "undo", "damage")
	if err == nil {
		t.Fatal("expected arbitration error")
	}
	if errors.CodeOf(err) != errors.CodeNoUndoAuthority {
		t.Fatalf("expected no-undo-authority code, got %v", errors.CodeOf(err))
	}

	metadata := errors.MetadataOf(err)
	if metadata["action"] != "undo" || metadata["kind"] != "damage" || metadata["author"] != "Alice" {
		t.Fatalf("expected action/kind/author metadata, got %v", metadata)
	}
}
