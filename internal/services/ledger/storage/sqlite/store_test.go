package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/avendale/damagelog/internal/ledger"
	"github.com/avendale/damagelog/internal/platform/errors"
	"github.com/avendale/damagelog/internal/services/ledger/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleEntry(id string, createdAt time.Time) *ledger.Entry {
	return &ledger.Entry{
		ID:         id,
		SystemID:   "dnd5e",
		AuthorID:   "alice",
		AuthorName: "Alice",
		Speaker: ledger.Speaker{
			SceneID: "scene-1",
			TokenID: "token-1",
			ActorID: "actor-1",
			Alias:   "Hero",
		},
		Changes: []ledger.ChangeRecord{
			{ID: "hp", Name: "Hit Points", Old: 10, New: 7, Diff: -3},
		},
		Recipients: []string{"gm"},
		CreatedAt:  createdAt,
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createdAt := time.Unix(1700000000, 0).UTC()

	entry := sampleEntry("entry-1", createdAt)
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	got, err := store.GetEntry(ctx, "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if !reflect.DeepEqual(got, entry) {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, entry)
	}
}

func TestCreateEntryRejectsEmptyChanges(t *testing.T) {
	store := openTestStore(t)

	entry := sampleEntry("entry-1", time.Now().UTC())
	entry.Changes = nil

	err := store.CreateEntry(context.Background(), entry)
	if err == nil {
		t.Fatal("expected empty-changes error")
	}
	if errors.CodeOf(err) != errors.CodeEntryEmpty {
		t.Fatalf("expected entry-empty code, got %v", errors.CodeOf(err))
	}
}

func TestGetEntryNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetEntry(context.Background(), "missing")
	if err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetReverted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := sampleEntry("entry-1", time.Now().UTC())
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if err := store.SetReverted(ctx, "entry-1", true); err != nil {
		t.Fatalf("set reverted: %v", err)
	}
	got, err := store.GetEntry(ctx, "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if !got.Reverted {
		t.Fatal("expected reverted entry")
	}

	if err := store.SetReverted(ctx, "missing", true); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing entry, got %v", err)
	}
}

func TestSetVisibility(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := sampleEntry("entry-1", time.Now().UTC())
	if err := store.CreateEntry(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	truth := true
	if err := store.SetVisibility(ctx, "entry-1", &truth, nil); err != nil {
		t.Fatalf("set visibility: %v", err)
	}
	got, err := store.GetEntry(ctx, "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Public == nil || !*got.Public {
		t.Fatalf("expected public override true, got %+v", got.Public)
	}
	if got.Recipients != nil {
		t.Fatalf("expected unrestricted recipients, got %v", got.Recipients)
	}

	// Resetting stores no override and a fresh restricted list.
	if err := store.SetVisibility(ctx, "entry-1", nil, []string{"gm", "alice"}); err != nil {
		t.Fatalf("reset visibility: %v", err)
	}
	got, err = store.GetEntry(ctx, "entry-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Public != nil {
		t.Fatalf("expected cleared override, got %v", *got.Public)
	}
	if !reflect.DeepEqual(got.Recipients, []string{"gm", "alice"}) {
		t.Fatalf("unexpected recipients %v", got.Recipients)
	}
}

func TestListEntriesBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	for i := 0; i < 5; i++ {
		entry := sampleEntry("entry-"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute))
		if err := store.CreateEntry(ctx, entry); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	entries, err := store.ListEntriesBefore(ctx, base.Add(3*time.Minute), 2)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// Newest first, strictly before the cutoff.
	if entries[0].ID != "entry-c" || entries[1].ID != "entry-b" {
		t.Fatalf("unexpected page order: %s, %s", entries[0].ID, entries[1].ID)
	}

	empty, err := store.ListEntriesBefore(ctx, base, 10)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d entries", len(empty))
	}
}
