// Package storage defines the persistence contract for ledger entries.
package storage

import (
	"context"
	"time"

	"github.com/avendale/damagelog/internal/ledger"
	"github.com/avendale/damagelog/internal/platform/errors"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New(errors.CodeEntryNotFound, "entry not found")

// EntryStore persists ledger entries and their visibility state.
type EntryStore interface {
	// CreateEntry inserts a new entry. Entries with no changes are
	// rejected; the creation gate upstream should prevent them.
	CreateEntry(ctx context.Context, entry *ledger.Entry) error

	// GetEntry returns an entry by id, or ErrNotFound.
	GetEntry(ctx context.Context, id string) (*ledger.Entry, error)

	// SetReverted updates the applied/reverted state of an entry.
	SetReverted(ctx context.Context, id string, reverted bool) error

	// SetVisibility replaces the public override and distribution list.
	// A nil public pointer clears the override; a nil recipients slice
	// stores unrestricted delivery.
	SetVisibility(ctx context.Context, id string, public *bool, recipients []string) error

	// ListEntriesBefore returns up to limit entries created strictly
	// before the given time, newest first.
	ListEntriesBefore(ctx context.Context, before time.Time, limit int) ([]*ledger.Entry, error)

	// Close releases the underlying database handle.
	Close() error
}
