// Package sqlite implements the ledger entry store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avendale/damagelog/internal/ledger"
	"github.com/avendale/damagelog/internal/platform/errors"
	"github.com/avendale/damagelog/internal/platform/storage/sqlitemigrate"
	"github.com/avendale/damagelog/internal/services/ledger/storage"
	"github.com/avendale/damagelog/internal/services/ledger/storage/sqlite/migrations"
)

// Store is a SQLite-backed EntryStore.
type Store struct {
	db *sql.DB
}

var _ storage.EntryStore = (*Store)(nil)

// Open opens (or creates) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateEntry inserts a new ledger entry.
func (s *Store) CreateEntry(ctx context.Context, entry *ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil || entry.ID == "" {
		return errors.New(errors.CodeEntryNotFound, "entry id is required")
	}
	if len(entry.Changes) == 0 {
		return errors.New(errors.CodeEntryEmpty, "entry has no changes")
	}

	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	recipients, err := marshalRecipients(entry.Recipients)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, system_id, author_id, author_name, scene_id, token_id, actor_id, alias,
			changes, reverted, public, recipients, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SystemID,
		entry.AuthorID,
		entry.AuthorName,
		entry.Speaker.SceneID,
		entry.Speaker.TokenID,
		entry.Speaker.ActorID,
		entry.Speaker.Alias,
		string(changes),
		boolToInt(entry.Reverted),
		publicToNull(entry.Public),
		recipients,
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// GetEntry returns an entry by id.
func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, system_id, author_id, author_name, scene_id, token_id, actor_id, alias,
			changes, reverted, public, recipients, created_at
		FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// SetReverted flips the applied/reverted state.
func (s *Store) SetReverted(ctx context.Context, id string, reverted bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE entries SET reverted = ? WHERE id = ?", boolToInt(reverted), id)
	if err != nil {
		return fmt.Errorf("update reverted: %w", err)
	}
	return requireRow(result)
}

// SetVisibility replaces the public override and distribution list.
func (s *Store) SetVisibility(ctx context.Context, id string, public *bool, recipients []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := marshalRecipients(recipients)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "UPDATE entries SET public = ?, recipients = ? WHERE id = ?",
		publicToNull(public), encoded, id)
	if err != nil {
		return fmt.Errorf("update visibility: %w", err)
	}
	return requireRow(result)
}

// ListEntriesBefore returns up to limit entries created strictly before the
// given time, newest first.
func (s *Store) ListEntriesBefore(ctx context.Context, before time.Time, limit int) ([]*ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, system_id, author_id, author_name, scene_id, token_id, actor_id, alias,
			changes, reverted, public, recipients, created_at
		FROM entries WHERE created_at < ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, toMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		entry       ledger.Entry
		changesJSON string
		reverted    int
		public      sql.NullInt64
		recipients  sql.NullString
		createdAt   int64
	)

	err := row.Scan(
		&entry.ID,
		&entry.SystemID,
		&entry.AuthorID,
		&entry.AuthorName,
		&entry.Speaker.SceneID,
		&entry.Speaker.TokenID,
		&entry.Speaker.ActorID,
		&entry.Speaker.Alias,
		&changesJSON,
		&reverted,
		&public,
		&recipients,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(changesJSON), &entry.Changes); err != nil {
		return nil, fmt.Errorf("unmarshal changes: %w", err)
	}
	entry.Reverted = reverted != 0
	if public.Valid {
		value := public.Int64 != 0
		entry.Public = &value
	}
	if recipients.Valid {
		var ids []string
		if err := json.Unmarshal([]byte(recipients.String), &ids); err != nil {
			return nil, fmt.Errorf("unmarshal recipients: %w", err)
		}
		if ids == nil {
			ids = []string{}
		}
		entry.Recipients = ids
	}
	entry.CreatedAt = fromMillis(createdAt)

	return &entry, nil
}

func marshalRecipients(recipients []string) (any, error) {
	if recipients == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(recipients)
	if err != nil {
		return nil, fmt.Errorf("marshal recipients: %w", err)
	}
	return string(encoded), nil
}

func publicToNull(public *bool) any {
	if public == nil {
		return nil
	}
	return boolToInt(*public)
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}
