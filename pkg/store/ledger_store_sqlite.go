// Package store persists ledger entries. The store is append-only like
// the ledger it mirrors: there is no update or delete path, and loading
// always re-verifies the chain so a tampered database surfaces as a
// ChainIntegrityViolation, never as silently accepted state.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/farsight-labs/warden/pkg/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteLedgerStore persists ledger entries in a single SQLite table.
type SQLiteLedgerStore struct {
	db *sql.DB
}

// Open opens (or creates) a ledger database at path and runs migration.
func Open(path string) (*SQLiteLedgerStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLiteLedgerStore(db)
}

// NewSQLiteLedgerStore wraps an existing database handle and runs
// migration.
func NewSQLiteLedgerStore(db *sql.DB) (*SQLiteLedgerStore, error) {
	s := &SQLiteLedgerStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteLedgerStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS ledger_entries (
		sequence INTEGER PRIMARY KEY,
		kind TEXT NOT NULL,
		payload_hash TEXT NOT NULL,
		prev_hash TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		actor TEXT,
		payload JSON NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// AppendEntry persists one entry. Sequence is the primary key, so a
// re-append of an existing sequence fails instead of rewriting history.
func (s *SQLiteLedgerStore) AppendEntry(ctx context.Context, e ledger.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal payload for entry %d: %w", e.Sequence, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (sequence, kind, payload_hash, prev_hash, timestamp, actor, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Sequence, string(e.Kind), e.PayloadHash, e.PrevHash,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Actor, string(payload))
	if err != nil {
		return fmt.Errorf("store: append entry %d: %w", e.Sequence, err)
	}
	return nil
}

// ListEntries returns every persisted entry in sequence order.
func (s *SQLiteLedgerStore) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, kind, payload_hash, prev_hash, timestamp, actor, payload
		FROM ledger_entries
		ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e          ledger.Entry
			kind       string
			timestamp  string
			rawPayload string
		)
		if err := rows.Scan(&e.Sequence, &kind, &e.PayloadHash, &e.PrevHash, &timestamp, &e.Actor, &rawPayload); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		e.Kind = ledger.EntryKind(kind)
		e.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("store: entry %d has bad timestamp %q: %w", e.Sequence, timestamp, err)
		}
		if err := json.Unmarshal([]byte(rawPayload), &e.Payload); err != nil {
			return nil, fmt.Errorf("store: entry %d has bad payload: %w", e.Sequence, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	return entries, nil
}

// LoadVerified loads all entries and verifies the hash chain before
// returning them.
func (s *SQLiteLedgerStore) LoadVerified(ctx context.Context) ([]ledger.Entry, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	if err := ledger.VerifyEntries(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}
