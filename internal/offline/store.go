package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	_ "github.com/mattn/go-sqlite3"
)

// ItemStatus is the queue state of an item. Applied items are removed from the queue.
type ItemStatus string

const (
	ItemPending ItemStatus = "PENDING"
	ItemFailed  ItemStatus = "FAILED"
)

// Item is one queued operation. ID doubles as the operation id sent to the server.
type Item struct {
	Seq       int64
	ID        string
	Op        Operation
	Status    ItemStatus
	Attempts  int
	LastError string
	QueuedAt  time.Time
	UpdatedAt time.Time
}

// Counts summarizes the queue.
type Counts struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	operation  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'PENDING',
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	queued_at  TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status, seq);

CREATE TABLE IF NOT EXISTS mirror_entries (
	entry_id   TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mirror_accounts (
	account_id TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	balance    INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store is the client's durable state: the operation queue and the entry and balance mirrors.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path and prepares the schema.
// ":memory:" gives a private in-memory database.
func OpenStore(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create queue directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	// One connection: SQLite has a single writer and each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping queue database: %w", err)
	}

	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database and creates the tables if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize queue schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Append adds item to the tail of the queue.
func (s *Store) Append(ctx context.Context, item Item) error {
	data, err := EncodeOperation(item.Op)
	if err != nil {
		return err
	}
	status := item.Status
	if status == "" {
		status = ItemPending
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO queue_items (id, kind, operation, status, attempts, last_error, queued_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Op.Kind()), string(data), string(status), item.Attempts, item.LastError,
		formatTime(item.QueuedAt), formatTime(item.QueuedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append queue item %s: %w", item.ID, err)
	}
	return nil
}

// Pending returns pending items in queue order.
func (s *Store) Pending(ctx context.Context) ([]Item, error) {
	return s.listByStatus(ctx, ItemPending)
}

// Failed returns failed items in queue order.
func (s *Store) Failed(ctx context.Context) ([]Item, error) {
	return s.listByStatus(ctx, ItemFailed)
}

func (s *Store) listByStatus(ctx context.Context, status ItemStatus) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, operation, status, attempts, last_error, queued_at, updated_at
		 FROM queue_items WHERE status = ? ORDER BY seq`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s queue items: %w", status, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it                  Item
			op, st              string
			queuedAt, updatedAt string
		)
		if err := rows.Scan(&it.Seq, &it.ID, &op, &st, &it.Attempts, &it.LastError, &queuedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		if it.Op, err = DecodeOperation([]byte(op)); err != nil {
			return nil, fmt.Errorf("queue item %s: %w", it.ID, err)
		}
		it.Status = ItemStatus(st)
		if it.QueuedAt, err = parseTime(queuedAt); err != nil {
			return nil, fmt.Errorf("queue item %s: bad queued_at: %w", it.ID, err)
		}
		if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("queue item %s: bad updated_at: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkApplied removes a successfully replayed item from the queue.
func (s *Store) MarkApplied(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
}

// RecordFailure stores the error of an attempt. When failed is true the item
// leaves the pending set and waits for ClearFailed.
func (s *Store) RecordFailure(ctx context.Context, id string, attempts int, cause error, failed bool, at time.Time) error {
	status := ItemPending
	if failed {
		status = ItemFailed
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.execOne(ctx,
		`UPDATE queue_items SET status = ?, attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status), attempts, msg, formatTime(at), id)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("queue update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue update failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: queue item", apperrors.ErrNotFound)
	}
	return nil
}

// ClearFailed drops every failed item and returns how many were removed.
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE status = ?`, string(ItemFailed))
	if err != nil {
		return 0, fmt.Errorf("failed to clear failed queue items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear failed queue items: %w", err)
	}
	return int(n), nil
}

// Counts returns the number of pending and failed items.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count queue items: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("failed to scan queue count: %w", err)
		}
		switch ItemStatus(status) {
		case ItemPending:
			c.Pending = n
		case ItemFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

// PutMirrorEntries upserts entries into the local mirror.
func (s *Store) PutMirrorEntries(ctx context.Context, entries ...domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mirror update: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode mirror entry %s: %w", e.EntryID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO mirror_entries (entry_id, owner_id, body, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(entry_id) DO UPDATE SET owner_id = excluded.owner_id, body = excluded.body, updated_at = excluded.updated_at`,
			e.EntryID, e.OwnerID, string(body), formatTime(e.LastUpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to store mirror entry %s: %w", e.EntryID, err)
		}
	}
	return tx.Commit()
}

// PutMirrorBalances upserts server-reported account balances into the local mirror.
func (s *Store) PutMirrorBalances(ctx context.Context, ownerID string, balances map[string]int64, at time.Time) error {
	if len(balances) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin balance mirror update: %w", err)
	}
	defer tx.Rollback()

	for id, balance := range balances {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO mirror_accounts (account_id, owner_id, balance, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(account_id) DO UPDATE SET owner_id = excluded.owner_id, balance = excluded.balance, updated_at = excluded.updated_at`,
			id, ownerID, balance, formatTime(at))
		if err != nil {
			return fmt.Errorf("failed to store mirror balance of %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// MirrorBalances returns the last known balance of each of ownerID's accounts.
func (s *Store) MirrorBalances(ctx context.Context, ownerID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id, balance FROM mirror_accounts WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror balances: %w", err)
	}
	defer rows.Close()

	balances := map[string]int64{}
	for rows.Next() {
		var id string
		var balance int64
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan mirror balance: %w", err)
		}
		balances[id] = balance
	}
	return balances, rows.Err()
}

// DeleteMirrorEntries removes entries from the mirror. Unknown ids are ignored.
func (s *Store) DeleteMirrorEntries(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM mirror_entries WHERE entry_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete mirror entry %s: %w", id, err)
		}
	}
	return nil
}

// MirrorEntry returns the locally known copy of an entry.
func (s *Store) MirrorEntry(ctx context.Context, id string) (*domain.Entry, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM mirror_entries WHERE entry_id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mirror entry %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror entry %s: %w", id, err)
	}
	var e domain.Entry
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("failed to decode mirror entry %s: %w", id, err)
	}
	return &e, nil
}
