// Package sqlite persists sync state in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/likelabs/likeship/internal/domain"
)

const dbFileName = "likeship.db"

// Store implements ports.StateStore backed by SQLite. Durability comes from
// the WAL journal: every mutation commits before the call returns.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the state database under dir, creating
// the directory on first use.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS queue (
	position        INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id       TEXT NOT NULL UNIQUE,
	payload         BLOB NOT NULL,
	attempts        INTEGER NOT NULL DEFAULT 0,
	queued_at       TEXT NOT NULL,
	last_attempt_at TEXT NOT NULL DEFAULT '',
	last_error      TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const (
	metaCredential = "credential"
	metaStats      = "stats"
	metaClientID   = "client_id"
)

func (s *Store) getMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// LoadCredential returns the stored credential, or a zero credential when
// logged out.
func (s *Store) LoadCredential(ctx context.Context) (domain.Credential, error) {
	value, ok, err := s.getMeta(ctx, metaCredential)
	if err != nil || !ok {
		return domain.Credential{}, err
	}
	var cred domain.Credential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return cred, nil
}

// SaveCredential replaces the stored credential wholesale.
func (s *Store) SaveCredential(ctx context.Context, cred domain.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return s.setMeta(ctx, metaCredential, string(data))
}

// ClearCredential erases the stored credential.
func (s *Store) ClearCredential(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, metaCredential)
	return err
}

// LoadQueue returns queued items in FIFO (insertion) order.
func (s *Store) LoadQueue(ctx context.Context) ([]domain.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, payload, attempts, queued_at, last_attempt_at, last_error
		 FROM queue ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		var (
			item          domain.QueueItem
			payload       []byte
			queuedAt      string
			lastAttemptAt string
		)
		if err := rows.Scan(&item.Record.RecordID, &payload, &item.Attempts, &queuedAt, &lastAttemptAt, &item.LastError); err != nil {
			return nil, err
		}
		item.Record.Payload = json.RawMessage(payload)
		if item.QueuedAt, err = parseTime(queuedAt); err != nil {
			return nil, fmt.Errorf("queue item %s: %w", item.Record.RecordID, err)
		}
		if item.LastAttemptAt, err = parseTime(lastAttemptAt); err != nil {
			return nil, fmt.Errorf("queue item %s: %w", item.Record.RecordID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveQueue replaces the persisted queue with the given items in order.
// The whole replacement is one transaction: the queue is small (bounded by
// the cap) and a full rewrite keeps replacement semantics identical to the
// file store.
func (s *Store) SaveQueue(ctx context.Context, items []domain.QueueItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue`); err != nil {
		return err
	}
	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO queue (record_id, payload, attempts, queued_at, last_attempt_at, last_error)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			item.Record.RecordID,
			[]byte(item.Record.Payload),
			item.Attempts,
			formatTime(item.QueuedAt),
			formatTime(item.LastAttemptAt),
			item.LastError,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadStats returns the persisted counters.
func (s *Store) LoadStats(ctx context.Context) (domain.Stats, error) {
	value, ok, err := s.getMeta(ctx, metaStats)
	if err != nil || !ok {
		return domain.Stats{}, err
	}
	var stats domain.Stats
	if err := json.Unmarshal([]byte(value), &stats); err != nil {
		return domain.Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

// SaveStats replaces the persisted counters.
func (s *Store) SaveStats(ctx context.Context, stats domain.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.setMeta(ctx, metaStats, string(data))
}

// ClientID returns the per-install identifier, generating one on first use.
func (s *Store) ClientID(ctx context.Context) (string, error) {
	value, ok, err := s.getMeta(ctx, metaClientID)
	if err != nil {
		return "", err
	}
	if ok {
		return value, nil
	}
	id := uuid.NewString()
	if err := s.setMeta(ctx, metaClientID, id); err != nil {
		return "", err
	}
	return id, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
