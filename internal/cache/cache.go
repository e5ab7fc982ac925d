// Package cache stores rendered command responses in a local sqlite file so
// repeated CLI invocations within the freshness window skip the upstream
// fetch. Entries past their TTL are never served.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const lockWait = 5 * time.Second

type Store struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

type Result struct {
	Hit   bool
	Value []byte
	Age   time.Duration
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"CREATE TABLE IF NOT EXISTS responses (key TEXT PRIMARY KEY, body BLOB NOT NULL, stored_at INTEGER NOT NULL, expires_at INTEGER NOT NULL);",
		"CREATE INDEX IF NOT EXISTS responses_expires_at ON responses (expires_at);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	store := &Store{db: db, lock: flock.New(lockPath), now: time.Now}
	_ = store.Prune()
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune deletes expired entries.
func (s *Store) Prune() error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("DELETE FROM responses WHERE expires_at <= ?", s.now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	return nil
}

// Get returns a hit only for entries still inside their TTL.
func (s *Store) Get(key string) (Result, error) {
	var body []byte
	var storedAt, expiresAt int64
	err := s.db.QueryRow("SELECT body, stored_at, expires_at FROM responses WHERE key = ?", key).Scan(&body, &storedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("cache read: %w", err)
	}

	now := s.now().UTC().UnixMilli()
	if now >= expiresAt {
		return Result{}, nil
	}
	age := time.Duration(now-storedAt) * time.Millisecond
	if age < 0 {
		age = 0
	}
	return Result{Hit: true, Value: body, Age: age}, nil
}

func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	locked, err := s.lock.TryLockContext(context.Background(), lockWait)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	storedAt := s.now().UTC().UnixMilli()
	_, err = s.db.Exec(`
		INSERT INTO responses (key, body, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body=excluded.body,
			stored_at=excluded.stored_at,
			expires_at=excluded.expires_at
	`, key, value, storedAt, storedAt+ttl.Milliseconds())
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}
