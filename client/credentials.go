package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// CredentialKey is the fixed name the session token is stored under.
const CredentialKey = "token"

// CredentialStore persists the session token across process restarts.
// Load returns "" when nothing is stored. Delete of a missing record is not
// an error.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

type MemoryCredentialStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{values: make(map[string]string)}
}

func (m *MemoryCredentialStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.values[CredentialKey], nil
}

func (m *MemoryCredentialStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[CredentialKey] = token

	return nil
}

func (m *MemoryCredentialStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, CredentialKey)

	return nil
}

// SQLiteCredentialStore keeps the token in a small key/value table on disk.
type SQLiteCredentialStore struct {
	db *sql.DB
}

func OpenSQLiteCredentialStore(ctx context.Context, path string) (*SQLiteCredentialStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("credentials: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
	CREATE TABLE IF NOT EXISTS credentials (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("credentials: create schema: %w", err)
	}

	return &SQLiteCredentialStore{db: db}, nil
}

func (s *SQLiteCredentialStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteCredentialStore) Load(ctx context.Context) (string, error) {
	const load = `SELECT value FROM credentials WHERE key = ?`

	var token string
	err := s.db.QueryRowContext(ctx, load, CredentialKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return token, err
}

func (s *SQLiteCredentialStore) Save(ctx context.Context, token string) error {
	const save = `
	INSERT INTO credentials (key, value) VALUES (?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`

	_, err := s.db.ExecContext(ctx, save, CredentialKey, token)

	return err
}

func (s *SQLiteCredentialStore) Delete(ctx context.Context) error {
	const del = `DELETE FROM credentials WHERE key = ?`

	_, err := s.db.ExecContext(ctx, del, CredentialKey)

	return err
}
