package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore persists settings and small values in the kv_store table
// and notifies subscribers whenever the settings document changes.
//
// Thread Safety: all methods are safe for concurrent use.
type SQLiteStore struct {
	*Broker
	db *sql.DB
}

// NewSQLiteStore wraps an open database that has the kv_store table.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		Broker: NewBroker(),
		db:     db,
	}
}

// Load reads the stored settings document and publishes it.
// When nothing has been stored yet DefaultSnapshot is published, so
// subscribers always receive an initial value.
func (s *SQLiteStore) Load(ctx context.Context) error {
	raw, err := s.Get(ctx, KeySettings)
	switch {
	case errors.Is(err, ErrNotFound):
		s.Publish(DefaultSnapshot())
		return nil
	case err != nil:
		return err
	}

	snap, err := DecodeSnapshot([]byte(raw))
	if err != nil {
		s.Publish(DefaultSnapshot())
		return fmt.Errorf("loading settings: %w", err)
	}
	s.Publish(snap)
	return nil
}

// Update stores snap and publishes it to subscribers.
func (s *SQLiteStore) Update(ctx context.Context, snap Snapshot) error {
	snap.OutputProfiles = snap.Profiles()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.Set(ctx, KeySettings, string(data)); err != nil {
		return err
	}
	s.Publish(snap)
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
