package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("preference key is required")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup preference: %w", err)
	}
	return value, nil
}

func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	key = normalizeKey(key)
	if key == "" {
		return fmt.Errorf("preference key is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO preferences (key, value, updated_at_unix) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unix = excluded.updated_at_unix`,
		key,
		value,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func normalizeKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
