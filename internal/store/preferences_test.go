package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "taskify_test.sqlite")
	sqlStore, err := New(dbPath)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return sqlStore
}

func TestPreferenceRoundTrip(t *testing.T) {
	sqlStore := newTestStore(t)
	ctx := context.Background()

	if _, err := sqlStore.GetPreference(ctx, "theme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before set, got %v", err)
	}
	if err := sqlStore.SetPreference(ctx, "theme", "dark"); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	if err := sqlStore.SetPreference(ctx, " THEME ", "light"); err != nil {
		t.Fatalf("overwrite preference: %v", err)
	}
	value, err := sqlStore.GetPreference(ctx, "theme")
	if err != nil {
		t.Fatalf("get preference: %v", err)
	}
	if value != "light" {
		t.Fatalf("expected light, got %s", value)
	}
}

func TestPreferenceRequiresKey(t *testing.T) {
	sqlStore := newTestStore(t)
	if err := sqlStore.SetPreference(context.Background(), "  ", "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestAutoMigrateIsRepeatable(t *testing.T) {
	sqlStore := newTestStore(t)
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := sqlStore.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
