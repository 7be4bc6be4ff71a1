// Package prefs holds process-wide display preferences. Values are loaded
// once at startup and passed explicitly to each front-end.
package prefs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dwizi/taskify/internal/store"
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

const themeKey = "theme"

func ParseTheme(value string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeDark:
		return ThemeDark, true
	case ThemeLight:
		return ThemeLight, true
	default:
		return "", false
	}
}

// Backend persists preference values. *store.Store satisfies it.
type Backend interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

type ThemeStore struct {
	mu          sync.RWMutex
	backend     Backend
	logger      *slog.Logger
	theme       Theme
	nextID      int
	subscribers map[int]func(Theme)
}

// LoadTheme reads the persisted theme, falling back when nothing valid is
// stored. A nil backend keeps the theme in memory only.
func LoadTheme(ctx context.Context, backend Backend, fallback Theme, logger *slog.Logger) *ThemeStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if _, ok := ParseTheme(string(fallback)); !ok {
		fallback = ThemeDark
	}
	s := &ThemeStore{backend: backend, logger: logger, theme: fallback, subscribers: map[int]func(Theme){}}
	if backend == nil {
		return s
	}
	value, err := backend.GetPreference(ctx, themeKey)
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("load theme preference failed", "error", err)
		}
		return s
	}
	if theme, ok := ParseTheme(value); ok {
		s.theme = theme
	}
	return s
}

func (s *ThemeStore) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *ThemeStore) Dark() bool {
	return s.Theme() == ThemeDark
}

// Set changes the theme in memory first; a failed write is returned but the
// new theme stays in effect for this process.
func (s *ThemeStore) Set(ctx context.Context, theme Theme) error {
	parsed, ok := ParseTheme(string(theme))
	if !ok {
		return errors.New("unknown theme: " + string(theme))
	}
	s.mu.Lock()
	s.theme = parsed
	listeners := make([]func(Theme), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(parsed)
	}
	if s.backend == nil {
		return nil
	}
	if err := s.backend.SetPreference(ctx, themeKey, string(parsed)); err != nil {
		s.logger.Warn("persist theme preference failed", "error", err)
		return err
	}
	return nil
}

func (s *ThemeStore) Toggle(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if s.Dark() {
		next = ThemeLight
	}
	return next, s.Set(ctx, next)
}

// Subscribe registers fn for theme changes and returns its removal func.
func (s *ThemeStore) Subscribe(fn func(Theme)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
