package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/dwizi/taskify/internal/alert"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/logging"
	"github.com/dwizi/taskify/internal/prefs"
	"github.com/dwizi/taskify/internal/store"
)

// deps is what every front-end is built from.
type deps struct {
	logger  *slog.Logger
	client  *apiclient.Client
	alerter *alert.Alerter
	themes  *prefs.ThemeStore
	store   *store.Store
}

// buildDeps wires the API client, preference store and alert players. A
// preference store that cannot be opened is not fatal: the theme is then kept
// in memory only.
func buildDeps(ctx context.Context, cfg config.Config, logger *slog.Logger, terminal bool) (*deps, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	d := &deps{
		logger: logger,
		client: apiclient.New(cfg, logger),
	}

	var backend prefs.Backend
	sqlStore, err := store.New(cfg.PrefsDBPath)
	if err == nil {
		err = sqlStore.AutoMigrate(ctx)
		if err != nil {
			_ = sqlStore.Close()
		}
	}
	if err != nil {
		logger.Warn("preference store unavailable", "path", cfg.PrefsDBPath, "error", err)
	} else {
		d.store = sqlStore
		backend = sqlStore
	}
	d.themes = prefs.LoadTheme(ctx, backend, prefs.ThemeDark, logger)
	d.alerter = alert.New(logger, alertPlayers(cfg, terminal, os.Stderr)...)
	return d, nil
}

func alertPlayers(cfg config.Config, terminal bool, bell io.Writer) []alert.Player {
	var players []alert.Player
	if cfg.AlertAudio {
		players = append(players, alert.NewOtoPlayer())
	}
	if terminal && cfg.AlertBell {
		players = append(players, alert.NewBellPlayer(bell, clockwork.NewRealClock()))
	}
	return players
}

// Close lets a pending alert finish before releasing the store.
func (d *deps) Close() {
	d.alerter.Wait()
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("close preference store", "error", err)
		}
	}
}

func openFileLogger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	return logging.OpenFile(cfg.LogPath, cfg.LogLevel)
}
