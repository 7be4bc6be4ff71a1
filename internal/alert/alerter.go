package alert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Alerter plays Sequence without blocking the caller. Players are tried in
// order until one succeeds. Failures and panics are logged and never reach
// the caller.
type Alerter struct {
	players []Player
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func New(logger *slog.Logger, players ...Player) *Alerter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Alerter{players: players, logger: logger, timeout: 5 * time.Second}
}

func (a *Alerter) Alert() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.play()
	}()
}

// Wait blocks until every alert started so far has finished.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) play() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for _, player := range a.players {
		err := safePlay(ctx, player)
		if err == nil {
			return
		}
		a.logger.Warn("alert tone failed", "player", fmt.Sprintf("%T", player), "error", err)
	}
}

func safePlay(ctx context.Context, player Player) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("alert player panic: %v", r)
		}
	}()
	return player.Play(ctx, Sequence)
}
