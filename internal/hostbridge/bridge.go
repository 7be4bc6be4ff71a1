// Package hostbridge exposes the host application's lifecycle controls to the
// client core. The implementation is chosen once at startup.
package hostbridge

import (
	"context"
	"io"
	"log/slog"
)

// Bridge calls are fire-and-forget.
type Bridge interface {
	Reload()
	Quit()
	// RequestLogoutConfirmation asks the operator to confirm a logout and
	// calls onConfirm only on agreement.
	RequestLogoutConfirmation(onConfirm func())
}

// Local is the in-process fallback used when no desktop shell is present.
type Local struct {
	reload  func()
	quit    func()
	confirm func(onConfirm func())
}

func NewLocal(reload, quit func(), confirm func(onConfirm func())) *Local {
	return &Local{reload: reload, quit: quit, confirm: confirm}
}

func (l *Local) Reload() {
	if l.reload != nil {
		l.reload()
	}
}

func (l *Local) Quit() {
	if l.quit != nil {
		l.quit()
	}
}

// RequestLogoutConfirmation confirms immediately when no prompt was wired.
func (l *Local) RequestLogoutConfirmation(onConfirm func()) {
	if onConfirm == nil {
		return
	}
	if l.confirm == nil {
		onConfirm()
		return
	}
	l.confirm(onConfirm)
}

// ShellPresent reports whether ctx came from a running desktop shell.
func ShellPresent(ctx context.Context) bool {
	return ctx != nil && ctx.Value(frontendKey) != nil
}

// Select returns the shell-backed bridge when ctx belongs to a running shell
// and fallback otherwise.
func Select(ctx context.Context, title string, logger *slog.Logger, fallback Bridge) Bridge {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if ShellPresent(ctx) {
		logger.Info("host bridge selected", "kind", "shell")
		return NewShell(ctx, title, logger)
	}
	logger.Info("host bridge selected", "kind", "local")
	return fallback
}
