package hostbridge

import (
	"context"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// frontendKey is the context key the desktop runtime stores its frontend under.
const frontendKey = "frontend"

const (
	confirmYes = "Yes"
	confirmNo  = "No"
)

// Shell forwards to the desktop shell runtime.
type Shell struct {
	ctx    context.Context
	title  string
	logger *slog.Logger
}

func NewShell(ctx context.Context, title string, logger *slog.Logger) *Shell {
	return &Shell{ctx: ctx, title: title, logger: logger}
}

func (s *Shell) Reload() {
	runtime.WindowReload(s.ctx)
}

func (s *Shell) Quit() {
	runtime.Quit(s.ctx)
}

// RequestLogoutConfirmation shows a native dialog without blocking the caller.
func (s *Shell) RequestLogoutConfirmation(onConfirm func()) {
	go func() {
		choice, err := runtime.MessageDialog(s.ctx, runtime.MessageDialogOptions{
			Type:          runtime.QuestionDialog,
			Title:         s.title,
			Message:       "Log out and clear activation data on this device?",
			Buttons:       []string{confirmYes, confirmNo},
			DefaultButton: confirmNo,
			CancelButton:  confirmNo,
		})
		if err != nil {
			s.logger.Warn("logout confirmation dialog failed", "error", err)
			return
		}
		if choice == confirmYes && onConfirm != nil {
			onConfirm()
		}
	}()
}
