package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/desktop"
	"github.com/dwizi/taskify/internal/tui"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskify",
		Short:         "Taskify activates this device and drives the automation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(logger)
		},
	}

	root.AddCommand(newTUICommand(logger))
	root.AddCommand(newDesktopCommand(logger))
	root.AddCommand(newStatusCommand(logger))
	root.AddCommand(newVersionCommand())

	return root
}

func newTUICommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal client (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(logger)
		},
	}
}

func newDesktopCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "desktop",
		Short: "Run the client in a native desktop window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			deps, err := buildDeps(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer deps.Close()
			return desktop.Run(cfg, desktop.Options{
				Logger:  deps.logger,
				Backend: deps.client,
				Alerter: deps.alerter,
				Themes:  deps.themes,
			})
		},
	}
}

func runTUI(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Terminal output belongs to the UI; logs go to a file instead.
	fileLogger, closer, err := openFileLogger(cfg)
	if err != nil {
		logger.Warn("file logging unavailable, logs discarded", "error", err)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		defer closer.Close()
		logger = fileLogger
	}
	deps, err := buildDeps(context.Background(), cfg, logger, true)
	if err != nil {
		return err
	}
	defer deps.Close()
	return tui.Run(cfg, tui.Options{
		Logger:  deps.logger,
		Backend: deps.client,
		Alerter: deps.alerter,
		Themes:  deps.themes,
	})
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
