package main

import (
	"context"
	"os"

	"github.com/dwizi/taskify/internal/cli"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, config.FromEnv().LogLevel)
	if err := cli.NewRoot(logger).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
