package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/config"
)

// statusAPI is the read-only subset the status report needs.
type statusAPI interface {
	CheckActivation(ctx context.Context) (apiclient.ActivationStatus, error)
	CheckBrowserStatus(ctx context.Context) (apiclient.BrowserStatus, error)
	Health(ctx context.Context) (apiclient.Health, error)
}

type statusReport struct {
	API        string `json:"api"`
	Health     string `json:"health"`
	Activation string `json:"activation"`
	SystemID   string `json:"system_id,omitempty"`
	KeyNeeded  bool   `json:"requires_key"`
	Message    string `json:"message,omitempty"`
	Session    string `json:"session"`
	LoggedIn   bool   `json:"logged_in"`
	CurrentURL string `json:"current_url,omitempty"`
}

func newStatusCommand(logger *slog.Logger) *cobra.Command {
	var (
		timeoutSec int
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print activation, session and API health once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), boundedTimeout(timeoutSec))
			defer cancel()

			report := collectStatus(ctx, cfg, apiclient.New(cfg, logger))
			return writeStatus(cmd.OutOrStdout(), report, asJSON)
		},
	}
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 15, "overall timeout in seconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// collectStatus runs the three checks concurrently. Each failure is folded
// into the report instead of aborting it.
func collectStatus(ctx context.Context, cfg config.Config, api statusAPI) statusReport {
	report := statusReport{API: cfg.APIURL}
	var group errgroup.Group

	group.Go(func() error {
		health, err := api.Health(ctx)
		if err != nil {
			report.Health = "unreachable"
			return nil
		}
		report.Health = health.Status
		return nil
	})
	group.Go(func() error {
		status, err := api.CheckActivation(ctx)
		if err != nil {
			report.Activation = string(activation.StatusError)
			report.KeyNeeded = true
			report.Message = clienterr.Message(err, activation.FallbackMessage(activation.StatusError, cfg.AppName))
			return nil
		}
		record := activation.RecordFromResponse(status)
		report.Activation = string(record.Status)
		report.SystemID = record.SystemID
		report.KeyNeeded = record.RequiresKey
		report.Message = record.Message
		if report.Message == "" && !record.Active() {
			report.Message = activation.FallbackMessage(record.Status, cfg.AppName)
		}
		return nil
	})
	group.Go(func() error {
		browser, err := api.CheckBrowserStatus(ctx)
		if err != nil || !browser.Success {
			report.Session = "unknown"
			return nil
		}
		report.Session = "closed"
		if browser.BrowserOpen {
			report.Session = "open"
		}
		report.LoggedIn = browser.LoggedIn
		report.CurrentURL = browser.CurrentURL
		return nil
	})
	_ = group.Wait()
	return report
}

func writeStatus(w io.Writer, report statusReport, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	lines := []string{
		fmt.Sprintf("API: %s (%s)", report.API, report.Health),
		fmt.Sprintf("Activation: %s", report.Activation),
		fmt.Sprintf("System ID: %s", valueOr(report.SystemID, "unknown")),
		fmt.Sprintf("Key required: %s", yesNo(report.KeyNeeded)),
	}
	if report.Message != "" {
		lines = append(lines, fmt.Sprintf("Message: %s", report.Message))
	}
	lines = append(lines, fmt.Sprintf("Session: %s", report.Session))
	if report.Session == "open" {
		lines = append(lines, fmt.Sprintf("Logged in: %s", yesNo(report.LoggedIn)))
	}
	if report.CurrentURL != "" {
		lines = append(lines, fmt.Sprintf("Current URL: %s", report.CurrentURL))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func boundedTimeout(timeoutSec int) time.Duration {
	if timeoutSec < 1 {
		timeoutSec = 1
	}
	if timeoutSec > 300 {
		timeoutSec = 300
	}
	return time.Duration(timeoutSec) * time.Second
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
