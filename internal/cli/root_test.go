package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/config"
)

func TestNewRootIncludesExpectedSubcommands(t *testing.T) {
	cmd := NewRoot(nil)
	for _, name := range []string{"tui", "desktop", "status", "version"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Fatalf("expected subcommand %q to exist: %v", name, err)
		}
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	cmd := NewRoot(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

type fakeStatusAPI struct {
	activation    apiclient.ActivationStatus
	activationErr error
	browser       apiclient.BrowserStatus
	healthErr     error
}

func (f fakeStatusAPI) CheckActivation(context.Context) (apiclient.ActivationStatus, error) {
	return f.activation, f.activationErr
}

func (f fakeStatusAPI) CheckBrowserStatus(context.Context) (apiclient.BrowserStatus, error) {
	return f.browser, nil
}

func (f fakeStatusAPI) Health(context.Context) (apiclient.Health, error) {
	if f.healthErr != nil {
		return apiclient.Health{}, f.healthErr
	}
	return apiclient.Health{Status: "healthy"}, nil
}

func TestCollectStatusActiveDevice(t *testing.T) {
	cfg := config.Config{APIURL: "http://api.test", AppName: "taskify"}
	report := collectStatus(context.Background(), cfg, fakeStatusAPI{
		activation: apiclient.ActivationStatus{ActivationStatus: "active", DeviceActivation: true, SystemID: "SYS-1"},
		browser:    apiclient.BrowserStatus{Success: true, BrowserOpen: true, LoggedIn: true, CurrentURL: "https://portal.example"},
	})
	if report.Activation != "active" || report.KeyNeeded {
		t.Fatalf("expected active device without key, got %+v", report)
	}
	if report.Session != "open" || !report.LoggedIn {
		t.Fatalf("expected open logged-in session, got %+v", report)
	}
	if report.Health != "healthy" {
		t.Fatalf("expected healthy api, got %s", report.Health)
	}

	var out bytes.Buffer
	if err := writeStatus(&out, report, false); err != nil {
		t.Fatalf("write status: %v", err)
	}
	for _, want := range []string{"Activation: active", "System ID: SYS-1", "Key required: no", "Logged in: yes", "Current URL: https://portal.example"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestCollectStatusFailuresRequireKey(t *testing.T) {
	cfg := config.Config{APIURL: "http://api.test", AppName: "taskify"}
	report := collectStatus(context.Background(), cfg, fakeStatusAPI{
		activationErr: errors.New("connection refused"),
		healthErr:     errors.New("connection refused"),
	})
	if report.Activation != "error" || !report.KeyNeeded {
		t.Fatalf("expected failed check to require a key, got %+v", report)
	}
	if report.Health != "unreachable" {
		t.Fatalf("expected unreachable api, got %s", report.Health)
	}
	if report.Message == "" {
		t.Fatal("expected a fallback message")
	}
	if report.Session != "closed" {
		t.Fatalf("expected closed session for unsuccessful status, got %s", report.Session)
	}
}

func TestWriteStatusJSON(t *testing.T) {
	var out bytes.Buffer
	if err := writeStatus(&out, statusReport{API: "http://api.test", Activation: "inactive", KeyNeeded: true}, true); err != nil {
		t.Fatalf("write status: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded["activation"] != "inactive" || decoded["requires_key"] != true {
		t.Fatalf("unexpected json report: %v", decoded)
	}
}

func TestAlertPlayersFollowConfig(t *testing.T) {
	var bell bytes.Buffer
	if got := alertPlayers(config.Config{AlertBell: true}, false, &bell); len(got) != 0 {
		t.Fatalf("expected no bell outside the terminal, got %d players", len(got))
	}
	if got := alertPlayers(config.Config{AlertBell: true}, true, &bell); len(got) != 1 {
		t.Fatalf("expected terminal bell player, got %d players", len(got))
	}
}

func TestBoundedTimeout(t *testing.T) {
	if boundedTimeout(0).Seconds() != 1 {
		t.Fatal("expected minimum of one second")
	}
	if boundedTimeout(1000).Seconds() != 300 {
		t.Fatal("expected maximum of 300 seconds")
	}
}
