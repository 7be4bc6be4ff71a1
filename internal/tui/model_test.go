package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/jonboulle/clockwork"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/popup"
	"github.com/dwizi/taskify/internal/prefs"
)

type fakeBackend struct {
	mu sync.Mutex

	activation    apiclient.ActivationStatus
	activationErr error
	systemID      string
	activate      apiclient.ActivationResponse
	browser       apiclient.BrowserStatus
	start         apiclient.StartBrowserResponse
	run           apiclient.RunAutomationResponse

	activateCalls int
	runCalls      int
	logoutCalls   int
}

func (f *fakeBackend) CheckActivation(context.Context) (apiclient.ActivationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activation, f.activationErr
}

func (f *fakeBackend) SystemInfo(context.Context) (apiclient.SystemInfo, error) {
	return apiclient.SystemInfo{SystemID: f.systemID}, nil
}

func (f *fakeBackend) ActivateDevice(context.Context, apiclient.ActivationRequest) (apiclient.ActivationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activateCalls++
	return f.activate, nil
}

func (f *fakeBackend) CheckBrowserStatus(context.Context) (apiclient.BrowserStatus, error) {
	return f.browser, nil
}

func (f *fakeBackend) StartBrowser(context.Context) (apiclient.StartBrowserResponse, error) {
	return f.start, nil
}

func (f *fakeBackend) RunAutomation(context.Context) (apiclient.RunAutomationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	return f.run, nil
}

func (f *fakeBackend) CloseBrowser(context.Context) (apiclient.CloseBrowserResponse, error) {
	return apiclient.CloseBrowserResponse{Success: true}, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return nil
}

func (f *fakeBackend) Health(context.Context) (apiclient.Health, error) {
	return apiclient.Health{Status: "healthy"}, nil
}

type countingAlerter struct{ count int }

func (a *countingAlerter) Alert() { a.count++ }

func keyPress(code rune, text string, mods ...tea.KeyMod) tea.KeyPressMsg {
	var mod tea.KeyMod
	for _, item := range mods {
		mod |= item
	}
	return tea.KeyPressMsg(tea.Key{
		Code: code,
		Text: text,
		Mod:  mod,
	})
}

func keyRune(r rune) tea.KeyPressMsg {
	return keyPress(r, string(r))
}

func newTestModel(backend *fakeBackend, alerter *countingAlerter) model {
	cfg := config.Config{
		Environment: "test",
		APIURL:      "http://api.test",
		AppName:     "taskify",
		DisplayName: "Taskify",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := newModel(cfg, Options{
		Logger:  logger,
		Backend: backend,
		Alerter: alerter,
		Themes:  prefs.LoadTheme(context.Background(), nil, prefs.ThemeDark, logger),
		Clock:   clockwork.NewFakeClock(),
	})
	m.width = 140
	m.height = 40
	m.resizeWidgets()
	return m
}

// runCmd executes cmd, giving up on timer-driven commands.
func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}

// pump feeds cmd results back into the model until nothing is left to do.
func pump(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 64; steps++ {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runCmd(next)
		if !ok || msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			queue = append(queue, batch...)
			continue
		}
		updated, follow := m.Update(msg)
		m = updated.(model)
		queue = append(queue, follow)
	}
	return m
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	updated, cmd := m.Update(msg)
	return pump(t, updated.(model), cmd)
}

func resolveGate(t *testing.T, m model) model {
	t.Helper()
	task := m.gate.Init()
	if task == nil {
		t.Fatal("expected gate query")
	}
	return send(t, m, gateResultMsg{task(context.Background())})
}

func readyModel(t *testing.T, backend *fakeBackend, alerter *countingAlerter) model {
	t.Helper()
	backend.activation = apiclient.ActivationStatus{Success: true, DeviceActivation: true, ActivationStatus: "active"}
	backend.browser = apiclient.BrowserStatus{Success: true, BrowserOpen: true, LoggedIn: true}
	m := resolveGate(t, newTestModel(backend, alerter))
	if m.controller == nil {
		t.Fatal("expected automation controller")
	}
	return m
}

func TestActivatedDeviceRendersAutomation(t *testing.T) {
	m := readyModel(t, &fakeBackend{}, &countingAlerter{})
	if m.enrollment != nil {
		t.Fatal("enrollment must not mount for an activated device")
	}
	view := m.renderView()
	if !strings.Contains(view, "Automation") {
		t.Fatalf("expected automation view, got:\n%s", view)
	}
	if strings.Contains(view, "Activation key") {
		t.Fatal("enrollment form rendered for an activated device")
	}
}

func TestActivationFailureRendersEnrollment(t *testing.T) {
	backend := &fakeBackend{activationErr: clienterr.Transport("check activation", errors.New("connection refused")), systemID: "SYS-9"}
	m := resolveGate(t, newTestModel(backend, &countingAlerter{}))

	if m.gate.State() != activation.GateNeedsActivation {
		t.Fatalf("expected needs-activation, got %s", m.gate.State())
	}
	if m.enrollment == nil || m.controller != nil {
		t.Fatal("expected enrollment only")
	}
	view := m.renderView()
	if !strings.Contains(view, "Activation key") || !strings.Contains(view, "SYS-9") {
		t.Fatalf("expected enrollment form with system id, got:\n%s", view)
	}
}

func TestEmptyKeySubmitIssuesNoCall(t *testing.T) {
	backend := &fakeBackend{activation: apiclient.ActivationStatus{ActivationStatus: "not_activated"}, systemID: "SYS-1"}
	m := resolveGate(t, newTestModel(backend, &countingAlerter{}))

	m = send(t, m, keyPress(tea.KeyEnter, ""))
	if backend.activateCalls != 0 {
		t.Fatalf("expected no activation call, got %d", backend.activateCalls)
	}
	if !m.toast.Empty() {
		t.Fatalf("expected no notification, got %q", m.toast.Text)
	}
}

func TestSubmitKeyActivatesAndSwitches(t *testing.T) {
	backend := &fakeBackend{
		activation: apiclient.ActivationStatus{ActivationStatus: "not_activated"},
		systemID:   "SYS-1",
		activate:   apiclient.ActivationResponse{Success: true},
	}
	m := resolveGate(t, newTestModel(backend, &countingAlerter{}))

	for _, r := range "KEY-42" {
		m = send(t, m, keyRune(r))
	}
	if m.keyInput.Value() != "KEY-42" {
		t.Fatalf("expected typed key, got %q", m.keyInput.Value())
	}
	m = send(t, m, keyPress(tea.KeyEnter, ""))

	if backend.activateCalls != 1 {
		t.Fatalf("expected one activation call, got %d", backend.activateCalls)
	}
	if m.gate.Subtree() != activation.SubtreeAutomation || m.controller == nil {
		t.Fatal("expected automation after successful activation")
	}
	if m.enrollment != nil {
		t.Fatal("expected enrollment to unmount")
	}
	if m.keyInput.Value() != "" {
		t.Fatalf("expected key cleared, got %q", m.keyInput.Value())
	}
}

func TestPopupOpensOnTriggerClickAndClosesOutside(t *testing.T) {
	m := readyModel(t, &fakeBackend{}, &countingAlerter{})
	layout := computeLayout(m.width, m.height, false)

	m = send(t, m, tea.MouseClickMsg{X: layout.Trigger.X + 2, Y: layout.Trigger.Y, Button: tea.MouseLeft})
	if !m.monitor.Popup().IsOpen() {
		t.Fatal("expected popup open after trigger click")
	}
	if m.pointers.Len() != 1 {
		t.Fatalf("expected one outside listener, got %d", m.pointers.Len())
	}

	m = send(t, m, tea.MouseClickMsg{X: 2, Y: 10, Button: tea.MouseLeft})
	if m.monitor.Popup().IsOpen() {
		t.Fatal("expected popup closed after outside click")
	}
	if m.pointers.Len() != 0 {
		t.Fatalf("expected listener removed, got %d", m.pointers.Len())
	}
}

func TestPopupStaysOpenWhilePointerOverPanel(t *testing.T) {
	m := readyModel(t, &fakeBackend{}, &countingAlerter{})
	layout := computeLayout(m.width, m.height, true)

	m = send(t, m, tea.MouseMotionMsg{X: layout.Trigger.X + 1, Y: layout.Trigger.Y})
	if !m.monitor.Popup().IsOpen() {
		t.Fatal("expected popup open on hover")
	}
	m = send(t, m, tea.MouseMotionMsg{X: layout.Panel.X + 3, Y: layout.Panel.Y + 2})
	if !m.monitor.Popup().IsOpen() {
		t.Fatal("expected popup to stay open over the panel")
	}
	m = send(t, m, tea.MouseMotionMsg{X: 1, Y: layout.Panel.Y + 2})
	if m.monitor.Popup().State() != popup.Closed {
		t.Fatal("expected popup closed after leaving both regions")
	}
}

func TestPointerWalksFromTriggerToRefreshControl(t *testing.T) {
	backend := &fakeBackend{}
	m := readyModel(t, backend, &countingAlerter{})
	layout := computeLayout(m.width, m.height, true)
	x := layout.Trigger.X + 1

	m = send(t, m, tea.MouseMotionMsg{X: x, Y: layout.Trigger.Y})
	m = send(t, m, tea.MouseClickMsg{X: x, Y: layout.Trigger.Y, Button: tea.MouseLeft})
	if !m.monitor.Popup().IsOpen() {
		t.Fatal("expected popup open after hover and click")
	}
	for y := layout.Trigger.Y + 1; y <= layout.RefreshRow; y++ {
		m = send(t, m, tea.MouseMotionMsg{X: x, Y: y})
		if !m.monitor.Popup().IsOpen() {
			t.Fatalf("popup closed at row %d on the way to row %d", y, layout.RefreshRow)
		}
	}

	backend.activation = apiclient.ActivationStatus{ActivationStatus: "invalid"}
	m = send(t, m, tea.MouseClickMsg{X: x, Y: layout.RefreshRow, Button: tea.MouseLeft})
	record, ok := m.monitor.Record()
	if !ok || record.Status != activation.StatusInvalid {
		t.Fatalf("expected refreshed invalid status, got %+v", record)
	}
}

func TestPopupRefreshControl(t *testing.T) {
	backend := &fakeBackend{}
	m := readyModel(t, backend, &countingAlerter{})
	layout := computeLayout(m.width, m.height, true)

	m = send(t, m, tea.MouseClickMsg{X: layout.Trigger.X + 1, Y: layout.Trigger.Y, Button: tea.MouseLeft})
	backend.activation = apiclient.ActivationStatus{ActivationStatus: "invalid"}
	m = send(t, m, tea.MouseClickMsg{X: layout.Panel.X + 3, Y: layout.RefreshRow, Button: tea.MouseLeft})

	record, ok := m.monitor.Record()
	if !ok || record.Status != activation.StatusInvalid {
		t.Fatalf("expected refreshed invalid status, got %+v", record)
	}
	if m.gate.State() != activation.GateActivated {
		t.Fatal("monitor refresh must not affect the gate")
	}
}

func TestRunFailureShowsRecoveryChecklist(t *testing.T) {
	backend := &fakeBackend{run: apiclient.RunAutomationResponse{Success: false, Message: "Automation failed", Error: "selector timeout"}}
	alerter := &countingAlerter{}
	m := readyModel(t, backend, alerter)

	m = send(t, m, keyRune('r'))
	if alerter.count != 1 {
		t.Fatalf("expected one alert, got %d", alerter.count)
	}
	view := m.renderView()
	if !strings.Contains(view, "Before retrying") {
		t.Fatalf("expected recovery checklist, got:\n%s", view)
	}

	backend.run = apiclient.RunAutomationResponse{Success: true}
	m = send(t, m, keyRune('r'))
	if backend.runCalls != 2 {
		t.Fatalf("expected retry straight from failure, got %d calls", backend.runCalls)
	}
	if strings.Contains(m.renderView(), "Before retrying") {
		t.Fatal("checklist should disappear after a successful run")
	}
}

func TestThemeToggle(t *testing.T) {
	m := readyModel(t, &fakeBackend{}, &countingAlerter{})
	m = send(t, m, keyRune('t'))
	if m.themes.Theme() != prefs.ThemeLight {
		t.Fatalf("expected light theme, got %s", m.themes.Theme())
	}
}

func TestLogoutConfirmationFlow(t *testing.T) {
	backend := &fakeBackend{}
	m := readyModel(t, backend, &countingAlerter{})
	var outbound []tea.Msg
	m.out.capture = func(msg tea.Msg) { outbound = append(outbound, msg) }

	m = send(t, m, keyRune('l'))
	if len(outbound) != 1 {
		t.Fatalf("expected confirmation prompt, got %d messages", len(outbound))
	}
	m = send(t, m, outbound[0])
	if m.pendingConfirm == nil {
		t.Fatal("expected pending confirmation")
	}
	if !strings.Contains(m.renderView(), "Log out") {
		t.Fatal("expected confirmation prompt in view")
	}

	m = send(t, m, keyRune('y'))
	if len(outbound) != 2 {
		t.Fatalf("expected confirmed message, got %d messages", len(outbound))
	}
	m = send(t, m, outbound[1])
	if backend.logoutCalls != 1 {
		t.Fatalf("expected one logout call, got %d", backend.logoutCalls)
	}
	if len(outbound) != 3 {
		t.Fatalf("expected reload request, got %d messages", len(outbound))
	}
	if _, ok := outbound[2].(reloadMsg); !ok {
		t.Fatalf("expected reload message, got %T", outbound[2])
	}

	backend.activation = apiclient.ActivationStatus{ActivationStatus: "not_activated"}
	m = send(t, m, outbound[2])
	if m.gate.Subtree() != activation.SubtreeEnrollment {
		t.Fatalf("expected enrollment after reload, got %s", m.gate.State())
	}
	if m.controller != nil {
		t.Fatal("expected controller torn down on reload")
	}
}

func TestWindowResizeUpdatesDimensions(t *testing.T) {
	m := newTestModel(&fakeBackend{}, &countingAlerter{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 52})
	typed := updated.(model)
	if typed.width != 160 || typed.height != 52 {
		t.Fatalf("expected dimensions 160x52, got %dx%d", typed.width, typed.height)
	}
	trigger, _ := typed.monitor.Popup().Regions()
	if trigger.X != 160-1-triggerWidth {
		t.Fatalf("expected trigger region to follow width, got x=%d", trigger.X)
	}
}
