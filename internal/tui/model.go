package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/jonboulle/clockwork"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/automation"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/flow"
	"github.com/dwizi/taskify/internal/hostbridge"
	"github.com/dwizi/taskify/internal/popup"
	"github.com/dwizi/taskify/internal/prefs"
)

const toastTTL = 4 * time.Second

// Backend is everything the terminal client asks of the API.
type Backend interface {
	activation.EnrollmentAPI
	automation.SessionAPI
	Health(ctx context.Context) (apiclient.Health, error)
}

type Options struct {
	Logger  *slog.Logger
	Backend Backend
	Alerter automation.Alerter
	Themes  *prefs.ThemeStore
	Clock   clockwork.Clock
}

// outbox delivers messages into the running program from outside Update.
// Sends are asynchronous so callers inside Update never block the loop.
type outbox struct {
	mu      sync.Mutex
	program *tea.Program
	capture func(tea.Msg)
}

func (o *outbox) attach(program *tea.Program) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.program = program
}

func (o *outbox) send(msg tea.Msg) {
	o.mu.Lock()
	program, capture := o.program, o.capture
	o.mu.Unlock()
	if capture != nil {
		capture(msg)
		return
	}
	if program != nil {
		go program.Send(msg)
	}
}

type model struct {
	cfg     config.Config
	logger  *slog.Logger
	backend Backend
	alerter automation.Alerter
	themes  *prefs.ThemeStore
	clock   clockwork.Clock
	out     *outbox
	bridge  hostbridge.Bridge

	pointers   *popup.Dispatcher
	gate       *activation.Gate
	monitor    *activation.Monitor
	enrollment *activation.Enrollment
	controller *automation.Controller

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	keyInput textinput.Model

	width  int
	height int

	toast    flow.Notice
	toastSeq int

	health    apiclient.Health
	healthErr bool

	pendingConfirm func()
	quitting       bool
}

func Run(cfg config.Config, opts Options) error {
	m := newModel(cfg, opts)
	program := tea.NewProgram(m)
	m.out.attach(program)
	final, err := program.Run()
	if finished, ok := final.(model); ok {
		finished.teardown()
	} else {
		m.teardown()
	}
	return err
}

func newModel(cfg config.Config, opts Options) model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	themes := opts.Themes
	if themes == nil {
		themes = prefs.LoadTheme(context.Background(), nil, prefs.ThemeDark, logger)
	}

	out := &outbox{}
	local := hostbridge.NewLocal(
		func() { out.send(reloadMsg{}) },
		func() { out.send(quitMsg{}) },
		func(onConfirm func()) { out.send(confirmPromptMsg{onConfirm: onConfirm}) },
	)
	bridge := hostbridge.Select(context.Background(), cfg.DisplayName, logger, local)

	pointers := popup.NewDispatcher()

	keyInput := textinput.New()
	keyInput.Placeholder = "XXXX-XXXX-XXXX-XXXX"
	keyInput.Prompt = "key › "
	keyInput.CharLimit = 64
	keyInput.SetWidth(36)

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := model{
		cfg:      cfg,
		logger:   logger,
		backend:  opts.Backend,
		alerter:  opts.Alerter,
		themes:   themes,
		clock:    clock,
		out:      out,
		bridge:   bridge,
		pointers: pointers,
		gate:     activation.NewGate(opts.Backend, cfg.AppName, logger),
		monitor:  activation.NewMonitor(opts.Backend, pointers, clock, logger),
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  spin,
		keyInput: keyInput,
		width:    100,
		height:   30,
	}
	m.resizeWidgets()
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.healthCmd()}
	cmds = append(cmds, taskCmd(m.gate.Init(), func(r activation.GateResult) tea.Msg { return gateResultMsg{r} }))
	if task, ok := m.monitor.Mount(); ok {
		cmds = append(cmds, taskCmd(task, func(r activation.MonitorResult) tea.Msg { return monitorResultMsg{r} }))
	}
	return tea.Batch(cmds...)
}

func (m *model) resizeWidgets() {
	layout := computeLayout(m.width, m.height, m.monitor.Popup().IsOpen())
	m.monitor.Popup().SetRegions(layout.Trigger, layout.Panel)
	m.keyInput.SetWidth(minInt(48, maxInt(16, layout.MainWidth-16)))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeWidgets()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd

	case gateResultMsg:
		notice := m.gate.Apply(typed.result)
		mount := m.syncSubtree()
		cmd := tea.Batch(m.notify(notice), mount)
		return m, cmd

	case monitorResultMsg:
		cmd := m.notify(m.monitor.Apply(typed.result))
		return m, cmd

	case enrollLoadMsg:
		if m.enrollment == nil {
			return m, nil
		}
		cmd := m.notify(m.enrollment.ApplyLoad(typed.result))
		return m, cmd

	case enrollSubmitMsg:
		if m.enrollment == nil {
			return m, nil
		}
		notice := m.enrollment.ApplySubmit(typed.result)
		m.keyInput.SetValue(m.enrollment.Key())
		mount := m.syncSubtree()
		cmd := tea.Batch(m.notify(notice), mount)
		return m, cmd

	case sessionStatusMsg:
		if m.controller == nil {
			return m, nil
		}
		cmd := m.notify(m.controller.ApplyStatus(typed.result))
		return m, cmd

	case sessionStartMsg:
		if m.controller == nil {
			return m, nil
		}
		cmd := m.notify(m.controller.ApplyStart(typed.result))
		return m, cmd

	case runResultMsg:
		if m.controller == nil {
			return m, nil
		}
		cmd := m.notify(m.controller.ApplyRun(typed.result))
		return m, cmd

	case sessionCloseMsg:
		if m.controller == nil {
			return m, nil
		}
		cmd := m.notify(m.controller.ApplyClose(typed.result))
		return m, cmd

	case logoutResultMsg:
		if m.controller == nil {
			return m, nil
		}
		cmd := m.notify(m.controller.ApplyLogout(typed.result))
		return m, cmd

	case healthMsg:
		m.health = typed.health
		m.healthErr = typed.err != nil
		return m, nil

	case toastExpiredMsg:
		if typed.seq == m.toastSeq {
			m.toast = flow.Notice{}
		}
		return m, nil

	case confirmPromptMsg:
		m.pendingConfirm = typed.onConfirm
		return m, nil

	case logoutConfirmedMsg:
		if m.controller == nil {
			return m, nil
		}
		task, ok := m.controller.Logout()
		if !ok {
			return m, nil
		}
		return m, taskCmd(task, func(r automation.LogoutResult) tea.Msg { return logoutResultMsg{r} })

	case reloadMsg:
		cmd := m.reload()
		return m, cmd

	case quitMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.MouseMotionMsg:
		mouse := typed.Mouse()
		m.monitor.Popup().Move(popup.Point{X: mouse.X, Y: mouse.Y})
		m.resizeWidgets()
		return m, nil

	case tea.MouseClickMsg:
		return m.handleClick(typed.Mouse())

	case tea.KeyPressMsg:
		return m.handleKey(typed)
	}

	if m.typing() {
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleClick(mouse tea.Mouse) (tea.Model, tea.Cmd) {
	if mouse.Button != tea.MouseLeft {
		return m, nil
	}
	point := popup.Point{X: mouse.X, Y: mouse.Y}
	wasOpen := m.monitor.Popup().IsOpen()
	m.pointers.Dispatch(point)
	m.monitor.Popup().Click(point)
	m.resizeWidgets()

	layout := computeLayout(m.width, m.height, true)
	if wasOpen && m.monitor.Popup().IsOpen() && layout.Panel.Contains(point) && point.Y == layout.RefreshRow {
		return m, m.refreshStatusCmd()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.pendingConfirm != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			onConfirm := m.pendingConfirm
			m.pendingConfirm = nil
			onConfirm()
		case key.Matches(msg, m.keys.Decline):
			m.pendingConfirm = nil
		}
		return m, nil
	}

	if m.typing() {
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.submitKey()
		case "f2":
			return m.togglePopup()
		case "f5":
			return m, m.refreshStatusCmd()
		case "ctrl+t":
			cmd := m.toggleTheme()
			return m, cmd
		}
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		if m.enrollment != nil {
			m.enrollment.SetKey(m.keyInput.Value())
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.ToggleTheme):
		cmd := m.toggleTheme()
		return m, cmd
	case key.Matches(msg, m.keys.StatusPopup):
		return m.togglePopup()
	case key.Matches(msg, m.keys.StatusRefresh):
		return m, m.refreshStatusCmd()
	}

	if m.controller == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.StartSession):
		task, ok := m.controller.Start()
		if !ok {
			return m, nil
		}
		return m, taskCmd(task, func(r automation.StartResult) tea.Msg { return sessionStartMsg{r} })
	case key.Matches(msg, m.keys.RunBatch):
		task, ok := m.controller.Run()
		if !ok {
			return m, nil
		}
		return m, taskCmd(task, func(r automation.RunResult) tea.Msg { return runResultMsg{r} })
	case key.Matches(msg, m.keys.CloseSession):
		task, ok := m.controller.CloseSession()
		if !ok {
			return m, nil
		}
		return m, taskCmd(task, func(r automation.CloseResult) tea.Msg { return sessionCloseMsg{r} })
	case key.Matches(msg, m.keys.Logout):
		m.controller.RequestLogout(func() { m.out.send(logoutConfirmedMsg{}) })
		return m, nil
	}
	return m, nil
}

func (m model) submitKey() (tea.Model, tea.Cmd) {
	if m.enrollment == nil {
		return m, nil
	}
	m.enrollment.SetKey(m.keyInput.Value())
	task, notice, ok := m.enrollment.Submit()
	if !ok {
		cmd := m.notify(notice)
		return m, cmd
	}
	return m, taskCmd(task, func(r activation.SubmitResult) tea.Msg { return enrollSubmitMsg{r} })
}

func (m model) togglePopup() (tea.Model, tea.Cmd) {
	machine := m.monitor.Popup()
	if machine.IsOpen() {
		machine.Fire(popup.PointerDownOutside)
	} else {
		machine.Fire(popup.TriggerClick)
	}
	m.resizeWidgets()
	return m, nil
}

func (m model) refreshStatusCmd() tea.Cmd {
	task, ok := m.monitor.Refresh()
	if !ok {
		return nil
	}
	return taskCmd(task, func(r activation.MonitorResult) tea.Msg { return monitorResultMsg{r} })
}

func (m *model) toggleTheme() tea.Cmd {
	theme, err := m.themes.Toggle(context.Background())
	if err != nil {
		return m.notify(flow.Warn("Theme changed but could not be saved."))
	}
	m.logger.Debug("theme toggled", "theme", string(theme))
	return nil
}

// syncSubtree mounts whichever component the gate currently selects.
func (m *model) syncSubtree() tea.Cmd {
	switch m.gate.Subtree() {
	case activation.SubtreeEnrollment:
		if m.enrollment != nil {
			return nil
		}
		m.enrollment = activation.NewEnrollment(m.backend, m.cfg.AppName, m.gate.MarkActivated, m.logger)
		m.keyInput.Reset()
		focus := m.keyInput.Focus()
		load := taskCmd(m.enrollment.Load(), func(r activation.LoadResult) tea.Msg { return enrollLoadMsg{r} })
		return tea.Batch(load, focus)

	case activation.SubtreeAutomation:
		var cmds []tea.Cmd
		if m.enrollment != nil && !m.enrollment.Submitting() {
			m.enrollment.Close()
			m.enrollment = nil
			m.keyInput.Blur()
		}
		if m.controller == nil {
			m.controller = automation.NewController(m.backend, automation.Options{
				Alerter: m.alerter,
				Bridge:  m.bridge,
				Clock:   m.clock,
				Logger:  m.logger,
			})
			cmds = append(cmds, taskCmd(m.controller.Mount(), func(r automation.StatusResult) tea.Msg { return sessionStatusMsg{r} }))
		}
		return tea.Batch(cmds...)
	}
	return nil
}

// reload returns the client to its just-launched state and asks the gate again.
func (m *model) reload() tea.Cmd {
	m.logger.Info("reloading client")
	if m.enrollment != nil {
		m.enrollment.Close()
		m.enrollment = nil
	}
	if m.controller != nil {
		m.controller.Close()
		m.controller = nil
	}
	m.pendingConfirm = nil
	m.keyInput.Reset()
	m.keyInput.Blur()
	return tea.Batch(
		taskCmd(m.gate.Reload(), func(r activation.GateResult) tea.Msg { return gateResultMsg{r} }),
		m.refreshStatusCmd(),
		m.healthCmd(),
	)
}

func (m model) teardown() {
	m.gate.Close()
	m.monitor.Close()
	if m.enrollment != nil {
		m.enrollment.Close()
	}
	if m.controller != nil {
		m.controller.Close()
	}
}

func (m *model) notify(notice flow.Notice) tea.Cmd {
	if notice.Empty() {
		return nil
	}
	m.toast = notice
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// typing reports whether printable keys belong to the activation key field.
func (m model) typing() bool {
	return m.enrollment != nil && !m.enrollment.InputLocked() && m.gate.Subtree() == activation.SubtreeEnrollment
}

func (m model) healthCmd() tea.Cmd {
	backend := m.backend
	if backend == nil {
		return nil
	}
	return func() tea.Msg {
		health, err := backend.Health(context.Background())
		return healthMsg{health: health, err: err}
	}
}

func taskCmd[T any](task flow.Task[T], wrap func(T) tea.Msg) tea.Cmd {
	if task == nil {
		return nil
	}
	return func() tea.Msg {
		return wrap(task(context.Background()))
	}
}

func fallbackText(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
