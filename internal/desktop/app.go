// Package desktop hosts the client inside a native window. The window's page
// calls the bound App methods; every method returns a fresh Snapshot and the
// same Snapshot is pushed as a "state" event when a shell is running.
package desktop

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/automation"
	"github.com/dwizi/taskify/internal/config"
	"github.com/dwizi/taskify/internal/flow"
	"github.com/dwizi/taskify/internal/hostbridge"
	"github.com/dwizi/taskify/internal/popup"
	"github.com/dwizi/taskify/internal/prefs"
)

const stateEvent = "state"

// Backend is everything the desktop client asks of the API.
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

// App owns the client components. Network work always runs with mu released;
// results are applied with mu held.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	backend Backend
	alerter automation.Alerter
	themes  *prefs.ThemeStore
	clock   clockwork.Clock

	mu       sync.Mutex
	ctx      context.Context
	bridge   hostbridge.Bridge
	shell    bool
	pointers *popup.Dispatcher

	gate       *activation.Gate
	monitor    *activation.Monitor
	enrollment *activation.Enrollment
	controller *automation.Controller

	notice flow.Notice
	health apiclient.Health
	// after holds work queued by bridge callbacks that fire while mu is held.
	after []func()

	unsubscribeTheme func()
}

func NewApp(cfg config.Config, opts Options) *App {
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
	a := &App{
		cfg:      cfg,
		logger:   logger,
		backend:  opts.Backend,
		alerter:  opts.Alerter,
		themes:   themes,
		clock:    clock,
		ctx:      context.Background(),
		pointers: popup.NewDispatcher(),
	}
	a.bridge = a.localBridge()
	a.gate = activation.NewGate(a.backend, cfg.AppName, logger)
	a.monitor = activation.NewMonitor(a.backend, a.pointers, clock, logger)
	a.unsubscribeTheme = themes.Subscribe(func(theme prefs.Theme) {
		a.logger.Debug("theme changed", "theme", string(theme))
		a.publish()
	})
	return a
}

// localBridge is used when no shell is running. Its callbacks only ever fire
// from inside an apply, so they queue work for after the lock is released.
func (a *App) localBridge() hostbridge.Bridge {
	return hostbridge.NewLocal(
		func() { a.after = append(a.after, func() { a.Init() }) },
		func() { a.logger.Info("quit requested without a desktop shell") },
		func(onConfirm func()) { a.after = append(a.after, onConfirm) },
	)
}

func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	a.bridge = hostbridge.Select(ctx, a.cfg.DisplayName, a.logger, a.localBridge())
	// Shell presence is decided here once; publish reuses it.
	_, a.shell = a.bridge.(*hostbridge.Shell)
	a.logger.Info("desktop shell started", "api_url", a.cfg.APIURL, "shell", a.shell)
}

func (a *App) shutdown(context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.teardownLocked()
	a.gate.Close()
	a.monitor.Close()
	a.unsubscribeTheme()
	a.logger.Info("desktop shell stopped")
}

// Init is called by the page on every load, so a window reload lands here and
// returns the client to its just-launched state.
func (a *App) Init() Snapshot {
	var gateTask flow.Task[activation.GateResult]
	var monitorTask flow.Task[activation.MonitorResult]
	a.locked(func() {
		a.teardownLocked()
		a.notice = flow.Notice{}
		gateTask = a.gate.Reload()
		monitorTask, _ = a.monitor.Refresh()
	})

	var wg sync.WaitGroup
	if monitorTask != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := monitorTask(context.Background())
			a.locked(func() { a.setNotice(a.monitor.Apply(result)) })
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.refreshHealth()
	}()

	if gateTask != nil {
		result := gateTask(context.Background())
		var mount []func()
		a.locked(func() {
			a.setNotice(a.gate.Apply(result))
			mount = a.syncSubtreeLocked()
		})
		runAll(mount)
	}
	wg.Wait()
	return a.publish()
}

func (a *App) State() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *App) SubmitKey(key string) Snapshot {
	var task flow.Task[activation.SubmitResult]
	var enrollment *activation.Enrollment
	a.locked(func() {
		if a.enrollment == nil {
			return
		}
		enrollment = a.enrollment
		enrollment.SetKey(key)
		var notice flow.Notice
		var ok bool
		task, notice, ok = enrollment.Submit()
		if !ok {
			task = nil
			a.setNotice(notice)
		}
	})
	if task == nil {
		return a.publish()
	}
	a.publish()

	result := task(context.Background())
	var mount []func()
	a.locked(func() {
		if a.enrollment != enrollment {
			return
		}
		a.setNotice(enrollment.ApplySubmit(result))
		mount = a.syncSubtreeLocked()
	})
	runAll(mount)
	return a.publish()
}

func (a *App) RefreshStatus() Snapshot {
	var task flow.Task[activation.MonitorResult]
	a.locked(func() {
		task, _ = a.monitor.Refresh()
	})
	if task == nil {
		return a.publish()
	}
	a.publish()
	result := task(context.Background())
	a.locked(func() { a.setNotice(a.monitor.Apply(result)) })
	return a.publish()
}

func (a *App) StartSession() Snapshot {
	var task flow.Task[automation.StartResult]
	var controller *automation.Controller
	a.locked(func() {
		if a.controller != nil {
			controller = a.controller
			task, _ = controller.Start()
		}
	})
	if task == nil {
		return a.publish()
	}
	a.publish()
	result := task(context.Background())
	a.locked(func() {
		if a.controller == controller {
			a.setNotice(controller.ApplyStart(result))
		}
	})
	return a.publish()
}

func (a *App) RunAutomation() Snapshot {
	var task flow.Task[automation.RunResult]
	var controller *automation.Controller
	a.locked(func() {
		if a.controller != nil {
			controller = a.controller
			task, _ = controller.Run()
		}
	})
	if task == nil {
		return a.publish()
	}
	a.publish()
	result := task(context.Background())
	a.locked(func() {
		if a.controller == controller {
			a.setNotice(controller.ApplyRun(result))
		}
	})
	return a.publish()
}

func (a *App) CloseSession() Snapshot {
	var task flow.Task[automation.CloseResult]
	var controller *automation.Controller
	a.locked(func() {
		if a.controller != nil {
			controller = a.controller
			task, _ = controller.CloseSession()
		}
	})
	if task == nil {
		return a.publish()
	}
	a.publish()
	result := task(context.Background())
	a.locked(func() {
		if a.controller == controller {
			a.setNotice(controller.ApplyClose(result))
		}
	})
	return a.publish()
}

// Logout asks for confirmation through the bridge. The logout itself runs
// once the operator agrees.
func (a *App) Logout() Snapshot {
	a.locked(func() {
		if a.controller == nil {
			return
		}
		a.controller.RequestLogout(a.confirmedLogout)
	})
	return a.publish()
}

// confirmedLogout runs with mu released: the shell calls it from its dialog
// goroutine and the local bridge queues it through after.
func (a *App) confirmedLogout() {
	var task flow.Task[automation.LogoutResult]
	var controller *automation.Controller
	a.locked(func() {
		if a.controller != nil {
			controller = a.controller
			task, _ = controller.Logout()
		}
	})
	if task == nil {
		return
	}
	a.publish()
	result := task(context.Background())
	a.locked(func() {
		if a.controller == controller {
			a.setNotice(controller.ApplyLogout(result))
		}
	})
	a.publish()
}

// ToggleTheme flips the theme. The theme subscription publishes the change;
// a failed save adds a warning on top.
func (a *App) ToggleTheme() Snapshot {
	if _, err := a.themes.Toggle(context.Background()); err != nil {
		a.locked(func() { a.setNotice(flow.Warn("Theme changed but could not be saved.")) })
		return a.publish()
	}
	return a.State()
}

// PopupRegions records where the page drew the status trigger and panel.
func (a *App) PopupRegions(trigger, panel popup.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.monitor.Popup().SetRegions(trigger, panel)
}

// PopupEvent feeds a named pointer event from the page into the popup.
func (a *App) PopupEvent(name string) Snapshot {
	a.locked(func() {
		if event, ok := parseEvent(name); ok {
			a.monitor.Popup().Fire(event)
		}
	})
	return a.publish()
}

// PointerDown reports a document-level press so an open popup can close when
// the press lands outside it.
func (a *App) PointerDown(x, y int) Snapshot {
	a.locked(func() {
		a.pointers.Dispatch(popup.Point{X: x, Y: y})
	})
	return a.publish()
}

func (a *App) DismissNotice() Snapshot {
	a.locked(func() { a.notice = flow.Notice{} })
	return a.publish()
}

// syncSubtreeLocked mounts whichever component the gate selects and returns
// the mount work to run once mu is released.
func (a *App) syncSubtreeLocked() []func() {
	switch a.gate.Subtree() {
	case activation.SubtreeEnrollment:
		if a.enrollment != nil {
			return nil
		}
		enrollment := activation.NewEnrollment(a.backend, a.cfg.AppName, a.gate.MarkActivated, a.logger)
		a.enrollment = enrollment
		load := enrollment.Load()
		return []func(){func() {
			result := load(context.Background())
			a.locked(func() {
				if a.enrollment == enrollment {
					a.setNotice(enrollment.ApplyLoad(result))
				}
			})
		}}

	case activation.SubtreeAutomation:
		if a.enrollment != nil && !a.enrollment.Submitting() {
			a.enrollment.Close()
			a.enrollment = nil
		}
		if a.controller != nil {
			return nil
		}
		controller := automation.NewController(a.backend, automation.Options{
			Alerter: a.alerter,
			Bridge:  a.bridge,
			Clock:   a.clock,
			Logger:  a.logger,
		})
		a.controller = controller
		mount := controller.Mount()
		if mount == nil {
			return nil
		}
		return []func(){func() {
			result := mount(context.Background())
			a.locked(func() {
				if a.controller == controller {
					a.setNotice(controller.ApplyStatus(result))
				}
			})
		}}
	}
	return nil
}

func (a *App) teardownLocked() {
	if a.enrollment != nil {
		a.enrollment.Close()
		a.enrollment = nil
	}
	if a.controller != nil {
		a.controller.Close()
		a.controller = nil
	}
}

func (a *App) refreshHealth() {
	if a.backend == nil {
		return
	}
	health, err := a.backend.Health(context.Background())
	a.locked(func() {
		if err != nil {
			a.logger.Warn("health check failed", "error", err)
			a.health = apiclient.Health{Status: "unreachable"}
			return
		}
		a.health = health
	})
}

func (a *App) setNotice(notice flow.Notice) {
	if !notice.Empty() {
		a.notice = notice
	}
}

// locked runs fn with mu held, then runs whatever fn queued.
func (a *App) locked(fn func()) {
	a.mu.Lock()
	fn()
	after := a.after
	a.after = nil
	a.mu.Unlock()
	runAll(after)
}

// publish snapshots the state and pushes it to the page when a shell runs.
func (a *App) publish() Snapshot {
	a.mu.Lock()
	snapshot := a.snapshotLocked()
	ctx, shell := a.ctx, a.shell
	a.mu.Unlock()
	if shell {
		runtime.EventsEmit(ctx, stateEvent, snapshot)
	}
	return snapshot
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func parseEvent(name string) (popup.Event, bool) {
	for _, event := range []popup.Event{
		popup.TriggerClick,
		popup.TriggerEnter,
		popup.TriggerLeave,
		popup.PanelEnter,
		popup.PanelLeave,
		popup.PointerDownOutside,
	} {
		if event.String() == name {
			return event, true
		}
	}
	return 0, false
}
