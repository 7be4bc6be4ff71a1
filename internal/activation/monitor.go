package activation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/flow"
	"github.com/dwizi/taskify/internal/popup"
)

type MonitorResult struct {
	epoch  uint64
	status apiclient.ActivationStatus
	err    error
}

// Monitor re-checks activation on demand for the status popup. It keeps its
// own record and never feeds the Gate.
//
// Requests are not cancelled and results carry no sequence number: a slow
// response applied after a newer one overwrites it. The busy flag makes this
// rare but does not rule it out across a Close and a new Monitor.
type Monitor struct {
	checker StatusChecker
	clock   clockwork.Clock
	logger  *slog.Logger
	popup   *popup.Machine

	busy      bool
	record    Record
	hasRecord bool
	errText   string
	checkedAt time.Time
	epoch     flow.Epoch
}

func NewMonitor(checker StatusChecker, pointers popup.PointerSource, clock clockwork.Clock, logger *slog.Logger) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		checker: checker,
		clock:   clock,
		logger:  logger,
		popup:   popup.New(pointers),
	}
}

func (m *Monitor) Popup() *popup.Machine { return m.popup }
func (m *Monitor) Busy() bool            { return m.busy }
func (m *Monitor) Record() (Record, bool) {
	return m.record, m.hasRecord
}
func (m *Monitor) Err() string          { return m.errText }
func (m *Monitor) CheckedAt() time.Time { return m.checkedAt }

// Mount issues the monitor's own initial query.
func (m *Monitor) Mount() (flow.Task[MonitorResult], bool) {
	return m.Refresh()
}

// Refresh starts a status query unless one is already outstanding. Refused
// calls are dropped, not queued. Opening the popup never calls Refresh.
func (m *Monitor) Refresh() (flow.Task[MonitorResult], bool) {
	if m.busy || m.epoch.Closed() {
		return nil, false
	}
	m.busy = true
	epoch := m.epoch.Current()
	checker := m.checker
	return func(ctx context.Context) MonitorResult {
		status, err := checker.CheckActivation(ctx)
		return MonitorResult{epoch: epoch, status: status, err: err}
	}, true
}

func (m *Monitor) Apply(result MonitorResult) flow.Notice {
	if !m.epoch.Valid(result.epoch) {
		return flow.Notice{}
	}
	m.busy = false
	m.checkedAt = m.clock.Now()
	if result.err != nil {
		m.logger.Warn("activation status refresh failed", "error", result.err)
		m.errText = clienterr.Message(result.err, "Could not reach the activation service.")
		m.record = failureRecord(m.errText)
		m.hasRecord = true
		return flow.Error(m.errText)
	}
	m.errText = ""
	m.record = RecordFromResponse(result.status)
	m.hasRecord = true
	return flow.Notice{}
}

// Close tears the monitor down: outstanding results are dropped and the
// popup's outside listener is removed.
func (m *Monitor) Close() {
	m.epoch.Close()
	m.popup.Close()
	m.busy = false
}
