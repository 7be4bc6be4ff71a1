package activation

import (
	"context"
	"io"
	"log/slog"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/flow"
)

type GateState int

const (
	GateLoading GateState = iota
	GateActivated
	GateNeedsActivation
)

func (s GateState) String() string {
	switch s {
	case GateActivated:
		return "activated"
	case GateNeedsActivation:
		return "needs-activation"
	default:
		return "loading"
	}
}

// Subtree names what the client renders under the gate.
type Subtree int

const (
	SubtreeNone Subtree = iota
	SubtreeEnrollment
	SubtreeAutomation
)

type GateResult struct {
	epoch  uint64
	status apiclient.ActivationStatus
	err    error
}

// Gate decides whether the client shows enrollment or the automation
// controller. Failures resolve toward enrollment, never toward access.
type Gate struct {
	checker StatusChecker
	appName string
	logger  *slog.Logger

	state   GateState
	record  Record
	message string
	queried bool
	marked  bool
	epoch   flow.Epoch
}

func NewGate(checker StatusChecker, appName string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gate{checker: checker, appName: appName, logger: logger, state: GateLoading}
}

func (g *Gate) State() GateState { return g.state }
func (g *Gate) Record() Record   { return g.record }
func (g *Gate) Message() string  { return g.message }

func (g *Gate) Subtree() Subtree {
	switch g.state {
	case GateActivated:
		return SubtreeAutomation
	case GateNeedsActivation:
		return SubtreeEnrollment
	default:
		return SubtreeNone
	}
}

// Init issues the gate's single status query. Later calls return nil until Reload.
func (g *Gate) Init() flow.Task[GateResult] {
	if g.queried || g.epoch.Closed() {
		return nil
	}
	g.queried = true
	epoch := g.epoch.Current()
	checker := g.checker
	return func(ctx context.Context) GateResult {
		status, err := checker.CheckActivation(ctx)
		return GateResult{epoch: epoch, status: status, err: err}
	}
}

func (g *Gate) Apply(result GateResult) flow.Notice {
	if !g.epoch.Valid(result.epoch) || g.state != GateLoading {
		return flow.Notice{}
	}
	if result.err != nil {
		g.logger.Warn("activation check failed", "error", result.err)
		g.state = GateNeedsActivation
		g.message = clienterr.Message(result.err, FallbackMessage(StatusError, g.appName))
		g.record = failureRecord(g.message)
		return flow.Error("Could not verify activation. Please enter your activation key.")
	}

	g.record = RecordFromResponse(result.status)
	if result.status.DeviceActivation {
		g.state = GateActivated
		g.message = g.record.Message
		g.logger.Info("device activated", "system_id", g.record.SystemID)
		return flow.Notice{}
	}

	g.state = GateNeedsActivation
	g.message = g.record.Message
	if g.message == "" {
		g.message = FallbackMessage(g.record.Status, g.appName)
	}
	g.logger.Info("device needs activation", "status", string(g.record.Status))
	return flow.Notice{}
}

// MarkActivated is the one-shot signal from a successful enrollment. The
// server is not queried again.
func (g *Gate) MarkActivated() bool {
	if g.marked || g.state != GateNeedsActivation || g.epoch.Closed() {
		return false
	}
	g.marked = true
	g.state = GateActivated
	g.record.Status = StatusActive
	g.record.RequiresKey = false
	g.message = ""
	return true
}

// Reload returns the gate to loading and drops any outstanding query, as an
// application reload would.
func (g *Gate) Reload() flow.Task[GateResult] {
	if g.epoch.Closed() {
		return nil
	}
	g.epoch.Advance()
	g.state = GateLoading
	g.record = Record{}
	g.message = ""
	g.queried = false
	g.marked = false
	return g.Init()
}

func (g *Gate) Close() {
	g.epoch.Close()
}
