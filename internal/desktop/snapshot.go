package desktop

import (
	"time"

	"github.com/dwizi/taskify/internal/activation"
	"github.com/dwizi/taskify/internal/automation"
)

// Snapshot is the whole client state the page renders from.
type Snapshot struct {
	View       string          `json:"view"`
	Theme      string          `json:"theme"`
	Notice     *NoticeView     `json:"notice,omitempty"`
	API        HealthView      `json:"api"`
	Status     StatusView      `json:"status"`
	Enrollment *EnrollmentView `json:"enrollment,omitempty"`
	Automation *AutomationView `json:"automation,omitempty"`
	GateText   string          `json:"gate_message,omitempty"`
}

type NoticeView struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

type HealthView struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusView backs the activation status popup.
type StatusView struct {
	Open        bool   `json:"open"`
	Busy        bool   `json:"busy"`
	Known       bool   `json:"known"`
	State       string `json:"state,omitempty"`
	SystemID    string `json:"system_id,omitempty"`
	RequiresKey bool   `json:"requires_key"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	CheckedAt   string `json:"checked_at,omitempty"`
}

type EnrollmentView struct {
	AppName    string `json:"app_name"`
	SystemID   string `json:"system_id"`
	Message    string `json:"message,omitempty"`
	Loading    bool   `json:"loading"`
	Submitting bool   `json:"submitting"`
	Enrolled   bool   `json:"enrolled"`
	Locked     bool   `json:"locked"`
}

type AutomationView struct {
	Phase          string   `json:"phase"`
	Session        string   `json:"session"`
	LoggedIn       bool     `json:"logged_in"`
	ReusedExisting bool     `json:"reused_existing"`
	CurrentURL     string   `json:"current_url,omitempty"`
	Message        string   `json:"message,omitempty"`
	Run            RunView  `json:"run"`
	CanStart       bool     `json:"can_start"`
	CanRun         bool     `json:"can_run"`
	CanClose       bool     `json:"can_close"`
	LoggingOut     bool     `json:"logging_out"`
	RecoverySteps  []string `json:"recovery_steps,omitempty"`
}

type RunView struct {
	State          string  `json:"state"`
	ProcessedCount *int    `json:"processed_count,omitempty"`
	StatusLabel    *string `json:"status_label,omitempty"`
	Message        string  `json:"message,omitempty"`
	ErrorDetail    *string `json:"error_detail,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

func (a *App) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		View:     viewName(a.gate.Subtree()),
		Theme:    string(a.themes.Theme()),
		API:      HealthView{Status: a.health.Status, Message: a.health.Message},
		Status:   a.statusViewLocked(),
		GateText: a.gate.Message(),
	}
	if !a.notice.Empty() {
		snapshot.Notice = &NoticeView{Level: string(a.notice.Level), Text: a.notice.Text}
	}
	if a.enrollment != nil {
		snapshot.Enrollment = &EnrollmentView{
			AppName:    a.enrollment.AppName(),
			SystemID:   a.enrollment.SystemID(),
			Message:    a.enrollment.Message(),
			Loading:    a.enrollment.Loading(),
			Submitting: a.enrollment.Submitting(),
			Enrolled:   a.enrollment.Enrolled(),
			Locked:     a.enrollment.InputLocked(),
		}
	}
	if a.controller != nil {
		snapshot.Automation = automationView(a.controller)
	}
	return snapshot
}

func (a *App) statusViewLocked() StatusView {
	view := StatusView{
		Open: a.monitor.Popup().IsOpen(),
		Busy: a.monitor.Busy(),
	}
	record, ok := a.monitor.Record()
	if !ok {
		return view
	}
	view.Known = true
	view.State = string(record.Status)
	view.SystemID = record.SystemID
	view.RequiresKey = record.RequiresKey
	view.Message = record.Message
	view.Error = a.monitor.Err()
	if checked := a.monitor.CheckedAt(); !checked.IsZero() {
		view.CheckedAt = checked.Format(time.RFC3339)
	}
	return view
}

func automationView(c *automation.Controller) *AutomationView {
	session := c.Session()
	run := c.LastRun()
	view := &AutomationView{
		Phase:          c.Phase().String(),
		Session:        session.State.String(),
		LoggedIn:       session.LoggedIn,
		ReusedExisting: session.ReusedExisting,
		CurrentURL:     session.CurrentURL,
		Message:        c.Message(),
		Run: RunView{
			State:          run.State.String(),
			ProcessedCount: run.ProcessedCount,
			StatusLabel:    run.StatusLabel,
			Message:        run.Message,
			ErrorDetail:    run.ErrorDetail,
			ElapsedSeconds: run.Elapsed().Seconds(),
		},
		CanStart:   c.CanStart(),
		CanRun:     c.CanRun(),
		CanClose:   c.CanClose(),
		LoggingOut: c.LoggingOut(),
	}
	if c.ShowRecovery() {
		view.RecoverySteps = automation.RecoverySteps
	}
	return view
}

func viewName(subtree activation.Subtree) string {
	switch subtree {
	case activation.SubtreeAutomation:
		return "automation"
	case activation.SubtreeEnrollment:
		return "enrollment"
	default:
		return "loading"
	}
}
