package activation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dwizi/taskify/internal/apiclient"
	"github.com/dwizi/taskify/internal/clienterr"
	"github.com/dwizi/taskify/internal/flow"
)

const (
	StillLoadingMessage    = "Still loading system information. Please wait a moment and try again."
	MissingSystemIDMessage = "System ID is not available. Activation cannot be submitted."
	activationFailedText   = "Invalid activation key"
	activationSuccessText  = "Device activated successfully!"
)

type LoadResult struct {
	epoch     uint64
	info      apiclient.SystemInfo
	infoErr   error
	status    apiclient.ActivationStatus
	statusErr error
}

type SubmitResult struct {
	epoch    uint64
	response apiclient.ActivationResponse
	err      error
}

// Enrollment collects an activation key and submits it. It never sends while
// its own form data or a previous submission is outstanding.
type Enrollment struct {
	api           EnrollmentAPI
	appName       string
	markActivated func() bool
	logger        *slog.Logger

	key        string
	systemID   string
	record     Record
	loading    bool
	loaded     bool
	submitting bool
	enrolled   bool
	message    string
	epoch      flow.Epoch
}

func NewEnrollment(api EnrollmentAPI, appName string, markActivated func() bool, logger *slog.Logger) *Enrollment {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Enrollment{api: api, appName: appName, markActivated: markActivated, logger: logger}
}

func (e *Enrollment) Key() string       { return e.key }
func (e *Enrollment) SystemID() string  { return e.systemID }
func (e *Enrollment) Record() Record    { return e.record }
func (e *Enrollment) Loading() bool     { return e.loading }
func (e *Enrollment) Submitting() bool  { return e.submitting }
func (e *Enrollment) Enrolled() bool    { return e.enrolled }
func (e *Enrollment) Message() string   { return e.message }
func (e *Enrollment) AppName() string   { return e.appName }
func (e *Enrollment) InputLocked() bool { return e.submitting || e.enrolled }

func (e *Enrollment) SetKey(key string) {
	if e.InputLocked() {
		return
	}
	e.key = key
}

// Load fetches system info and activation status concurrently to populate the form.
func (e *Enrollment) Load() flow.Task[LoadResult] {
	if e.loading || e.loaded || e.epoch.Closed() {
		return nil
	}
	e.loading = true
	epoch := e.epoch.Current()
	api := e.api
	return func(ctx context.Context) LoadResult {
		result := LoadResult{epoch: epoch}
		var group errgroup.Group
		group.Go(func() error {
			result.info, result.infoErr = api.SystemInfo(ctx)
			return result.infoErr
		})
		group.Go(func() error {
			result.status, result.statusErr = api.CheckActivation(ctx)
			return result.statusErr
		})
		_ = group.Wait()
		return result
	}
}

func (e *Enrollment) ApplyLoad(result LoadResult) flow.Notice {
	if !e.epoch.Valid(result.epoch) {
		return flow.Notice{}
	}
	e.loading = false
	e.loaded = true

	if result.statusErr == nil {
		e.record = RecordFromResponse(result.status)
	} else {
		e.logger.Warn("enrollment activation check failed", "error", result.statusErr)
		e.record = failureRecord(clienterr.Message(result.statusErr, FallbackMessage(StatusError, e.appName)))
	}
	if result.infoErr == nil {
		e.systemID = strings.TrimSpace(result.info.SystemID)
	} else {
		e.logger.Warn("system info fetch failed", "error", result.infoErr)
	}
	if e.systemID == "" {
		e.systemID = e.record.SystemID
	}

	e.message = e.record.Message
	if e.message == "" {
		e.message = FallbackMessage(e.record.Status, e.appName)
	}
	if result.infoErr != nil && result.statusErr != nil {
		return flow.Error("Could not load system information.")
	}
	return flow.Notice{}
}

// Submit sends the entered key. An empty key is ignored without any message.
func (e *Enrollment) Submit() (flow.Task[SubmitResult], flow.Notice, bool) {
	key := strings.TrimSpace(e.key)
	if key == "" || e.submitting || e.enrolled || e.epoch.Closed() {
		return nil, flow.Notice{}, false
	}
	if err := e.validate(); err != nil {
		e.logger.Debug("activation submit refused", "error", err)
		e.message = clienterr.Message(err, MissingSystemIDMessage)
		var invalid *clienterr.ValidationError
		if errors.As(err, &invalid) && invalid.Field == "system_info" {
			return nil, flow.Warn(e.message), false
		}
		return nil, flow.Error(e.message), false
	}

	e.submitting = true
	epoch := e.epoch.Current()
	api := e.api
	request := apiclient.ActivationRequest{SystemID: e.systemID, ActivationKey: key, AppName: e.appName}
	return func(ctx context.Context) SubmitResult {
		response, err := api.ActivateDevice(ctx, request)
		return SubmitResult{epoch: epoch, response: response, err: err}
	}, flow.Notice{}, true
}

// validate checks the form data a submission needs besides the key.
func (e *Enrollment) validate() error {
	if e.loading || !e.loaded {
		return clienterr.Validation("system_info", StillLoadingMessage)
	}
	if e.systemID == "" {
		return clienterr.Validation("system_id", MissingSystemIDMessage)
	}
	return nil
}

// ApplySubmit clears the entered key whatever the outcome.
func (e *Enrollment) ApplySubmit(result SubmitResult) flow.Notice {
	if !e.epoch.Valid(result.epoch) {
		return flow.Notice{}
	}
	e.submitting = false
	e.key = ""

	if result.err == nil && result.response.Success {
		e.enrolled = true
		e.message = firstNonEmpty(result.response.Message, activationSuccessText)
		e.logger.Info("activation key accepted", "system_id", e.systemID)
		if e.markActivated != nil {
			e.markActivated()
		}
		return flow.Success(e.message)
	}

	if result.err != nil {
		e.logger.Warn("activation submit failed", "error", result.err)
		e.message = clienterr.Message(result.err, "Activation failed. Please try again.")
	} else {
		e.message = firstNonEmpty(result.response.Message, activationFailedText)
	}
	return flow.Error(e.message)
}

func (e *Enrollment) Close() {
	e.epoch.Close()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
