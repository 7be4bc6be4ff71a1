package activation

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwizi/taskify/internal/apiclient"
)

type Status string

const (
	StatusUnknown      Status = "unknown"
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusInvalid      Status = "invalid"
	StatusNotActivated Status = "not_activated"
	StatusError        Status = "error"
)

func ParseStatus(value string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusActive:
		return StatusActive
	case StatusInactive:
		return StatusInactive
	case StatusInvalid:
		return StatusInvalid
	case StatusNotActivated:
		return StatusNotActivated
	case StatusError:
		return StatusError
	default:
		return StatusUnknown
	}
}

// Record is the client's view of the latest activation answer. It is rebuilt
// from every response and never persisted.
type Record struct {
	Status      Status
	SystemID    string
	RequiresKey bool
	Message     string
}

func (r Record) Active() bool {
	return r.Status == StatusActive
}

// RecordFromResponse derives a Record. A key is required whenever the status is
// not active, whatever the server said.
func RecordFromResponse(response apiclient.ActivationStatus) Record {
	status := ParseStatus(response.ActivationStatus)
	if response.DeviceActivation && status == StatusUnknown {
		status = StatusActive
	}
	return Record{
		Status:      status,
		SystemID:    strings.TrimSpace(response.SystemID),
		RequiresKey: status != StatusActive || response.RequiresActivationKey,
		Message:     strings.TrimSpace(response.Message),
	}
}

func failureRecord(message string) Record {
	return Record{Status: StatusError, RequiresKey: true, Message: message}
}

// FallbackMessage is shown when the server did not supply a message of its own.
func FallbackMessage(status Status, appName string) string {
	switch status {
	case StatusNotActivated:
		return fmt.Sprintf("Please enter your activation key for %s.", fallbackAppName(appName))
	case StatusInvalid:
		return "Your activation key is invalid or has expired. Please enter a valid activation key."
	default:
		return "Device activation required. Please enter your activation key."
	}
}

func fallbackAppName(appName string) string {
	if trimmed := strings.TrimSpace(appName); trimmed != "" {
		return trimmed
	}
	return "this application"
}

type StatusChecker interface {
	CheckActivation(ctx context.Context) (apiclient.ActivationStatus, error)
}

type EnrollmentAPI interface {
	StatusChecker
	SystemInfo(ctx context.Context) (apiclient.SystemInfo, error)
	ActivateDevice(ctx context.Context, input apiclient.ActivationRequest) (apiclient.ActivationResponse, error)
}
