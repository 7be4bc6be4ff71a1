package clienterr

import (
	"errors"
	"fmt"
)

var (
	ErrTransport  = errors.New("transport error")
	ErrServer     = errors.New("server error")
	ErrValidation = errors.New("validation error")
)

// TransportError means the request never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ServerError means a response arrived but its status or success flag reports failure.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServerError) Unwrap() error {
	return ErrServer
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func Server(op string, statusCode int, message string) error {
	return &ServerError{Op: op, StatusCode: statusCode, Message: message}
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Message returns the text worth showing an operator: the server's own message
// when there is one, otherwise fallback.
func Message(err error, fallback string) string {
	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		return validationErr.Message
	}
	return fallback
}
