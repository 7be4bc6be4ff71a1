// Package flow holds the small primitives shared by the UI-agnostic client
// components: deferred network work and transient notifications.
//
// Components never block their owner. An operation hands back a Task that the
// owning UI loop runs elsewhere, and the Task's result is applied back on the
// loop. Nothing here cancels a Task once handed out.
package flow

import "context"

// Task is deferred work whose result is applied on the owning UI loop.
type Task[T any] func(ctx context.Context) T

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notice is a transient notification (a toast). The zero value means "nothing to show".
type Notice struct {
	Level Level
	Text  string
}

func (n Notice) Empty() bool {
	return n.Text == ""
}

func Info(text string) Notice    { return Notice{Level: LevelInfo, Text: text} }
func Success(text string) Notice { return Notice{Level: LevelSuccess, Text: text} }
func Warn(text string) Notice    { return Notice{Level: LevelWarn, Text: text} }
func Error(text string) Notice   { return Notice{Level: LevelError, Text: text} }

// Epoch guards results against components that were torn down while a Task was
// outstanding. Tasks capture Current() when issued; the owner drops results
// whose epoch no longer matches.
type Epoch struct {
	value  uint64
	closed bool
}

func (e *Epoch) Current() uint64 {
	return e.value
}

func (e *Epoch) Valid(value uint64) bool {
	return !e.closed && e.value == value
}

// Advance invalidates outstanding Tasks while keeping the owner alive.
func (e *Epoch) Advance() {
	e.value++
}

func (e *Epoch) Close() {
	e.value++
	e.closed = true
}

func (e *Epoch) Closed() bool {
	return e.closed
}
