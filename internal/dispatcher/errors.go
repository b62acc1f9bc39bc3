package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds reported in meta.error_type.
const (
	KindNotFound     = "NotFound"
	KindTimeout      = "Timeout"
	KindHandlerError = "HandlerError"
	KindCanceled     = "Canceled"
	KindBadRequest   = "BadRequest"
)

// maxErrorSummary bounds the caller-visible error message.
const maxErrorSummary = 300

// ErrRegistrySealed is returned by Register once dispatching has started.
var ErrRegistrySealed = errors.New("dispatcher: registry is sealed")

// Typed is implemented by errors that carry their own machine-readable kind.
type Typed interface {
	ErrorType() string
}

// DuplicateOperationError reports a second registration under the same name.
type DuplicateOperationError struct {
	Name string
}

func (e *DuplicateOperationError) Error() string {
	return fmt.Sprintf("operation %s already registered", e.Name)
}

// UnknownOperationError reports a dispatch to a name nobody registered.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Name)
}

func (e *UnknownOperationError) ErrorType() string { return KindNotFound }

// TimeoutError reports a handler that exhausted its budget.
type TimeoutError struct {
	Operation string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s exceeded its %s timeout limit; reduce scope or add filters (fewer symbols, shorter window) and retry",
		e.Operation, formatLimit(e.Limit))
}

func (e *TimeoutError) ErrorType() string { return KindTimeout }

// CanceledError reports that the caller gave up before the handler finished.
type CanceledError struct {
	Operation string
	Cause     error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("operation %s canceled by caller: %v", e.Operation, e.Cause)
}

func (e *CanceledError) Unwrap() error { return e.Cause }

func (e *CanceledError) ErrorType() string { return KindCanceled }

// HandlerError wraps an unexpected handler failure, including recovered panics.
type HandlerError struct {
	Operation string
	Err       error
	Stack     []byte
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// ArgumentError reports a missing or malformed dispatch argument.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q %s", e.Arg, e.Reason)
}

func (e *ArgumentError) ErrorType() string { return KindBadRequest }

// ErrorType classifies err for the response envelope.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	var typed Typed
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindHandlerError
}

// Summarize returns the first line of err, truncated for callers.
func Summarize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	r := []rune(msg)
	if len(r) > maxErrorSummary {
		msg = string(r[:maxErrorSummary]) + "..."
	}
	return msg
}

func formatLimit(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int64(d/time.Second))
	}
	return d.String()
}
