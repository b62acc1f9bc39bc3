package models

import "strings"

// DispatchRequest names an operation and its arguments.
type DispatchRequest struct {
	Operation string         `json:"operation" validate:"required,max=128"`
	Args      map[string]any `json:"args"`
	RequestID string         `json:"request_id,omitempty"`
}

// DispatchMeta carries timing and classification for a single dispatch.
type DispatchMeta struct {
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	TimeoutLimitS   float64 `json:"timeout_limit_s"`
	ErrorType       string  `json:"error_type,omitempty"`
	Namespace       string  `json:"namespace"`
	RequestID       string  `json:"request_id,omitempty"`
}

// DispatchResponse is the uniform envelope returned for every dispatch.
// Exactly one of Data and Error is set, matching OK.
type DispatchResponse struct {
	OK        bool         `json:"ok"`
	Operation string       `json:"operation"`
	Data      any          `json:"data,omitempty"`
	Error     *string      `json:"error,omitempty"`
	Meta      DispatchMeta `json:"meta"`
}

// ErrorMessage returns the error text or "" on success.
func (r *DispatchResponse) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

// Namespace returns the dotted prefix of an operation name.
func Namespace(operation string) string {
	if i := strings.IndexByte(operation, '.'); i > 0 {
		return operation[:i]
	}
	return operation
}
