package http

import (
	"fmt"
	"net/http"
)

// AppError is an error with an HTTP status and a stable machine code.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithParam attaches a detail such as error_type or request_id.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

func statusError(status int, code string) func(string) *AppError {
	return func(message string) *AppError {
		return &AppError{Code: code, Message: message, Status: status}
	}
}

var (
	BadRequestError      = statusError(http.StatusBadRequest, "ERR_BAD_REQUEST")
	NotFoundError        = statusError(http.StatusNotFound, "ERR_NOT_FOUND")
	TooManyRequestsError = statusError(http.StatusTooManyRequests, "ERR_RATE_LIMITED")
	InternalError        = statusError(http.StatusInternalServerError, "ERR_INTERNAL")
	// BadGatewayError reports a failing upstream provider.
	BadGatewayError = statusError(http.StatusBadGateway, "ERR_UPSTREAM")
	// UnavailableError reports data that is temporarily insufficient.
	UnavailableError    = statusError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE")
	GatewayTimeoutError = statusError(http.StatusGatewayTimeout, "ERR_TIMEOUT")
)
