package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler registers routes on the shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// APIResponse is the body shape of every non-dispatch endpoint.
type APIResponse struct {
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func write(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, APIResponse{
		Status:    status,
		Message:   http.StatusText(status),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		Data:      data,
	})
}

// SuccessResponse writes a 200 with data.
func SuccessResponse(c echo.Context, data interface{}) error {
	return write(c, http.StatusOK, data)
}

// BadRequestResponse writes a 400 carrying validation details.
func BadRequestResponse(c echo.Context, details interface{}) error {
	return write(c, http.StatusBadRequest, details)
}

// AppErrorResponse writes err with its own status; anything that is not an
// *AppError becomes an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong")
	}
	return write(c, appErr.Status, []*AppError{appErr})
}
