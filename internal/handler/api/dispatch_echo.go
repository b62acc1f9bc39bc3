package api

import (
	"context"
	"net/http"
	"strings"

	"CryptoSatX/internal/dispatcher"
	models "CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/service/ratelimit"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/internal/usecase"
	xhttp "CryptoSatX/pkg/http"
	"CryptoSatX/pkg/http/middleware"
	xlogger "CryptoSatX/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Dispatcher is the operation surface the HTTP transport exposes.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args dispatcher.Args) *models.DispatchResponse
	Describe() []dispatcher.OperationInfo
	Namespaces() map[string][]string
}

// DispatchEchoHandler serves the dispatcher and signal routes.
type DispatchEchoHandler struct {
	logger *xlogger.Logger
	disp   Dispatcher
	rl     *ratelimit.Limiter
}

// NewDispatchEchoHandler creates the handler. A nil limiter disables rate limiting.
func NewDispatchEchoHandler(logger *xlogger.Logger, disp Dispatcher, rl *ratelimit.Limiter) *DispatchEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DispatchEchoHandler{logger: logger, disp: disp, rl: rl}
}

func (h *DispatchEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/dispatch", h.Dispatch, h.rateLimit)
	g.GET("/operations", h.Operations)
	g.GET("/signals/:symbol", h.Signal, h.rateLimit)
	g.GET("/signals/:symbol/history", h.History)
	g.POST("/signals/batch", h.Batch, h.rateLimit)
}

func (h *DispatchEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded, slow down"))
		}
		return next(c)
	}
}

// Dispatch runs any registered operation and returns the raw envelope.
// Dispatch failures are reported inside the envelope with status 200.
func (h *DispatchEchoHandler) Dispatch(c echo.Context) error {
	req := &models.DispatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	resp := h.disp.Dispatch(h.requestContext(c, req.RequestID), req.Operation, req.Args)
	return c.JSON(http.StatusOK, resp)
}

func (h *DispatchEchoHandler) Operations(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]any{
		"operations": h.disp.Describe(),
		"namespaces": h.disp.Namespaces(),
	})
}

func (h *DispatchEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.run(c, usecase.OpSignalsGet, dispatcher.Args{"symbol": req.Symbol})
}

func (h *DispatchEchoHandler) History(c echo.Context) error {
	req := &models.SignalHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.run(c, usecase.OpSignalsHistory, dispatcher.Args{"symbol": req.Symbol, "limit": req.Limit})
}

func (h *DispatchEchoHandler) Batch(c echo.Context) error {
	req := &models.BatchSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	syms := make([]any, len(req.Symbols))
	for i, s := range req.Symbols {
		syms[i] = s
	}
	return h.run(c, usecase.OpSignalsBatch, dispatcher.Args{"symbols": syms})
}

func (h *DispatchEchoHandler) Health(c echo.Context) error {
	resp := h.disp.Dispatch(h.requestContext(c, ""), usecase.OpSystemHealth, nil)
	if !resp.OK {
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp.Data)
}

// run dispatches name and converts the envelope to the REST response shape.
func (h *DispatchEchoHandler) run(c echo.Context, name string, args dispatcher.Args) error {
	resp := h.disp.Dispatch(h.requestContext(c, ""), name, args)
	if resp.OK {
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
		return xhttp.SuccessResponse(c, resp.Data)
	}
	h.logger.Warn("dispatch route failed",
		xlogger.String("operation", name),
		xlogger.String("error_type", resp.Meta.ErrorType),
		xlogger.String("request_id", resp.Meta.RequestID),
	)
	return xhttp.AppErrorResponse(c, appErrorFor(resp))
}

func (h *DispatchEchoHandler) requestContext(c echo.Context, id string) context.Context {
	ctx := c.Request().Context()
	if id = strings.TrimSpace(id); id == "" {
		id = c.Request().Header.Get(middleware.HeaderRequestID)
	}
	if id != "" {
		ctx = dispatcher.WithRequestID(ctx, id)
	}
	return ctx
}

// appErrorFor maps an envelope error kind to an HTTP error.
func appErrorFor(resp *models.DispatchResponse) *xhttp.AppError {
	msg := resp.ErrorMessage()
	var e *xhttp.AppError
	switch resp.Meta.ErrorType {
	case dispatcher.KindNotFound:
		e = xhttp.NotFoundError(msg)
	case dispatcher.KindBadRequest, usecase.KindValidation:
		e = xhttp.BadRequestError(msg)
	case dispatcher.KindTimeout:
		e = xhttp.GatewayTimeoutError(msg)
	case usecase.KindInsufficientData:
		e = xhttp.UnavailableError(msg)
	case upstream.KindUpstream:
		e = xhttp.BadGatewayError(msg)
	default:
		e = xhttp.InternalError(msg)
	}
	return e.WithParam("error_type", resp.Meta.ErrorType).WithParam("request_id", resp.Meta.RequestID)
}
