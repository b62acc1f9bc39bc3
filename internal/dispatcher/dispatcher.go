package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"CryptoSatX/internal/domain/models"
	applogger "CryptoSatX/pkg/logger"

	"github.com/google/uuid"
)

// DefaultTimeout applies when the configuration leaves the global timeout unset.
const DefaultTimeout = 30 * time.Second

// Handler executes one operation. Implementations must honour ctx.
type Handler func(ctx context.Context, args Args) (any, error)

// Config is the immutable timeout policy of a Dispatcher.
type Config struct {
	DefaultTimeout   time.Duration
	TimeoutOverrides map[string]time.Duration
}

// Operation is a registered handler and its metadata.
type Operation struct {
	Name        string
	Namespace   string
	Description string
	Timeout     time.Duration
	handler     Handler
}

// OperationInfo describes a registered operation for catalog listings.
type OperationInfo struct {
	Name        string  `json:"name"`
	Namespace   string  `json:"namespace"`
	Description string  `json:"description,omitempty"`
	TimeoutS    float64 `json:"timeout_s"`
}

// RegisterOption customizes a registration.
type RegisterOption func(*Operation)

// WithTimeout overrides the configured timeout for one operation.
func WithTimeout(d time.Duration) RegisterOption {
	return func(o *Operation) { o.Timeout = d }
}

// WithDescription attaches a catalog description.
func WithDescription(desc string) RegisterOption {
	return func(o *Operation) { o.Description = desc }
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the diagnostics logger.
func WithLogger(l *applogger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithIDGenerator replaces the request id source.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// Dispatcher maps operation names to handlers and runs them under a timeout.
// Registration happens during startup; the first Dispatch seals the table
// and lookups after that take no lock.
type Dispatcher struct {
	cfg    Config
	logger *applogger.Logger
	newID  func() string

	mu     sync.Mutex
	sealed atomic.Bool
	ops    map[string]*Operation
}

// New creates an empty Dispatcher.
func New(cfg Config, opts ...Option) *Dispatcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}
	overrides := make(map[string]time.Duration, len(cfg.TimeoutOverrides))
	for k, v := range cfg.TimeoutOverrides {
		overrides[k] = v
	}
	cfg.TimeoutOverrides = overrides

	d := &Dispatcher{
		cfg:    cfg,
		logger: applogger.Nop(),
		newID:  uuid.NewString,
		ops:    make(map[string]*Operation),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds an operation. Names are unique.
func (d *Dispatcher) Register(name string, h Handler, opts ...RegisterOption) error {
	if name == "" {
		return errors.New("dispatcher: operation name is required")
	}
	if h == nil {
		return fmt.Errorf("dispatcher: nil handler for %s", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sealed.Load() {
		return ErrRegistrySealed
	}
	if _, exists := d.ops[name]; exists {
		return &DuplicateOperationError{Name: name}
	}

	op := &Operation{Name: name, Namespace: models.Namespace(name), handler: h}
	for _, opt := range opts {
		opt(op)
	}
	d.ops[name] = op
	return nil
}

// Seal freezes the registration table.
func (d *Dispatcher) Seal() {
	if d.sealed.Load() {
		return
	}
	d.mu.Lock()
	d.sealed.Store(true)
	d.mu.Unlock()
}

// TimeoutFor resolves the effective timeout of an operation name.
func (d *Dispatcher) TimeoutFor(name string) time.Duration {
	d.Seal()
	if op, ok := d.ops[name]; ok {
		return d.timeoutOf(op)
	}
	return d.cfg.DefaultTimeout
}

func (d *Dispatcher) timeoutOf(op *Operation) time.Duration {
	if op.Timeout > 0 {
		return op.Timeout
	}
	if t, ok := d.cfg.TimeoutOverrides[op.Name]; ok && t > 0 {
		return t
	}
	return d.cfg.DefaultTimeout
}

// ListOperations returns the registered names in lexical order.
func (d *Dispatcher) ListOperations() []string {
	d.Seal()
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Namespaces groups registered names by their prefix before the first dot.
func (d *Dispatcher) Namespaces() map[string][]string {
	out := make(map[string][]string)
	for _, name := range d.ListOperations() {
		ns := models.Namespace(name)
		out[ns] = append(out[ns], name)
	}
	return out
}

// Describe lists every operation with its effective timeout.
func (d *Dispatcher) Describe() []OperationInfo {
	names := d.ListOperations()
	infos := make([]OperationInfo, 0, len(names))
	for _, name := range names {
		op := d.ops[name]
		infos = append(infos, OperationInfo{
			Name:        op.Name,
			Namespace:   op.Namespace,
			Description: op.Description,
			TimeoutS:    d.timeoutOf(op).Seconds(),
		})
	}
	return infos
}

type outcome struct {
	data any
	err  error
}

// Dispatch runs the named operation and always returns a well-formed envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args) *models.DispatchResponse {
	start := time.Now()
	d.Seal()

	reqID := RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = d.newID()
		ctx = WithRequestID(ctx, reqID)
	}

	resp := &models.DispatchResponse{
		Operation: name,
		Meta: models.DispatchMeta{
			Namespace: models.Namespace(name),
			RequestID: reqID,
		},
	}

	op, ok := d.ops[name]
	if !ok {
		resp.Meta.TimeoutLimitS = d.cfg.DefaultTimeout.Seconds()
		err := &UnknownOperationError{Name: name}
		d.fail(resp, err, time.Since(start))
		observe("unknown", KindNotFound, time.Since(start).Seconds())
		d.logger.Warn("dispatch unknown operation",
			applogger.String("operation", name),
			applogger.String("request_id", reqID),
		)
		return resp
	}

	limit := d.timeoutOf(op)
	resp.Meta.TimeoutLimitS = limit.Seconds()

	out := d.execute(ctx, op, args, limit)
	elapsed := time.Since(start)

	if out.err == nil {
		resp.OK = true
		resp.Data = out.data
		if resp.Data == nil {
			resp.Data = map[string]any{}
		}
		resp.Meta.ExecutionTimeMs = millis(elapsed)
		observe(name, "ok", elapsed.Seconds())
		return resp
	}

	var te *TimeoutError
	if errors.As(out.err, &te) {
		elapsed = limit
	}
	d.fail(resp, out.err, elapsed)
	observe(name, resp.Meta.ErrorType, elapsed.Seconds())
	d.logFailure(op, args, reqID, resp.Meta.ErrorType, out.err, elapsed)
	return resp
}

func (d *Dispatcher) execute(ctx context.Context, op *Operation, args Args, limit time.Duration) outcome {
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan outcome, 1)
	dispatchInFlight.WithLabelValues(op.Name).Inc()
	go func() {
		defer dispatchInFlight.WithLabelValues(op.Name).Dec()
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &HandlerError{
					Operation: op.Name,
					Err:       fmt.Errorf("panic: %v", r),
					Stack:     debug.Stack(),
				}}
			}
		}()
		data, err := op.handler(runCtx, args)
		done <- outcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return outcome{err: &TimeoutError{Operation: op.Name, Limit: limit}}
		}
		if out.err != nil && ctx.Err() != nil {
			return outcome{err: &CanceledError{Operation: op.Name, Cause: ctx.Err()}}
		}
		return out
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return outcome{err: &CanceledError{Operation: op.Name, Cause: ctx.Err()}}
		}
		return outcome{err: &TimeoutError{Operation: op.Name, Limit: limit}}
	}
}

func (d *Dispatcher) fail(resp *models.DispatchResponse, err error, elapsed time.Duration) {
	msg := Summarize(err)
	resp.OK = false
	resp.Data = nil
	resp.Error = &msg
	resp.Meta.ErrorType = ErrorType(err)
	resp.Meta.ExecutionTimeMs = millis(elapsed)
}

func (d *Dispatcher) logFailure(op *Operation, args Args, reqID, kind string, err error, elapsed time.Duration) {
	fields := []applogger.Field{
		applogger.String("operation", op.Name),
		applogger.String("request_id", reqID),
		applogger.String("error_type", kind),
		applogger.Any("args", RedactArgs(args)),
		applogger.Duration("elapsed_ms", elapsed),
		applogger.Error(err),
	}
	var he *HandlerError
	if errors.As(err, &he) && len(he.Stack) > 0 {
		fields = append(fields, applogger.String("stack", string(he.Stack)))
	}
	if kind == KindTimeout || kind == KindCanceled {
		d.logger.Warn("dispatch did not complete", fields...)
		return
	}
	d.logger.Error("dispatch failed", fields...)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

type requestIDKey struct{}

// WithRequestID stores a correlation id for nested dispatches.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the correlation id or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}
