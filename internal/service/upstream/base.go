package upstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	pmetrics "CryptoSatX/internal/service/metrics"
	xhttp "CryptoSatX/pkg/http"
)

// KindUpstream is the error kind reported for provider failures.
const KindUpstream = "UpstreamError"

// Error wraps a failed provider call.
type Error struct {
	Provider string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorType() string { return KindUpstream }

// Wrap returns err as an *Error unless it is nil, already typed, or a
// context error (those keep their own kind).
func Wrap(provider, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Provider: provider, Endpoint: endpoint, Err: err}
}

// Base is the shared JSON-over-HTTP foundation for provider clients.
type Base struct {
	provider string
	baseURL  string
	headers  map[string]string
	retries  int
	backoff  time.Duration
	client   *xhttp.Client
}

type Option func(*Base)

func WithHeader(k, v string) Option {
	return func(b *Base) {
		if v != "" {
			b.headers[k] = v
		}
	}
}

// WithRetries sets how many extra attempts a temporary failure gets.
func WithRetries(n int, backoff time.Duration) Option {
	return func(b *Base) {
		if n >= 0 {
			b.retries = n
		}
		if backoff > 0 {
			b.backoff = backoff
		}
	}
}

func NewBase(provider, baseURL string, timeout time.Duration, opts ...Option) *Base {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &Base{
		provider: provider,
		baseURL:  baseURL,
		headers:  map[string]string{},
		backoff:  100 * time.Millisecond,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provider returns the provider label.
func (b *Base) Provider() string { return b.provider }

// GetJSON issues GET baseURL+path and decodes the JSON body into dest.
func (b *Base) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	start := time.Now()
	err := b.getWithRetry(ctx, path, query, dest)
	pmetrics.ObserveCall(b.provider, path, time.Since(start).Seconds(), err)
	return Wrap(b.provider, path, err)
}

func (b *Base) getWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.baseURL == "" {
		return fmt.Errorf("%s base url not configured", b.provider)
	}
	var err error
	for attempt := 0; attempt <= b.retries; attempt++ {
		err = b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			Headers:     b.headers,
			QueryParams: query,
		}, dest)
		if err == nil || !temporary(err) || attempt == b.retries {
			return err
		}
		select {
		case <-time.After(time.Duration(attempt+1) * b.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func temporary(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// transport errors are retried; caller cancellation is not
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
