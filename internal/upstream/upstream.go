// Package upstream wraps outbound calls to model and search providers with a
// per-attempt timeout and a bounded retry-with-backoff policy, and sorts the
// final failure into a timeout or a rejection.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/metrics"
)

var (
	ErrTimeout  = errors.New("upstream timeout")
	ErrRejected = errors.New("upstream rejected")
)

const (
	KindTimeout  = "upstream_timeout"
	KindRejected = "upstream_rejected"
	KindInternal = "internal"
)

// StatusError is a non-2xx answer from an upstream HTTP API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s http %d: %s", e.Service, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type attemptTimeout struct {
	service string
	after   time.Duration
	err     error
}

func (e *attemptTimeout) Error() string {
	return fmt.Sprintf("%s did not answer within %s", e.service, e.after)
}

func (e *attemptTimeout) Unwrap() error { return e.err }

type Policy struct {
	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func PolicyFromConfig(cfg config.UpstreamConfig) Policy {
	return Policy{
		Timeout:  cfg.Timeout,
		Attempts: cfg.Attempts,
		Delay:    cfg.Delay,
		MaxDelay: cfg.MaxDelay,
	}
}

// Call runs fn under p. Each attempt gets its own deadline derived from ctx.
func Call(ctx context.Context, p Policy, service string, fn func(ctx context.Context) error) error {
	start := time.Now()

	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.RetryIf(Retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.ObserveRetry(service)
			slog.Warn("Upstream call failed, retrying", "service", service, "attempt", n+1, "error", err)
		}),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if jitter := p.Delay / 2; jitter > 0 {
		opts = append(opts, retry.MaxJitter(jitter), retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)))
	} else {
		opts = append(opts, retry.DelayType(retry.BackOffDelay))
	}

	err := retry.Do(func() error {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		}
		defer cancel()

		err := fn(attemptCtx)
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return &attemptTimeout{service: service, after: p.Timeout, err: err}
		}
		return err
	}, opts...)

	if err == nil {
		metrics.ObserveUpstream(service, "ok", start)
		return nil
	}

	err = classify(ctx, service, err)
	metrics.ObserveUpstream(service, Kind(err), start)
	return err
}

// Retryable reports whether err is a transient upstream failure.
func Retryable(err error) bool {
	var timeout *attemptTimeout
	if errors.As(err, &timeout) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classify(ctx context.Context, service string, err error) error {
	var timeout *attemptTimeout
	if errors.As(err, &timeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, timeout.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: request deadline exceeded", ErrTimeout, service)
	}
	var status *StatusError
	if errors.As(err, &status) {
		return fmt.Errorf("%w: %w", ErrRejected, status)
	}
	return err
}

// Message returns the text to show a client for err. Rejections carry the
// provider's own error text; the class is reported separately by Kind.
func Message(err error) string {
	var status *StatusError
	if errors.As(err, &status) && status.Body != "" {
		return status.Body
	}
	return err.Error()
}

// Kind names the error class for API responses and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrRejected):
		return KindRejected
	default:
		return KindInternal
	}
}
