// Package retry re-runs transport-level operations that failed transiently.
package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/metrics"
)

// HTTPStatusCoder is implemented by errors that carry an upstream HTTP status.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

type Options struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
	}
}

// OptionsFromConfig fills unset fields from DefaultOptions.
func OptionsFromConfig(cfg config.AIConfig) Options {
	opts := DefaultOptions()
	if cfg.MaxRetries >= 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryInitialDelay > 0 {
		opts.InitialDelay = cfg.RetryInitialDelay
	}
	if cfg.RetryMaxDelay > 0 {
		opts.MaxDelay = cfg.RetryMaxDelay
	}
	return opts
}

// Do runs op and retries it up to opts.MaxRetries times while it fails transiently.
// Non-transient errors and context cancellation return immediately.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = opts.InitialDelay
	expo.MaxInterval = opts.MaxDelay
	if opts.Multiplier > 0 {
		expo.Multiplier = opts.Multiplier
	}
	expo.MaxElapsedTime = 0

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxRetries)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, bo, func(err error, wait time.Duration) {
		metrics.ModelRetriesTotal.Inc()
		slog.Warn("retry: transient failure, backing off",
			"attempt", attempt, "max_retries", maxRetries, "wait", wait, "error", err)
	})
}

// IsTransient reports network failures, timeouts and HTTP 408/5xx.
// 429 is never retried here.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		if code == 408 || (code >= 500 && code <= 599) {
			return true
		}
		if code != 0 {
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout")
}
