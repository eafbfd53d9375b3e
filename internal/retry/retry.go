// Package retry wraps single remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Policy controls how many times a request is retried and how long the
// waits between attempts grow.
type Policy struct {
	MaxRetries int
	Base       time.Duration
	Jitter     time.Duration
}

// DefaultPolicy matches the drive API defaults: five retries, one second
// base backoff, up to one second of jitter.
var DefaultPolicy = Policy{
	MaxRetries: 5,
	Base:       time.Second,
	Jitter:     time.Second,
}

// backoff returns the wait before the next attempt: 2^attempt * base plus
// random jitter. The attempt index is zero-based.
func (p Policy) backoff(attempt int) time.Duration {
	d := (1 << attempt) * p.Base
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Do invokes fn; on failure it waits and retries up to p.MaxRetries times,
// returning the first success or the final failure. Success short-circuits
// immediately. The op name is only used for logging.
func Do[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)
	for attempt := 0; ; attempt++ {
		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}
		if attempt >= p.MaxRetries {
			return result, lastErr
		}
		wait := p.backoff(attempt)
		slog.Warn("request failed, retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", p.MaxRetries,
			"wait", wait,
			"error", lastErr,
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}
