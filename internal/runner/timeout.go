package runner

import (
	"context"
	"time"
)

// Timeout wraps a Runner with a per-run deadline. A zero duration disables
// the deadline.
type Timeout struct {
	inner Runner
	limit time.Duration
}

// NewTimeout wraps the runner.
func NewTimeout(inner Runner, limit time.Duration) *Timeout {
	return &Timeout{inner: inner, limit: limit}
}

func (t *Timeout) Run(ctx context.Context, sources []string, entry string, substitutions map[string]string) (Result, error) {
	if t.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.limit)
		defer cancel()
	}
	return t.inner.Run(ctx, sources, entry, substitutions)
}
