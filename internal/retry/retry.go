// Package retry provides the single retry/backoff policy shared by
// extraction, verification, escalation, and the CourtListener client.
package retry

import (
	"context"
	"time"
)

// sleepFunc is injectable so tests run without real backoff delays
var sleepFunc = sleepCtx

// Classifier decides whether an error is worth another attempt
type Classifier func(err error) bool

// Policy parameterizes bounded retries with exponential backoff
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   Classifier // nil retries every error
}

// Default mirrors the bound used across the pipeline: three attempts,
// backoff doubling from one second.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn until it succeeds, the classifier declines, the attempt bound
// is reached, or the context is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt < attempts-1 {
			backoff := base * time.Duration(1<<uint(attempt))
			if serr := sleepFunc(ctx, backoff); serr != nil {
				return serr
			}
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
