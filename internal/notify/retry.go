package notify

import (
	"context"
	"math"
	"time"

	"roomly/internal/domain"

	"github.com/rs/zerolog"
)

// RetryPolicy defines exponential backoff parameters for dispatch attempts.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// RetryingNotifier wraps a Notifier with short in-call retries for transient
// transport errors. It never persists anything: if all attempts fail the
// error is surfaced to the caller and the reminder scheduler leaves the
// booking unmarked for the next tick.
type RetryingNotifier struct {
	next   domain.Notifier
	policy RetryPolicy
	logger *zerolog.Logger
}

func NewRetryingNotifier(next domain.Notifier, policy RetryPolicy, logger *zerolog.Logger) *RetryingNotifier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = time.Second
	}
	if policy.BackoffFactor <= 0 {
		policy.BackoffFactor = 2
	}
	return &RetryingNotifier{next: next, policy: policy, logger: logger}
}

func (n *RetryingNotifier) Send(ctx context.Context, to, subject, body string, calendar []byte) error {
	var lastErr error
	for attempt := 1; attempt <= n.policy.MaxAttempts; attempt++ {
		lastErr = n.next.Send(ctx, to, subject, body, calendar)
		if lastErr == nil {
			return nil
		}
		if attempt == n.policy.MaxAttempts {
			break
		}

		delay := n.policy.NextDelay(attempt)
		n.logger.Warn().Err(lastErr).Str("to", to).Int("attempt", attempt).Dur("retry_in", delay).Msg("dispatch failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
