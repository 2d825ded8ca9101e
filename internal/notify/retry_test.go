package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// Clamped at MaxDelay.
	assert.Equal(t, 10*time.Second, policy.NextDelay(10))
	// Attempt below 1 behaves like the first.
	assert.Equal(t, time.Second, policy.NextDelay(0))
}

func TestNextDelayDefaults(t *testing.T) {
	var policy RetryPolicy
	assert.Equal(t, time.Second, policy.NextDelay(1))
}

type countingNotifier struct {
	calls    int
	failFor  int
	lastBody string
}

func (c *countingNotifier) Send(ctx context.Context, to, subject, body string, calendar []byte) error {
	c.calls++
	c.lastBody = body
	if c.calls <= c.failFor {
		return errors.New("transport down")
	}
	return nil
}

func TestRetryingNotifierRecovers(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	inner := &countingNotifier{failFor: 2}
	n := NewRetryingNotifier(inner, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, &logger)

	err := n.Send(context.Background(), "a@example.com", "subj", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingNotifierGivesUp(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	inner := &countingNotifier{failFor: 10}
	n := NewRetryingNotifier(inner, RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 2}, &logger)

	err := n.Send(context.Background(), "a@example.com", "subj", "body", nil)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingNotifierHonorsContext(t *testing.T) {
	logger := zerolog.New(os.Stdout)
	inner := &countingNotifier{failFor: 10}
	n := NewRetryingNotifier(inner, RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 2}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, "a@example.com", "subj", "body", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestBuildMessagePlain(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "a@example.com", "Reminder", "hello", nil))
	assert.Contains(t, msg, "To: a@example.com")
	assert.Contains(t, msg, "Subject: Reminder")
	assert.Contains(t, msg, "text/plain")
	assert.NotContains(t, msg, "multipart/mixed")
}

func TestBuildMessageWithCalendar(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "a@example.com", "Reminder", "hello", []byte("BEGIN:VCALENDAR")))
	assert.Contains(t, msg, "multipart/mixed")
	assert.Contains(t, msg, "text/calendar")
	assert.Contains(t, msg, "invite.ics")
}
