package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
}

// --- Rate Limiter Tests ---

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := rl.Check(ctx, "10.0.0.1")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(2)
	c := newClock()
	rl.now = c.now
	ctx := context.Background()

	rl.Check(ctx, "10.0.0.1")
	rl.Check(ctx, "10.0.0.1")
	result := rl.Check(ctx, "10.0.0.1")

	assert.False(t, result.Allowed)
	assert.Equal(t, "rate_limiter", result.Guard)
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(2)
	c := newClock()
	rl.now = c.now
	ctx := context.Background()

	rl.Check(ctx, "10.0.0.1")
	rl.Check(ctx, "10.0.0.1")
	require.False(t, rl.Check(ctx, "10.0.0.1").Allowed)

	c.advance(31 * time.Second)
	assert.True(t, rl.Check(ctx, "10.0.0.1").Allowed)
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	rl := NewRateLimiter(1)
	ctx := context.Background()

	r1 := rl.Check(ctx, "10.0.0.1")
	r2 := rl.Check(ctx, "10.0.0.2")

	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
}

// --- Circuit Breaker Tests ---

func TestCircuitBreaker_ClosedByDefault(t *testing.T) {
	cb := NewCircuitBreaker(3, 5*time.Second)

	result := cb.Check(context.Background(), "ladder.match.credited")
	assert.True(t, result.Allowed)
	assert.Equal(t, CircuitClosed, cb.State("ladder.match.credited"))
}

func TestCircuitBreaker_OpensOnThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 5*time.Second)
	ctx := context.Background()

	cb.RecordFailure("topic")
	cb.RecordFailure("topic")

	result := cb.Check(ctx, "topic")
	assert.False(t, result.Allowed)
	assert.Equal(t, "circuit_breaker", result.Guard)
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := NewCircuitBreaker(2, 5*time.Second)
	ctx := context.Background()

	cb.RecordFailure("topic")
	cb.RecordSuccess("topic")
	cb.RecordFailure("topic")

	assert.True(t, cb.Check(ctx, "topic").Allowed)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Second)
	c := newClock()
	cb.now = c.now
	ctx := context.Background()

	cb.RecordFailure("topic")
	require.False(t, cb.Check(ctx, "topic").Allowed)

	c.advance(6 * time.Second)
	assert.True(t, cb.Check(ctx, "topic").Allowed, "one probe after the reset timeout")
	assert.False(t, cb.Check(ctx, "topic").Allowed, "no second probe while the first is in flight")

	cb.RecordFailure("topic")
	assert.Equal(t, CircuitOpen, cb.State("topic"))

	c.advance(6 * time.Second)
	require.True(t, cb.Check(ctx, "topic").Allowed)
	cb.RecordSuccess("topic")
	assert.Equal(t, CircuitClosed, cb.State("topic"))
}

// --- Idempotency Tests ---

func TestIdempotencyGuard_AllowsFirst(t *testing.T) {
	ig := NewIdempotencyGuard(time.Hour)

	result := ig.Check(context.Background(), "req-123")
	assert.True(t, result.Allowed)
}

func TestIdempotencyGuard_BlocksDuplicate(t *testing.T) {
	ig := NewIdempotencyGuard(time.Hour)
	ctx := context.Background()

	ig.Check(ctx, "req-123")
	result := ig.Check(ctx, "req-123")

	assert.False(t, result.Allowed)
	assert.Equal(t, "idempotency", result.Guard)
}

func TestIdempotencyGuard_EmptyKeyAllowed(t *testing.T) {
	ig := NewIdempotencyGuard(time.Hour)
	ctx := context.Background()

	assert.True(t, ig.Check(ctx, "").Allowed)
	assert.True(t, ig.Check(ctx, "").Allowed)
}

func TestIdempotencyGuard_RemoveAllowsRetry(t *testing.T) {
	ig := NewIdempotencyGuard(time.Hour)
	ctx := context.Background()

	ig.Check(ctx, "req-456")
	ig.Remove("req-456")

	require.True(t, ig.Check(ctx, "req-456").Allowed)
}

func TestIdempotencyGuard_KeysExpire(t *testing.T) {
	ig := NewIdempotencyGuard(time.Hour)
	c := newClock()
	ig.now = c.now
	ctx := context.Background()

	ig.Check(ctx, "req-789")
	c.advance(2 * time.Hour)
	assert.True(t, ig.Check(ctx, "req-789").Allowed)
}
