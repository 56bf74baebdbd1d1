package resilience

import (
	"errors"
	"math"
	"math/rand"
	"time"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
)

// BackoffStrategy picks the wait before retry number attempt (0-indexed)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ErrorAwareStrategy is a BackoffStrategy that can also pick the wait from the
// failure being retried. Retry prefers DelayFor when a strategy has it.
type ErrorAwareStrategy interface {
	BackoffStrategy
	DelayFor(attempt int, err error) time.Duration
}

// ExponentialBackoff grows the wait by Multiplier per attempt up to MaxDelay,
// then spreads it by ±Jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // fraction of the delay, 0.1 is ±10%
}

// DefaultExponentialBackoff is used for endpoint retries:
// ~100ms, ~200ms, ~400ms ... capped at 30s, ±10%
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// AuthBackoff is used when the token endpoint itself failed:
// ~1s, ~2s, ~4s, then 5s, ±10%
func AuthBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  1 * time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay returns BaseDelay * Multiplier^attempt, capped and jittered.
// A negative attempt gets BaseDelay.
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return eb.BaseDelay
	}

	delay := math.Min(
		float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt)),
		float64(eb.MaxDelay),
	)

	spread := delay * eb.Jitter
	delay += (rand.Float64()*2 - 1) * spread

	if delay < 0 {
		return eb.BaseDelay
	}
	return time.Duration(delay)
}

// FixedBackoff waits the same delay before every retry
type FixedBackoff struct {
	Delay time.Duration
}

// NextDelay returns Delay
func (fb *FixedBackoff) NextDelay(int) time.Duration {
	return fb.Delay
}

// ByErrorKind waits per Auth after token failures and per Default otherwise.
// A nil Auth falls back to Default.
type ByErrorKind struct {
	Default BackoffStrategy
	Auth    BackoffStrategy
}

// NewByErrorKind pairs the default endpoint backoff with AuthBackoff
func NewByErrorKind() *ByErrorKind {
	return &ByErrorKind{
		Default: DefaultExponentialBackoff(),
		Auth:    AuthBackoff(),
	}
}

// NextDelay uses Default
func (b *ByErrorKind) NextDelay(attempt int) time.Duration {
	return b.Default.NextDelay(attempt)
}

// DelayFor uses Auth when err carries an *errors.AuthError
func (b *ByErrorKind) DelayFor(attempt int, err error) time.Duration {
	var authErr *pkgerrors.AuthError
	if b.Auth != nil && errors.As(err, &authErr) {
		return b.Auth.NextDelay(attempt)
	}
	return b.Default.NextDelay(attempt)
}

func delayFor(strategy BackoffStrategy, attempt int, err error) time.Duration {
	if s, ok := strategy.(ErrorAwareStrategy); ok {
		return s.DelayFor(attempt, err)
	}
	return strategy.NextDelay(attempt)
}
