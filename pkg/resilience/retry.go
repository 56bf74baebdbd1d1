package resilience

import (
	"context"
	"time"

	pkgerrors "github.com/kevin07696/mpesa-sdk/pkg/errors"
)

// Retry calls fn up to attempts times, sleeping per strategy between calls,
// while the returned error is retriable (see errors.IsRetriable). Strategies
// implementing ErrorAwareStrategy see the error being retried.
// Validation, encryption and 4xx remote errors stop immediately.
//
// The client library never retries on its own; hosts opt in by wrapping calls.
// Retrying money-moving operations can duplicate them, so prefer idempotent
// queries or pass an OriginatorConversationID the provider can deduplicate.
func Retry(ctx context.Context, strategy BackoffStrategy, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !pkgerrors.IsRetriable(err) || attempt == attempts-1 {
			return err
		}

		timer := time.NewTimer(delayFor(strategy, attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
