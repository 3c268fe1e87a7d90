// Package backoff wraps cenkalti/backoff with the retry policy shared by
// every remote call in the pipeline: a fixed attempt cap, a doubling delay,
// and a caller-supplied predicate deciding which errors are transient.
package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("backoff: max attempts must be positive")

// Retry runs op up to maxAttempts times. After a failed attempt it waits
// baseDelay doubled per attempt, aborting early if ctx is cancelled. The
// transient predicate decides whether an error is worth another attempt;
// errors it rejects fail immediately. A nil predicate treats every error as
// transient.
func Retry(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration, transient func(error) bool) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if transient != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = 5 * time.Minute
	policy.MaxElapsedTime = 0

	capped := backoff.WithMaxRetries(policy, uint64(maxAttempts-1))
	return backoff.Retry(wrapped, backoff.WithContext(capped, ctx))
}
