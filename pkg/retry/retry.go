// Package retry re-invokes fallible cleanup operations a fixed number of
// times. There is no delay between attempts and errors are not aggregated.
package retry

import (
	"context"

	"github.com/scaii/sky-install/pkg/telemetry"
)

// DefaultAttempts is the total number of invocations, the first one included.
const DefaultAttempts = 3

// Operation is a unit of work that may fail transiently.
type Operation func(ctx context.Context) error

// Policy bounds the attempts made by Do.
type Policy struct {
	// Attempts is the total number of invocations. Values below one
	// are treated as one.
	Attempts int
	// OnRetry, when set, is called after each failed attempt that will
	// be retried.
	OnRetry func(attempt int, err error)
}

// Default returns the policy used for cleanup steps.
func Default() Policy {
	return Policy{Attempts: DefaultAttempts}
}

// Do runs op until it succeeds or the attempts are exhausted. The error of
// the last attempt is returned unchanged. A cancelled context stops the
// loop before the next attempt.
func (p Policy) Do(ctx context.Context, op Operation) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		// Don't retry on last attempt
		if attempt == attempts {
			break
		}

		telemetry.FromContext(ctx).NewComponentLogger("retry").
			WithError(err).
			WithFields(map[string]interface{}{"attempt": attempt, "max_attempts": attempts}).
			Warn("Retrying after failure")
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
	}
	return err
}

// Do runs op under the default policy.
func Do(ctx context.Context, op Operation) error {
	return Default().Do(ctx, op)
}
