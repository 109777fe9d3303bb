// Package retry wraps github.com/cenkalti/backoff/v4 with the fixed
// "retry up to 3 times on JSON-parse failure" policy every adapter needs,
// so each provider implementation doesn't hand-roll its own backoff loop.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxAttempts is the number of structured-output attempts an adapter makes
// before falling back to a schema-shaped empty object.
const MaxAttempts = 3

// Do runs fn up to MaxAttempts times with exponential backoff, stopping
// early on success. It returns the last error if every attempt failed.
func Do(ctx context.Context, fn func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 2 * time.Second

	policy := backoff.WithMaxRetries(exp, MaxAttempts-1)

	return backoff.Retry(fn, backoff.WithContext(policy, ctx))
}
