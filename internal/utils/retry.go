package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const retryJitterMax = 250 * time.Millisecond

// RateLimitError reports a 429 from an external origin, carrying the
// server's Retry-After hint when one was supplied.
type RateLimitError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (status %d, retry after %s)", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited (status %d)", e.Status)
}

// RetryRateLimited runs op, retrying only on *RateLimitError up to
// maxRetries additional attempts. The delay before each retry is
// max(serverRetryAfter, min(8s, base*2^attempt) + jitter(0..250ms)).
// On exhaustion the last rate-limit error is returned; any other error
// stops the loop immediately.
func RetryRateLimited(ctx context.Context, maxRetries int, base time.Duration, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.MaxInterval = 8 * time.Second
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		if attempt >= maxRetries {
			return err
		}

		delay := bo.NextBackOff() + time.Duration(rand.Int63n(int64(retryJitterMax)))
		if rl.RetryAfter > delay {
			delay = rl.RetryAfter
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
