// Package retry provides the bounded-retry policy applied at transport-call
// boundaries.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy is a bounded exponential backoff: attempt n sleeps
// BaseDelay*2^(n-1) plus up to Jitter before retrying.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// Default matches the transport discipline used throughout: three attempts,
// 500ms base delay.
var Default = Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Jitter: 100 * time.Millisecond}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn up to MaxAttempts times, stopping early when fn succeeds, when
// retryable reports the error as permanent, or when ctx is done. The last
// error is returned.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.attempts(); attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if p.Jitter > 0 {
				delay += time.Duration(rand.Int63n(int64(p.Jitter)))
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return err
}
