package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errLimiterClosed is returned by Acquire once the owning client is closed.
var errLimiterClosed = errors.New("llm: rate limiter closed")

// tokenBucket refills lazily on Acquire, so it owns no goroutine.
type tokenBucket struct {
	rate  float64 // tokens per second
	burst float64
	now   func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// newTokenBucket returns nil when rps <= 0; a nil bucket never blocks.
func newTokenBucket(rps float64, burst int) *tokenBucket {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	b := &tokenBucket{
		rate:   rps,
		burst:  float64(burst),
		now:    time.Now,
		tokens: float64(burst),
		done:   make(chan struct{}),
	}
	b.last = b.now()
	return b
}

// reserve takes a token if one is available, otherwise reports how long
// until the next one.
func (b *tokenBucket) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now
	if b.tokens >= 1 {
		b.tokens--
		return 0
	}
	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Acquire blocks until a token is available, the context ends or the
// bucket is closed.
func (b *tokenBucket) Acquire(ctx context.Context) error {
	if b == nil {
		return nil
	}
	for {
		select {
		case <-b.done:
			return errLimiterClosed
		default:
		}
		wait := b.reserve()
		if wait == 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-b.done:
			timer.Stop()
			return errLimiterClosed
		case <-timer.C:
		}
	}
}

// Close wakes blocked callers. Safe to call more than once.
func (b *tokenBucket) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() { close(b.done) })
}
