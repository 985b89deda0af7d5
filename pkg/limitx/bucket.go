// Package limitx implements fixed-window token buckets for request
// throttling. Unlike a continuously refilling limiter, a bucket's tokens
// reset wholesale when the window elapses, so the reset boundary can be
// reported to clients as an exact timestamp.
package limitx

import (
	"sync"
	"time"
)

// Bucket is a fixed-window token bucket. All reads and writes happen under
// a single mutex so a take and its observed remaining count are consistent.
type Bucket struct {
	capacity int
	window   time.Duration

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewBucket returns a full bucket whose first window starts at now.
func NewBucket(capacity int, window time.Duration, now time.Time) *Bucket {
	return &Bucket{
		capacity:   capacity,
		window:     window,
		tokens:     capacity,
		lastRefill: now,
	}
}

// refillIfDue resets the bucket to full capacity once the current window has
// elapsed. Callers must hold b.mu.
func (b *Bucket) refillIfDue(now time.Time) {
	if now.Sub(b.lastRefill) >= b.window {
		b.tokens = b.capacity
		b.lastRefill = now
	}
}

// Take attempts to consume a single token. It returns whether the request is
// allowed, the tokens remaining after the attempt, and the instant the
// current window resets. The refill check and the decrement happen atomically
// so concurrent callers can never over-consume.
func (b *Bucket) Take(now time.Time) (allowed bool, remaining int, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillIfDue(now)
	resetAt = b.lastRefill.Add(b.window)

	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens, resetAt
	}
	return false, 0, resetAt
}

// TryConsume reports whether a token was consumed.
func (b *Bucket) TryConsume(now time.Time) bool {
	allowed, _, _ := b.Take(now)
	return allowed
}

// Remaining returns the tokens left in the current window, applying any due
// refill first.
func (b *Bucket) Remaining(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillIfDue(now)
	return b.tokens
}

// NextReset returns the instant the current window ends.
func (b *Bucket) NextReset() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastRefill.Add(b.window)
}

// Capacity returns the configured token capacity.
func (b *Bucket) Capacity() int { return b.capacity }

// Window returns the configured window length.
func (b *Bucket) Window() time.Duration { return b.window }
