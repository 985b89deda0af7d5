package limitx

import (
	"sync"
	"time"
)

// Registry defaults applied when Config fields are zero.
const (
	DefaultIdleTTL    = 10 * time.Minute
	DefaultMaxEntries = 50_000
)

// Config describes the buckets a Registry hands out and the bounds on how
// many it retains.
type Config struct {
	// Capacity is the token capacity of each bucket.
	Capacity int
	// Window is the fixed refill window of each bucket.
	Window time.Duration
	// IdleTTL is how long an untouched bucket survives before eviction.
	IdleTTL time.Duration
	// MaxEntries caps the number of live buckets. When the cap is reached,
	// idle entries are evicted; if none are idle, the least recently used
	// entry is dropped.
	MaxEntries int
}

type entry struct {
	bucket     *Bucket
	lastAccess time.Time
}

// Registry maps client keys to their token bucket. Buckets are created
// lazily on first access and evicted when idle, so memory stays bounded
// under churn from ephemeral clients.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRegistry creates an empty registry. Zero IdleTTL and MaxEntries fall
// back to the package defaults.
func NewRegistry(cfg Config) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Registry{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns the bucket for key, creating a full one if the key has
// not been seen or was evicted. Concurrent first accesses for the same key
// resolve to a single bucket since creation happens under the registry lock.
func (r *Registry) GetOrCreate(key string, now time.Time) *Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.lastAccess = now
		return e.bucket
	}

	if len(r.entries) >= r.cfg.MaxEntries {
		r.evictLocked(now)
	}

	b := NewBucket(r.cfg.Capacity, r.cfg.Window, now)
	r.entries[key] = &entry{bucket: b, lastAccess: now}
	return b
}

// evictLocked removes idle entries; if none qualified it drops the least
// recently accessed entry so a new one always fits. Callers must hold r.mu.
func (r *Registry) evictLocked(now time.Time) {
	removed := 0
	for key, e := range r.entries {
		if now.Sub(e.lastAccess) >= r.cfg.IdleTTL {
			delete(r.entries, key)
			removed++
		}
	}
	if removed > 0 {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, e := range r.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(r.entries, oldestKey)
	}
}

// Sweep removes every entry idle past the TTL and returns how many were
// dropped.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, e := range r.entries {
		if now.Sub(e.lastAccess) >= r.cfg.IdleTTL {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live buckets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Capacity returns the per-bucket token capacity handed to new buckets.
func (r *Registry) Capacity() int { return r.cfg.Capacity }

// Window returns the per-bucket refill window.
func (r *Registry) Window() time.Duration { return r.cfg.Window }

// StartJanitor launches a background sweep loop. onSweep, if non-nil, is
// invoked after each sweep with the live bucket count. Calling StartJanitor
// twice without StopJanitor in between is a bug.
func (r *Registry) StartJanitor(interval time.Duration, onSweep func(live int)) {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})

	go func() {
		defer close(r.doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep(time.Now())
				if onSweep != nil {
					onSweep(r.Len())
				}
			case <-r.stopCh:
				return
			}
		}
	}()
}

// StopJanitor stops the sweep loop and waits for it to exit. Safe to call
// when the janitor was never started.
func (r *Registry) StopJanitor() {
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	<-r.doneCh
	r.stopCh = nil
}
