package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimiterIdleTTL is how long an unused client limiter is kept.
const DefaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterRegistry keeps one token bucket per client (usually the remote IP).
//
// Buckets idle for longer than the TTL are swept lazily, at most once per TTL.
type RateLimiterRegistry struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiterRegistry creates a registry allowing rps events per second per
// client with the given burst. A burst below 1 defaults to ceil(rps).
func NewRateLimiterRegistry(rps float64, burst int) *RateLimiterRegistry {
	if burst < 1 {
		burst = int(rps)
		if float64(burst) < rps || burst < 1 {
			burst++
		}
	}
	return &RateLimiterRegistry{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      DefaultLimiterIdleTTL,
		now:      time.Now,
	}
}

// Allow reports whether client may perform one more event now.
func (r *RateLimiterRegistry) Allow(client string) bool {
	return r.GetOrCreate(client).AllowN(r.now(), 1)
}

// GetOrCreate retrieves an existing rate limiter or creates a new one.
func (r *RateLimiterRegistry) GetOrCreate(client string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	if cl, ok := r.limiters[client]; ok {
		cl.lastSeen = now
		return cl.limiter
	}

	cl := &clientLimiter{
		limiter:  rate.NewLimiter(r.limit, r.burst),
		lastSeen: now,
	}
	r.limiters[client] = cl
	return cl.limiter
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Delete removes the rate limiter of client.
func (r *RateLimiterRegistry) Delete(client string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limiters, client)
}

func (r *RateLimiterRegistry) sweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < r.ttl {
		return
	}
	r.lastSweep = now
	for client, cl := range r.limiters {
		if now.Sub(cl.lastSeen) >= r.ttl {
			delete(r.limiters, client)
		}
	}
}
