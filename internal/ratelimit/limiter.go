// Package ratelimit provides token-bucket rate limiters for AWS calls and API
// clients, plus per-audit activity budgets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Service names understood by ServiceLimiter.
const (
	ServiceAthena     = "Athena"
	ServiceCloudWatch = "CloudWatch"
	ServiceSTS        = "STS"
)

// ServiceRates configures per-service request rates (requests per second).
type ServiceRates struct {
	Athena     float64
	CloudWatch float64
	STS        float64
}

// DefaultServiceRates returns conservative AWS rate limits.
func DefaultServiceRates() ServiceRates {
	return ServiceRates{
		Athena:     5,
		CloudWatch: 20,
		STS:        10,
	}
}

// ServiceLimiter rate-limits AWS API calls per service using token buckets.
type ServiceLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewServiceLimiter creates a limiter with the given per-service rates.
func NewServiceLimiter(rates ServiceRates) *ServiceLimiter {
	limiters := map[string]*rate.Limiter{
		ServiceAthena:     rate.NewLimiter(rate.Limit(rates.Athena), burst(rates.Athena)),
		ServiceCloudWatch: rate.NewLimiter(rate.Limit(rates.CloudWatch), burst(rates.CloudWatch)),
		ServiceSTS:        rate.NewLimiter(rate.Limit(rates.STS), burst(rates.STS)),
	}
	return &ServiceLimiter{limiters: limiters}
}

func burst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

// Wait blocks until a token is available for the named service, or ctx is cancelled.
// A nil ServiceLimiter never blocks.
func (sl *ServiceLimiter) Wait(ctx context.Context, service string) error {
	if sl == nil {
		return nil
	}
	sl.mu.RLock()
	limiter, ok := sl.limiters[service]
	sl.mu.RUnlock()
	if !ok {
		return nil // unknown service = no limit
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", service, err)
	}
	return nil
}

// DefaultClientIdle is how long a client bucket may sit unused before it is dropped.
const DefaultClientIdle = 10 * time.Minute

// ClientLimiter keeps one token bucket per client key (API caller). Buckets
// idle for longer than the idle window, and never shorter than a full refill,
// are dropped, so an evicted client comes back to the same full bucket.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter creates a per-client limiter allowing rps sustained and burst peak requests.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	idle := DefaultClientIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &ClientLimiter{
		clients: make(map[string]*clientBucket),
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

// Allow reports whether the client may make a request now.
func (cl *ClientLimiter) Allow(key string) bool {
	cl.mu.Lock()
	now := cl.now()
	cl.sweep(now)
	b, ok := cl.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[key] = b
	}
	b.lastSeen = now
	cl.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// sweep drops idle buckets, at most once per half idle window. Callers hold mu.
func (cl *ClientLimiter) sweep(now time.Time) {
	if now.Sub(cl.lastSweep) < cl.idle/2 {
		return
	}
	cl.lastSweep = now
	for key, b := range cl.clients {
		if now.Sub(b.lastSeen) > cl.idle {
			delete(cl.clients, key)
		}
	}
}

// Clients returns the number of tracked clients.
func (cl *ClientLimiter) Clients() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}
