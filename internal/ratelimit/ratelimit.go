// Package ratelimit keeps one token-bucket limiter per client key, shared by
// the relay and the HTTP API.
package ratelimit

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	pruneInterval = 5 * time.Minute
	maxIdle       = 10 * time.Minute
)

// clientLimiter tracks a per-client rate limiter and when it was last seen.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// Clients is a set of per-client limiters. Stale clients are dropped lazily.
type Clients struct {
	limit rate.Limit
	burst int

	clients   sync.Map // map[string]*clientLimiter
	lastPrune atomic.Int64
	now       func() time.Time
}

// NewClients creates limiters allowing rps sustained requests per second
// with the given burst. A burst below 1 is raised to 1.
func NewClients(rps float64, burst int) *Clients {
	if burst < 1 {
		burst = 1
	}
	c := &Clients{limit: rate.Limit(rps), burst: burst, now: time.Now}
	c.lastPrune.Store(c.now().UnixNano())
	return c
}

// Burst returns the configured burst size.
func (c *Clients) Burst() int { return c.burst }

// Allow reports whether a request from key may proceed now. When it may
// not, retryAfter is how long the client should wait.
func (c *Clients) Allow(key string) (ok bool, retryAfter time.Duration) {
	now := c.now()
	c.maybePrune(now)

	limiter := c.get(key, now)
	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Remaining returns the tokens currently available to key.
func (c *Clients) Remaining(key string) int {
	v, ok := c.clients.Load(key)
	if !ok {
		return c.burst
	}
	return int(v.(*clientLimiter).limiter.TokensAt(c.now()))
}

func (c *Clients) get(key string, now time.Time) *rate.Limiter {
	if v, ok := c.clients.Load(key); ok {
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(now.UnixNano())
		return cl.limiter
	}
	cl := &clientLimiter{limiter: rate.NewLimiter(c.limit, c.burst)}
	cl.lastSeen.Store(now.UnixNano())
	v, _ := c.clients.LoadOrStore(key, cl)
	return v.(*clientLimiter).limiter
}

func (c *Clients) maybePrune(now time.Time) {
	last := c.lastPrune.Load()
	if now.UnixNano()-last < int64(pruneInterval) {
		return
	}
	if !c.lastPrune.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	c.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		if now.UnixNano()-cl.lastSeen.Load() > int64(maxIdle) {
			c.clients.Delete(key)
		}
		return true
	})
}

// HostKey strips the port from a "host:port" address. Addresses without a
// port are returned unchanged.
func HostKey(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
