package main

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var errRateLimited = &StatusError{
	Status:  http.StatusTooManyRequests,
	Code:    CodeRateLimited,
	Message: "Too many requests, try again later",
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	mu        sync.Mutex
	clients   map[string]*rateClient
	lastSweep time.Time
	now       func() time.Time
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		ttl:     10 * time.Minute,
		clients: make(map[string]*rateClient),
		now:     time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.ttl {
		rl.sweep(now)
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// sweep drops clients idle for longer than ttl. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.ttl {
			delete(rl.clients, k)
		}
	}

	rl.lastSweep = now
}

func (s *APIServer) rateLimit(f APIFunc) APIFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
			return errRateLimited
		}

		return f(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
