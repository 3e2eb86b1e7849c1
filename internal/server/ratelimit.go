package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces a fixed-window request budget per client.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientWindow
}

type clientWindow struct {
	start time.Time
	count int
}

// NewRateLimiter allows limit requests per client in each window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
	}
}

// Allow records one request from client at now, or returns a
// *RateLimitError when the client's window is exhausted.
func (rl *RateLimiter) Allow(client string, now time.Time) error {
	if rl.limit <= 0 {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[client]
	if !ok || now.Sub(cw.start) >= rl.window {
		rl.pruneLocked(now)
		rl.clients[client] = &clientWindow{start: now, count: 1}
		return nil
	}
	if cw.count >= rl.limit {
		return &RateLimitError{
			Limit:      rl.limit,
			RetryAfter: rl.window - now.Sub(cw.start),
		}
	}
	cw.count++
	return nil
}

// Used returns how many requests client has made in its current window.
func (rl *RateLimiter) Used(client string, now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cw, ok := rl.clients[client]
	if !ok || now.Sub(cw.start) >= rl.window {
		return 0
	}
	return cw.count
}

// pruneLocked drops expired windows so idle clients do not accumulate.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	for id, cw := range rl.clients {
		if now.Sub(cw.start) >= rl.window {
			delete(rl.clients, id)
		}
	}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}
