// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the per-class fixed-window quotas that govern the
// business endpoints: each route group belongs to a named class (general API
// traffic, search, cargo posting, quoting, chat) with its own request budget
// and window. Unlike the token-bucket edge limiter, fixed windows can report
// the caller's remaining budget and the window reset time, which the
// middleware surfaces through X-RateLimit-* headers on every response.
//
// Counters live behind the CounterStore interface. The in-memory store is the
// default for single-process deployments; a shared store can be dropped in
// for horizontal scale without touching the middleware.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Class names one request budget: Limit requests per Window, keyed per caller.
type Class struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Default classes. Budgets are per authenticated user (or per IP before the
// identity gate).
var (
	ClassAPI    = Class{Name: "api", Limit: 100, Window: time.Minute}
	ClassAuth   = Class{Name: "auth", Limit: 10, Window: time.Minute}
	ClassSearch = Class{Name: "search", Limit: 200, Window: time.Minute}
	ClassCargo  = Class{Name: "cargo", Limit: 20, Window: time.Hour}
	ClassQuotes = Class{Name: "quotes", Limit: 50, Window: time.Hour}
	ClassChat   = Class{Name: "chat", Limit: 500, Window: time.Hour}
)

// WithLimit returns a copy of the class with its budget replaced. Non-positive
// values keep the default.
func (c Class) WithLimit(n int) Class {
	if n > 0 {
		c.Limit = n
	}
	return c
}

// CounterStore tracks fixed-window counters. Incr consumes one unit from the
// window containing now and reports the post-increment count and the window's
// expiry.
type CounterStore interface {
	Incr(key string, window time.Duration, now time.Time) (count int, resetAt time.Time)
}

// windowEntry is one live counter.
type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryCounterStore is a process-local CounterStore. Expired entries are
// reset in place on access and swept opportunistically to bound memory.
//
// Safe for concurrent use.
type MemoryCounterStore struct {
	mu       sync.Mutex
	entries  map[string]*windowEntry
	cleanupN uint64
}

// NewMemoryCounterStore constructs an empty store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{entries: make(map[string]*windowEntry)}
}

// Incr implements CounterStore.
func (s *MemoryCounterStore) Incr(key string, window time.Duration, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep stale windows every ~5000 lookups, before touching the
	// requested key so its own stale window can be collected too.
	s.cleanupN++
	if s.cleanupN >= 5000 {
		for k, e := range s.entries {
			if !now.Before(e.resetAt) {
				delete(s.entries, k)
			}
		}
		s.cleanupN = 0
	}

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, e.resetAt
}

// ClassLimiter enforces per-class fixed-window budgets keyed by caller.
type ClassLimiter struct {
	store CounterStore
	keyFn keyFunc
	now   func() time.Time
}

// NewClassLimiter constructs a ClassLimiter over store, keyed by keyFn.
func NewClassLimiter(store CounterStore, keyFn keyFunc) *ClassLimiter {
	return &ClassLimiter{store: store, keyFn: keyFn, now: time.Now}
}

// Handler returns a Gin middleware enforcing class's budget.
//
// Every response, allowed or not, carries:
//
//	X-RateLimit-Limit:     the class budget
//	X-RateLimit-Remaining: requests left in the current window
//	X-RateLimit-Reset:     window expiry as a Unix timestamp
//
// Requests beyond the budget get 429 with Retry-After and the standard
// envelope.
func (l *ClassLimiter) Handler(class Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := l.now()
		key := class.Name + ":" + l.keyFn(c)
		count, resetAt := l.store.Incr(key, class.Window, now)

		remaining := class.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(class.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > class.Limit {
			retry := int(time.Until(resetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			ObserveRateLimited(class.Name)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "rate_limited",
					"message": "rate limit exceeded for " + class.Name,
					"details": gin.H{
						"limit":    class.Limit,
						"reset_at": resetAt.UTC().Format(time.RFC3339),
					},
				},
				"timestamp": now.UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
