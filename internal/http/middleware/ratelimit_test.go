package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEdgeRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", OptionalAuth(), rl.Handler(), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	// Zero refill: exactly burst requests pass, then 429.
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := newEdgeRouter(rl)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User-ID", "user1")
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d, want 429", codes[2])
	}
}

func TestRateLimiter_SeparateBucketsPerIdentity(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r := newEdgeRouter(rl)

	do := func(userID string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if userID != "" {
			req.Header.Set("X-User-ID", userID)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("user1"); code != http.StatusOK {
		t.Fatalf("user1: status %d", code)
	}
	if code := do("user1"); code != http.StatusTooManyRequests {
		t.Fatalf("user1 exhausted: status %d", code)
	}
	if code := do("user2"); code != http.StatusOK {
		t.Fatalf("user2 must have its own bucket: status %d", code)
	}
	// Anonymous traffic keys by IP, separate from any user bucket.
	if code := do(""); code != http.StatusOK {
		t.Fatalf("anonymous: status %d", code)
	}
}

func TestRateLimiter_RejectionCarriesRetryAfter(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r := newEdgeRouter(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User-ID", "user1")
		r.ServeHTTP(w, req)
		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("status %d, want 429", w.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Fatal("429 missing Retry-After")
			}
		}
	}
}
