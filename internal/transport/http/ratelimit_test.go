package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"remote addr", "", "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", "203.0.113.9, 10.0.0.2", "10.0.0.1:5555", "203.0.113.9"},
		{"bare remote addr", "", "10.0.0.1", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("a")
	now = now.Add(11 * time.Minute)
	rl.GetLimiter("b")
	rl.evictIdle()

	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}
