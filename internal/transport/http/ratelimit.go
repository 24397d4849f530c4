package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter caps inbound actions per connection per minute. Single-reader
// use only: each websocket read loop owns its limiter.
type rateLimiter struct {
	limit   int
	counter int
	reset   *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit: limit,
		reset: time.NewTicker(time.Minute),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	select {
	case <-r.reset.C:
		r.counter = 0
	default:
	}
	r.counter++
	return r.counter <= r.limit
}

func (r *rateLimiter) stop() {
	if r != nil && r.reset != nil {
		r.reset.Stop()
	}
}

// userRateLimiter caps requests per user per fixed one-minute window. Unlike
// rateLimiter it is safe for concurrent use, since REST requests for the same
// user can arrive on any connection.
type userRateLimiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	windows map[int64]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func newUserRateLimiter(limit int) *userRateLimiter {
	return &userRateLimiter{
		limit:   limit,
		now:     time.Now,
		windows: make(map[int64]*rateWindow),
	}
}

func (r *userRateLimiter) allow(userID int64) bool {
	if r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.windows[userID]
	if !ok || now.Sub(w.start) >= time.Minute {
		r.windows[userID] = &rateWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= r.limit
}

// RateLimitMiddleware caps how often the authenticated user may hit the
// routes it guards, per minute. A non-positive limit disables the check.
func RateLimitMiddleware(limit int) gin.HandlerFunc {
	limiter := newUserRateLimiter(limit)
	return func(c *gin.Context) {
		uid, ok := currentUserID(c)
		if ok && !limiter.allow(uid) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
