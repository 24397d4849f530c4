package http

import (
	"testing"
	"time"
)

func TestUserRateLimiterCapsPerWindow(t *testing.T) {
	limiter := newUserRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.allow(1) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.allow(1) {
		t.Error("request over the limit should be denied")
	}

	// Other users have their own windows.
	if !limiter.allow(2) {
		t.Error("a different user should not be affected")
	}
}

func TestUserRateLimiterResetsAfterWindow(t *testing.T) {
	limiter := newUserRateLimiter(1)

	now := time.Now()
	limiter.now = func() time.Time { return now }

	if !limiter.allow(1) {
		t.Fatal("first request should be allowed")
	}
	if limiter.allow(1) {
		t.Fatal("second request in the same window should be denied")
	}

	limiter.now = func() time.Time { return now.Add(time.Minute) }
	if !limiter.allow(1) {
		t.Error("request in a fresh window should be allowed")
	}
}

func TestUserRateLimiterDisabled(t *testing.T) {
	limiter := newUserRateLimiter(0)

	for i := 0; i < 100; i++ {
		if !limiter.allow(1) {
			t.Fatal("zero limit must disable the check")
		}
	}
}
