package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRequestIDGenerated(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/noop", Noop)

	w := doRequest(router, "/noop", nil)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Error("expected a generated X-Request-ID")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/noop", Noop)

	w := doRequest(router, "/noop", map[string]string{"X-Request-ID": "caller-id-1"})
	if rid := w.Header().Get("X-Request-ID"); rid != "caller-id-1" {
		t.Errorf("X-Request-ID = %q, want caller-id-1", rid)
	}
}

func TestIPLimiterFixedWindow(t *testing.T) {
	limiter := newIPLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := limiter.allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, retryAfter := limiter.allow("10.0.0.1")
	if ok {
		t.Fatal("request beyond the limit should be blocked")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v", retryAfter)
	}

	// Other clients keep their own window.
	if ok, _ := limiter.allow("10.0.0.2"); !ok {
		t.Error("a different client must not share the window")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/noop", Noop)

	for i := 0; i < 2; i++ {
		if w := doRequest(router, "/noop", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	w := doRequest(router, "/noop", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestRateLimitMiddlewareFromEnvDisabled(t *testing.T) {
	t.Setenv("SFU_GATEWAY_CHANNEL_RPM", "")
	if _, ok := RateLimitMiddlewareFromEnv(); ok {
		t.Error("limiting should be off when SFU_GATEWAY_CHANNEL_RPM is unset")
	}
}

func TestRateLimitMiddlewareFromEnvInMemory(t *testing.T) {
	t.Setenv("SFU_GATEWAY_CHANNEL_RPM", "5")
	t.Setenv("SFU_GATEWAY_REDIS_ADDR", "")
	mw, ok := RateLimitMiddlewareFromEnv()
	if !ok || mw == nil {
		t.Fatal("expected an in-memory limiter")
	}
}
