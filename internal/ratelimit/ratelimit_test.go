package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucketBurstThenDeny(t *testing.T) {
	tb := NewTokenBucket(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d should pass within burst", i)
	}
	assert.False(t, tb.Allow(), "burst exhausted, should deny")
}

func TestIPLimiterIsolatesCallers(t *testing.T) {
	l := NewIPLimiter(1, 1)
	defer l.Stop()

	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	// a different caller has its own bucket
	assert.True(t, l.Allow("2.2.2.2"))
}

func TestIPLimiterEmptyIPAlwaysAllowed(t *testing.T) {
	l := NewIPLimiter(1, 1)
	defer l.Stop()

	assert.True(t, l.Allow(""))
	assert.True(t, l.Allow(""))
}

func TestMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := NewIPLimiter(1, 1)
	defer l.Stop()

	router := gin.New()
	router.Use(Middleware(l))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
}
