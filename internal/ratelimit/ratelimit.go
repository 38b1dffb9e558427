// Package ratelimit throttles the public search/download endpoints
// per caller IP with token buckets.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket refills at rate tokens/second up to burst.
type TokenBucket struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	return &TokenBucket{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
	}
}

func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastUpdate).Seconds()
	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now

	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tokens := tb.tokens + now.Sub(tb.lastUpdate).Seconds()*tb.rate
	if tokens > float64(tb.burst) {
		tokens = float64(tb.burst)
	}
	return tokens
}

// IPLimiter keeps one bucket per caller IP and drops idle buckets
// periodically so the map cannot grow without bound.
type IPLimiter struct {
	rate    float64
	burst   int
	buckets sync.Map // ip -> *TokenBucket

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewIPLimiter(rate float64, burst int) *IPLimiter {
	l := &IPLimiter{
		rate:   rate,
		burst:  burst,
		stopCh: make(chan struct{}),
	}
	go l.cleanupLoop(5 * time.Minute)
	return l
}

func (l *IPLimiter) Allow(ip string) bool {
	if ip == "" {
		return true
	}
	return l.bucket(ip).Allow()
}

func (l *IPLimiter) bucket(ip string) *TokenBucket {
	if b, ok := l.buckets.Load(ip); ok {
		return b.(*TokenBucket)
	}
	b := NewTokenBucket(l.rate, l.burst)
	actual, _ := l.buckets.LoadOrStore(ip, b)
	return actual.(*TokenBucket)
}

func (l *IPLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.buckets.Range(func(key, value any) bool {
				// a full bucket has seen no recent traffic
				if value.(*TokenBucket).Tokens() >= float64(l.burst) {
					l.buckets.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *IPLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Middleware rejects over-limit callers with 429.
func Middleware(l *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
