package httpmiddleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter is an in-memory per-client token bucket guarding check-in
// submissions. Buckets refill continuously at perMinute tokens per minute.
type Limiter struct {
	capacity  float64
	perMinute float64
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter allowing bursts of capacity requests.
func NewLimiter(capacity, perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if capacity <= 0 {
		capacity = perMinute
	}
	return &Limiter{
		capacity:  float64(capacity),
		perMinute: float64(perMinute),
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

// Middleware returns a gin handler enforcing per-IP limits.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			key = "unknown"
		}
		ok, wait := l.Allow(key)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many check-in attempts"})
			return
		}
		c.Next()
	}
}

// Allow takes one token for key. When the bucket is empty it reports how long
// until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true, 0
	}
	b.tokens += now.Sub(b.last).Minutes() * l.perMinute
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now
	if b.tokens < 1 {
		missing := 1 - b.tokens
		return false, time.Duration(missing / l.perMinute * float64(time.Minute))
	}
	b.tokens--
	return true, 0
}

// sweep drops buckets that have been idle long enough to be full again.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < time.Minute {
		return
	}
	l.lastSweep = now
	full := time.Duration(l.capacity / l.perMinute * float64(time.Minute))
	for k, b := range l.buckets {
		if now.Sub(b.last) > full {
			delete(l.buckets, k)
		}
	}
}
