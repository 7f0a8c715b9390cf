package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"antigravity/internal/metrics"
)

// Rate-limit defaults: 30 requests per 15-minute window per client IP,
// matching the public endpoints' historical limits.
const (
	DefaultRateLimit  = 30
	DefaultRateWindow = 15 * time.Minute
)

// Limiter gates public requests per client key.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(r.Context(), clientIP(r)) {
			metrics.IncRateLimited()
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please wait a few minutes and try again.")
			return
		}
		next(w, r)
	}
}

// RedisLimiter counts requests in redis with a fixed window, so the limit
// holds across replicas.
type RedisLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

// NewRedisLimiter creates a redis-backed limiter.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	if max <= 0 {
		max = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RedisLimiter{client: client, max: int64(max), window: window}
}

// Allow increments the caller's window counter. Redis errors fail open: a
// broken cache must not take the booking form down.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, l.window)
	}
	return count <= l.max
}

// MemoryLimiter is the in-process fallback when redis is not configured.
// Each client gets a token bucket sized to the window budget.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*memoryBucket
	max      int
	window   time.Duration
	lastSeen time.Duration
}

type memoryBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &MemoryLimiter{
		buckets:  make(map[string]*memoryBucket),
		max:      max,
		window:   window,
		lastSeen: 2 * window,
	}
}

// Allow consumes a token for the key, creating its bucket on first sight.
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &memoryBucket{
			limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max),
			seen:    time.Now(),
		}
		l.buckets[key] = b
		l.cleanupLocked()
	}
	b.seen = time.Now()
	return b.limiter.Allow()
}

// cleanupLocked drops buckets idle for two windows. Called with the lock
// held on bucket creation, keeping the map bounded without a janitor
// goroutine.
func (l *MemoryLimiter) cleanupLocked() {
	cutoff := time.Now().Add(-l.lastSeen)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
