// internal/ratelimit/ratelimit.go
//
// Fixed-window request limiting for the leaderboard submission path.
//   - Limiter is injected into the HTTP layer.
//   - Memory: single-instance, bounded number of tracked keys.
//   - Redis: shared across instances (INCR + EXPIRE NX per window, Redis 7+).
//   - Middleware fails open when the limiter itself errors.

package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Result describes one Allow decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// Limiter admits or rejects a request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// DefaultCapacity bounds the keys tracked by Memory.
const DefaultCapacity = 10000

type window struct {
	count int
	reset time.Time
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu       sync.Mutex
	limit    int
	period   time.Duration
	capacity int
	now      func() time.Time
	windows  map[string]*window
}

// Option configures Memory.
type Option func(*Memory)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Memory) { m.now = now } }

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option { return func(m *Memory) { m.capacity = n } }

// NewMemory allows limit requests per key per period.
func NewMemory(limit int, period time.Duration, opts ...Option) *Memory {
	m := &Memory{
		limit:    limit,
		period:   period,
		capacity: DefaultCapacity,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		if !ok && len(m.windows) >= m.capacity {
			m.evict(now)
		}
		w = &window{reset: now.Add(m.period)}
		m.windows[key] = w
	}
	w.count++

	if w.count > m.limit {
		return Result{RetryAfter: w.reset.Sub(now)}, nil
	}
	return Result{Allowed: true, Remaining: m.limit - w.count}, nil
}

// evict drops expired windows, then the window closest to reset if the map
// is still full. Caller holds mu.
func (m *Memory) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, k)
			continue
		}
		if oldestKey == "" || w.reset.Before(oldest) {
			oldestKey, oldest = k, w.reset
		}
	}
	if len(m.windows) >= m.capacity && oldestKey != "" {
		delete(m.windows, oldestKey)
	}
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Redis is a fixed-window limiter shared by every instance using rdb.
type Redis struct {
	rdb    *redis.Client
	limit  int
	period time.Duration
	prefix string
}

// NewRedis allows limit requests per key per period.
func NewRedis(rdb *redis.Client, limit int, period time.Duration) *Redis {
	return &Redis{rdb: rdb, limit: limit, period: period, prefix: "uwguessr:ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	k := r.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, r.period)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("redis limiter: %w", err)
	}

	n := int(incr.Val())
	if n > r.limit {
		return Result{RetryAfter: ttl.Val()}, nil
	}
	return Result{Allowed: true, Remaining: r.limit - n}, nil
}

// Middleware rejects requests over the limit with 429. key derives the
// limiter key from the request (typically the client IP).
func Middleware(l Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				secs := int((res.RetryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
