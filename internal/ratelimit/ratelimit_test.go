package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryFixedWindow(t *testing.T) {
	clk := &clock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemory(2, time.Minute, WithClock(clk.now))
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		res, _ := l.Allow(ctx, "daily_1.2.3.4")
		if res.Allowed != want {
			t.Fatalf("request %d: allowed=%v, want %v", i+1, res.Allowed, want)
		}
	}

	res, _ := l.Allow(ctx, "daily_5.6.7.8")
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("other key should have its own window: %+v", res)
	}

	clk.t = clk.t.Add(30 * time.Second)
	res, _ = l.Allow(ctx, "daily_1.2.3.4")
	if res.Allowed || res.RetryAfter != 30*time.Second {
		t.Fatalf("expected denial with 30s retry, got %+v", res)
	}

	clk.t = clk.t.Add(30 * time.Second)
	if res, _ := l.Allow(ctx, "daily_1.2.3.4"); !res.Allowed {
		t.Fatal("window should have reset")
	}
}

func TestMemoryBoundedCapacity(t *testing.T) {
	clk := &clock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemory(1, time.Minute, WithClock(clk.now), WithCapacity(3))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		clk.t = clk.t.Add(time.Second)
		if res, _ := l.Allow(ctx, k); !res.Allowed {
			t.Fatalf("first request for %s denied", k)
		}
	}
	if n := l.Len(); n > 3 {
		t.Fatalf("tracked %d keys, capacity 3", n)
	}
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (Result, error) {
	return Result{}, errors.New("down")
}

func TestMiddleware(t *testing.T) {
	clk := &clock{t: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	byIP := func(r *http.Request) string { return "daily_" + r.RemoteAddr }

	h := Middleware(NewMemory(2, time.Minute, WithClock(clk.now)), byIP)(ok)

	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/daily/submit", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
		}
	}
	want := []int{200, 200, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}

	open := Middleware(errLimiter{}, byIP)(ok)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/daily/submit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("limiter errors should fail open, got %d", rec.Code)
	}
}

// TestRedis runs against a real server when TEST_REDIS_URL is set.
func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	l := NewRedis(rdb, 2, time.Minute)
	key := "test_" + uuid.NewString()
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		res, err := l.Allow(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if res.Allowed != want {
			t.Fatalf("request %d: allowed=%v, want %v", i+1, res.Allowed, want)
		}
		if !want && res.RetryAfter <= 0 {
			t.Fatalf("denial should carry a retry delay, got %v", res.RetryAfter)
		}
	}
}
