package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/yourusername/xkoj/pkg/wire"
)

// RateLimitConfig mirrors original_source/include/core/middleware.h's
// RateLimitConfig: a fixed counting window, not a token bucket (spec.md
// §4.3: "maintains per-key sliding counters... bumps the counter; on
// exceeding max_requests within window_seconds...").
type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
	KeyFunc       func(req *wire.Request) string
}

// DefaultRateLimitConfig matches the original's documented defaults
// (max_requests=100, window_seconds=3600, key_generator="ip").
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests:   100,
		WindowSeconds: 3600,
		KeyFunc:       keyByClientIP,
	}
}

func keyByClientIP(req *wire.Request) string {
	return req.ClientIP
}

// KeyByAuthorizationHeader rate-limits by the raw Authorization header
// value, matching the original's "authorization" key_generator option.
func KeyByAuthorizationHeader(req *wire.Request) string {
	return req.Header.Get("Authorization")
}

// counterEntry is one key's window counter. The original's
// request_counts_ is a plain unordered_map mutated by every worker with
// no synchronization — spec.md §9 calls this out as a latent data race
// that the redesign must fix. Each entry here owns its own mutex so
// concurrent requests for different keys never contend (grounded on
// bolt/middleware/ratelimit.go's limiterEntry, whose per-entry locking
// solves the identical problem for its token-bucket state).
type counterEntry struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	lastAccess  time.Time
}

// limiterStore is the sync.Map-backed, sharded-lock replacement for the
// original's unsynchronized map.
type limiterStore struct {
	entries sync.Map // key -> *counterEntry
	window  time.Duration
	max     int
}

func newLimiterStore(maxRequests, windowSeconds int) *limiterStore {
	return &limiterStore{
		window: time.Duration(windowSeconds) * time.Second,
		max:    maxRequests,
	}
}

// result is what allow() needs to populate the X-RateLimit-* headers.
type result struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

func (ls *limiterStore) allow(key string) result {
	now := time.Now()
	actual, _ := ls.entries.LoadOrStore(key, &counterEntry{windowStart: now, lastAccess: now})
	entry := actual.(*counterEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.Sub(entry.windowStart) >= ls.window {
		entry.windowStart = now
		entry.count = 0
	}
	entry.lastAccess = now
	entry.count++

	remaining := ls.max - entry.count
	if remaining < 0 {
		remaining = 0
	}
	return result{
		allowed:   entry.count <= ls.max,
		remaining: remaining,
		resetAt:   entry.windowStart.Add(ls.window),
	}
}

// evictStale removes entries not accessed for 2x the window (spec.md
// §4.3: "Expired entries (older than 2 × window_seconds) are evicted
// lazily"). Called once per window by a background goroutine that
// RateLimit starts, rather than inline in allow(), so a single request
// never pays the full sweep cost.
func (ls *limiterStore) evictStale() {
	cutoff := 2 * ls.window
	now := time.Now()
	ls.entries.Range(func(key, value any) bool {
		entry := value.(*counterEntry)
		entry.mu.Lock()
		age := now.Sub(entry.lastAccess)
		entry.mu.Unlock()
		if age > cutoff {
			ls.entries.Delete(key)
		}
		return true
	})
}

// RateLimit returns the rate-limit middleware (spec.md §4.3, §8 S6): each
// request bumps the per-key counter; exceeding MaxRequests within
// WindowSeconds writes 429 with X-RateLimit-Limit/-Remaining/-Reset and
// short-circuits.
func RateLimit(config RateLimitConfig) Func {
	if config.MaxRequests == 0 {
		config.MaxRequests = 100
	}
	if config.WindowSeconds == 0 {
		config.WindowSeconds = 3600
	}
	if config.KeyFunc == nil {
		config.KeyFunc = keyByClientIP
	}

	store := newLimiterStore(config.MaxRequests, config.WindowSeconds)
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(store.window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.evictStale()
			case <-stop:
				return
			}
		}
	}()

	return func(req *wire.Request, resp *wire.Response) bool {
		res := store.allow(config.KeyFunc(req))

		resp.Header.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		resp.Header.Set("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
		resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(res.resetAt.Unix(), 10))

		if !res.allowed {
			resp.Status(429)
			_ = resp.JSON(map[string]string{"error": "rate limit exceeded"})
			return false
		}
		return true
	}
}
