package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CallerKey identifies who is being rate limited. Authenticated callers are
// keyed by user ID and anonymous callers by remote address; the kind tag
// keeps the two identity spaces from colliding.
type CallerKey struct {
	Kind string // "user" | "addr"
	ID   string
}

func UserCaller(id uuid.UUID) CallerKey {
	return CallerKey{Kind: "user", ID: id.String()}
}

func AddrCaller(addr string) CallerKey {
	return CallerKey{Kind: "addr", ID: addr}
}

func (k CallerKey) String() string {
	return k.Kind + ":" + k.ID
}

// LimiterStore records hits and reports how many fall inside the rolling
// window. Injectable so tests run on the in-memory store while deployments
// share state through Redis.
type LimiterStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
}

type RateLimiter struct {
	store  LimiterStore
	limit  int
	window time.Duration
}

func NewRateLimiter(store LimiterStore, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window}
}

// Allow records one request for the caller and reports whether it fits the
// limit. The limit-th request still passes; the one after is rejected.
func (rl *RateLimiter) Allow(ctx context.Context, key CallerKey) (bool, error) {
	count, err := rl.store.Hit(ctx, "ratelimit:"+key.String(), rl.window)
	if err != nil {
		// A broken limiter backend should not take the API down.
		return true, err
	}
	return count <= rl.limit, nil
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key CallerKey
		if userID := GetUserID(r.Context()); userID != uuid.Nil {
			key = UserCaller(userID)
		} else {
			key = AddrCaller(r.RemoteAddr)
		}

		ok, _ := rl.Allow(r.Context(), key)
		if !ok {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded. Please wait before making more requests.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ─── In-memory store ───

type MemoryLimiterStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryLimiterStore() *MemoryLimiterStore {
	s := &MemoryLimiterStore{hits: make(map[string][]time.Time)}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(time.Minute)
			cutoff := time.Now().Add(-time.Minute)
			s.mu.Lock()
			for key, times := range s.hits {
				if len(times) == 0 || times[len(times)-1].Before(cutoff) {
					delete(s.hits, key)
				}
			}
			s.mu.Unlock()
		}
	}()

	return s
}

func (s *MemoryLimiterStore) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	times := s.hits[key]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	s.hits[key] = kept

	return len(kept), nil
}

// ─── Redis store ───

type RedisLimiterStore struct {
	client *redis.Client
}

func NewRedisLimiterStore(client *redis.Client) *RedisLimiterStore {
	return &RedisLimiterStore{client: client}
}

func (s *RedisLimiterStore) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	now := time.Now()
	cutoff := now.Add(-window)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(count.Val()), nil
}
