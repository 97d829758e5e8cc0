package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRateLimiter_EleventhRequestRejected(t *testing.T) {
	rl := NewRateLimiter(NewMemoryLimiterStore(), 10, time.Minute)
	ctx := context.Background()
	key := UserCaller(uuid.New())

	for i := 1; i <= 10; i++ {
		ok, err := rl.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow returned error on request %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("Request %d within limit was rejected", i)
		}
	}

	ok, _ := rl.Allow(ctx, key)
	if ok {
		t.Error("11th request within the window should be rejected")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(NewMemoryLimiterStore(), 2, 20*time.Millisecond)
	ctx := context.Background()
	key := AddrCaller("10.0.0.1:1234")

	rl.Allow(ctx, key)
	rl.Allow(ctx, key)
	if ok, _ := rl.Allow(ctx, key); ok {
		t.Fatal("3rd request inside window should be rejected")
	}

	time.Sleep(25 * time.Millisecond)

	if ok, _ := rl.Allow(ctx, key); !ok {
		t.Error("Request after window elapsed should be allowed")
	}
}

func TestRateLimiter_CallerKindsDoNotCollide(t *testing.T) {
	rl := NewRateLimiter(NewMemoryLimiterStore(), 1, time.Minute)
	ctx := context.Background()

	id := uuid.New()
	userKey := UserCaller(id)
	addrKey := AddrCaller(id.String())

	if ok, _ := rl.Allow(ctx, userKey); !ok {
		t.Fatal("First user request should be allowed")
	}

	// Same raw ID through the addr space must have its own budget.
	if ok, _ := rl.Allow(ctx, addrKey); !ok {
		t.Error("Addr caller sharing the raw ID must not inherit the user caller's hits")
	}
}

func TestRateLimiter_IndependentCallers(t *testing.T) {
	rl := NewRateLimiter(NewMemoryLimiterStore(), 1, time.Minute)
	ctx := context.Background()

	rl.Allow(ctx, UserCaller(uuid.New()))

	if ok, _ := rl.Allow(ctx, UserCaller(uuid.New())); !ok {
		t.Error("A different caller should not be affected by another caller's hits")
	}
}
