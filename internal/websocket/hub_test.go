package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/models"
	"youinsight-backend/internal/services"
)

type fakeUserFetcher struct{}

func (f *fakeUserFetcher) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id}, nil
}

// deadRedis returns a client pointing nowhere; publishes fail silently,
// which is all these tests need.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})
}

func newTestHub(limit int) (*Hub, *middleware.RateLimiter) {
	limiter := middleware.NewRateLimiter(middleware.NewMemoryLimiterStore(), limit, time.Minute)
	analysis := services.NewAnalysisService(nil, nil, nil, nil)
	hub := NewHub(deadRedis(), middleware.NewJWTAuth("test-secret"), limiter, analysis, &fakeUserFetcher{})
	return hub, limiter
}

func TestDispatch_CountsAgainstUserLimit(t *testing.T) {
	hub, limiter := newTestHub(2)
	userID := uuid.New()
	ctx := context.Background()

	hub.dispatch(ctx, userID, models.WSEvent{Event: "noop"})
	hub.dispatch(ctx, userID, models.WSEvent{Event: "noop"})

	// Both dispatches must have consumed the user's budget
	if ok, _ := limiter.Allow(ctx, middleware.UserCaller(userID)); ok {
		t.Error("expected user budget exhausted after two dispatched events")
	}
}

func TestDispatch_UsersDoNotShareBudget(t *testing.T) {
	hub, limiter := newTestHub(1)
	userA := uuid.New()
	userB := uuid.New()
	ctx := context.Background()

	hub.dispatch(ctx, userA, models.WSEvent{Event: "noop"})

	if ok, _ := limiter.Allow(ctx, middleware.UserCaller(userB)); !ok {
		t.Error("another user's event consumed this user's budget")
	}
}
