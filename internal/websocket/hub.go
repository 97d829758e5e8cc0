package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/models"
	"youinsight-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type userFetcher interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Hub manages websocket connections keyed by user. Outbound events are
// published to a per-user Redis channel and fanned out to every open
// connection for that user, which also serializes writes per user.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	jwt         *middleware.JWTAuth
	limiter     *middleware.RateLimiter
	analysis    *services.AnalysisService
	users       userFetcher
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, jwt *middleware.JWTAuth, limiter *middleware.RateLimiter, analysis *services.AnalysisService, users userFetcher) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		jwt:         jwt,
		limiter:     limiter,
		analysis:    analysis,
		users:       users,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.VerifyToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(userID, conn)

	// In-flight work for this connection is abandoned when it closes.
	connCtx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()
		defer h.unregisterConnection(userID, conn)

		h.Publish(connCtx, userID, "status", models.StatusPayload{Message: "Connected to server"})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var event models.WSEvent
			if err := json.Unmarshal(data, &event); err != nil {
				h.Publish(connCtx, userID, "error", models.ErrorPayload{Message: "Invalid message format"})
				continue
			}

			go h.dispatch(connCtx, userID, event)
		}
	}()
}

func (h *Hub) dispatch(ctx context.Context, userID uuid.UUID, event models.WSEvent) {
	allowed, err := h.limiter.Allow(ctx, middleware.UserCaller(userID))
	if err != nil {
		log.Printf("Rate limit check failed for user %s: %v", userID, err)
	}
	if !allowed {
		h.Publish(ctx, userID, "error", models.ErrorPayload{
			Message: "Rate limit exceeded. Please wait before sending more requests.",
			Reason:  "rate_limited",
		})
		return
	}

	switch event.Event {
	case "search_videos":
		h.handleSearch(ctx, userID, event.Data)
	case "analyze_videos":
		h.handleAnalyze(ctx, userID, event.Data)
	default:
		h.Publish(ctx, userID, "error", models.ErrorPayload{Message: "Unknown event: " + event.Event})
	}
}

func (h *Hub) handleSearch(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
	var req models.SearchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.Publish(ctx, userID, "error", models.ErrorPayload{Message: "Invalid search payload"})
		return
	}

	h.Publish(ctx, userID, "status", models.StatusPayload{Message: "Searching for videos..."})

	videos, err := h.analysis.SearchVideos(ctx, req.Query, req.MaxResults)
	if err != nil {
		h.publishError(ctx, userID, err)
		return
	}

	h.Publish(ctx, userID, "search_results", models.SearchResultsPayload{Videos: videos})
}

func (h *Hub) handleAnalyze(ctx context.Context, userID uuid.UUID, data json.RawMessage) {
	var req models.AnalyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.Publish(ctx, userID, "error", models.ErrorPayload{Message: "Invalid analyze payload"})
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.Publish(ctx, userID, "error", models.ErrorPayload{Message: "User not found"})
		return
	}

	emitter := &wsEmitter{hub: h, ctx: ctx, userID: userID}
	if err := h.analysis.Run(ctx, user, req, emitter); err != nil {
		h.publishError(ctx, userID, err)
	}
}

// publishError maps a service error to exactly one outbound error event.
func (h *Hub) publishError(ctx context.Context, userID uuid.UUID, err error) {
	if ctx.Err() != nil {
		return
	}

	payload := models.ErrorPayload{Message: err.Error()}

	switch e := err.(type) {
	case *services.ValidationError:
		msgs := make([]string, 0, len(e.Fields))
		for _, m := range e.Fields {
			msgs = append(msgs, m)
		}
		sort.Strings(msgs)
		payload.Message = strings.Join(msgs, "; ")
		payload.Reason = "validation"
	case *services.ProviderError:
		payload.Reason = e.Reason
	case *services.NotFoundError:
		payload.Reason = "not_found"
	case *services.RateLimitError:
		payload.Reason = "rate_limited"
	}

	h.Publish(ctx, userID, "error", payload)
}

// Publish sends an event to every open connection of a user via Redis.
func (h *Hub) Publish(ctx context.Context, userID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(models.WSEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	h.redisClient.Publish(ctx, "user_updates:"+userID.String(), string(frame))
}

// wsEmitter adapts hub publishing to the analysis progress interface.
type wsEmitter struct {
	hub    *Hub
	ctx    context.Context
	userID uuid.UUID
}

func (e *wsEmitter) Status(message string) {
	e.hub.Publish(e.ctx, e.userID, "status", models.StatusPayload{Message: message})
}

func (e *wsEmitter) SearchResults(videos []models.VideoSummary) {
	e.hub.Publish(e.ctx, e.userID, "search_results", models.SearchResultsPayload{Videos: videos})
}

func (e *wsEmitter) Started(message string) {
	e.hub.Publish(e.ctx, e.userID, "analysis_started", models.AnalysisStartedPayload{Message: message})
}

func (e *wsEmitter) Chunk(chunk string) {
	e.hub.Publish(e.ctx, e.userID, "analysis_chunk", models.AnalysisChunkPayload{Chunk: chunk})
}

func (e *wsEmitter) Completed(analysisID, conversationID uuid.UUID) {
	e.hub.Publish(e.ctx, e.userID, "analysis_complete", models.AnalysisCompletePayload{
		AnalysisID:     analysisID,
		ConversationID: conversationID,
	})
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)

	// Start pub/sub subscription if this is the first connection for this user
	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribeToPubSub(ctx, userID)
	}

	log.Printf("WebSocket connected: user %s (total: %d)", userID, len(h.connections[userID]))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	log.Printf("WebSocket disconnected: user %s", userID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID uuid.UUID) {
	channel := "user_updates:" + userID.String()
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[userID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
