package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"youinsight-backend/internal/handlers"
	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	limiter *middleware.RateLimiter,
	authHandler *handlers.AuthHandler,
	videoHandler *handlers.VideoHandler,
	analysisHandler *handlers.AnalysisHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public, rate limited per IP) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// ──── Profile ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Put("/profile", authHandler.UpdateProfile)
		})

		// ──── Video Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(limiter.Middleware)
			r.Post("/search", videoHandler.Search)
			r.Get("/videos/{video_id}", videoHandler.GetVideo)
			r.Post("/transcript", videoHandler.GetTranscript)
		})

		// ──── Analysis Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/analyses/{id}", analysisHandler.GetAnalysis)
			r.Get("/conversations/{id}", analysisHandler.GetConversation)
			r.Get("/history", analysisHandler.History)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
