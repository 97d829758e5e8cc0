package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"youinsight-backend/internal/cache"
	"youinsight-backend/internal/config"
	"youinsight-backend/internal/database"
	"youinsight-backend/internal/handlers"
	"youinsight-backend/internal/middleware"
	"youinsight-backend/internal/repository"
	"youinsight-backend/internal/router"
	"youinsight-backend/internal/services"
	"youinsight-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting YouInsight Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	analysisRepo := repository.NewAnalysisRepo(pool)

	// ──── Step 5: Initialize Services ────
	store := cache.NewRedisStore(redisClients.Cache)

	youtubeService, err := services.NewYouTubeService(cfg.YouTubeAPIKey, store, cfg.SearchCacheTTL, cfg.TranscriptCacheTTL)
	if err != nil {
		log.Fatalf("✗ YouTube client initialization failed: %v", err)
	}
	log.Println("✓ YouTube Data API client initialized")

	geminiService := services.NewGeminiService(
		cfg.GeminiModel,
		cfg.GeminiTemperature,
		cfg.GeminiTopP,
		int32(cfg.GeminiTopK),
		int32(cfg.GeminiMaxOutputTokens),
	)
	log.Printf("✓ Gemini service configured (model: %s)", cfg.GeminiModel)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, jwtAuth, emailService)
	analysisService := services.NewAnalysisService(youtubeService, geminiService, videoRepo, analysisRepo)

	limiter := middleware.NewRateLimiter(
		middleware.NewRedisLimiterStore(redisClients.Cache),
		cfg.RateLimitPerMinute,
		time.Minute,
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(analysisService, videoRepo, youtubeService)
	analysisHandler := handlers.NewAnalysisHandler(analysisRepo, videoRepo)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, limiter, analysisService, userRepo)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		limiter,
		authHandler,
		videoHandler,
		analysisHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ YouInsight Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
