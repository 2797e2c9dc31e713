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

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/config"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/database"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/handlers"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/middleware"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/repository"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/router"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/services"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/websocket"
)

func main() {
	log.Println("🚀 Starting MindEase Chatbot API...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	log.Printf("✓ Environment variables loaded (env: %s, provider: %s, db: %s)", cfg.Env, cfg.LLMProvider, cfg.DBDriver)

	// ──── Step 2: Open Conversation Store ────
	var store services.ConversationStore
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if cfg.DBReset {
			if err := database.ResetPostgres(pool); err != nil {
				log.Fatalf("✗ Database reset failed: %v", err)
			}
			log.Println("✓ Database reset")
		}

		if err := database.RunMigrations(pool, database.Migrations()); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")

		store = repository.NewConversationRepo(pool)

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, cfg.DBReset)
		if err != nil {
			log.Fatalf("✗ SQLite open failed: %v", err)
		}
		defer db.Close()
		log.Printf("✓ SQLite ready at %s", cfg.SQLitePath)

		store = repository.NewSQLiteConversationRepo(db)
	}

	// ──── Step 3: Initialize Redis Clients (optional) ────
	var (
		publisher   services.TurnPublisher
		redisClient *database.RedisClients
	)
	if cfg.RedisURL != "" {
		clients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer clients.Close()
		redisClient = clients
		publisher = services.NewRedisTurnPublisher(clients.Events)
		log.Println("✓ Redis connected")
	} else {
		log.Println("• REDIS_URL not set, turn events disabled")
	}

	// ──── Step 4: Initialize LLM Provider ────
	var (
		provider services.CompletionProvider
		model    string
	)
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		provider = services.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL)
		model = cfg.GroqModel
	case config.ProviderGemini:
		gemini, err := services.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer gemini.Close()
		provider = gemini
		model = cfg.GeminiModel
	}
	provider = services.NewLimitedProvider(provider, cfg.LLMConcurrentReqs, cfg.LLMQueueTimeout)
	log.Printf("✓ %s client initialized (model: %s, max %d concurrent)", cfg.LLMProvider, model, cfg.LLMConcurrentReqs)

	// ──── Step 5: Initialize Services & Handlers ────
	chatService := services.NewChatService(store, provider, publisher, services.ChatOptions{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Debug:       cfg.Debug,
	})
	chatHandler := handlers.NewChatHandler(chatService)

	// ──── Step 6: Start WebSocket Hub ────
	var wsHub *websocket.Hub
	if redisClient != nil {
		wsHub = websocket.NewHub(chatService, redisClient.PubSub)
	} else {
		wsHub = websocket.NewHub(chatService, nil)
	}
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	chatLimiter := middleware.NewRateLimiter(cfg.ChatRatePerMinute, time.Minute)
	r := router.New(chatHandler, wsHub.HandleWebSocket, chatLimiter, cfg.CORSOrigin)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		chatLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ MindEase Chatbot API ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/v1/ws?user_id=<id>", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
