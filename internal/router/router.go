package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/handlers"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	wsHandler http.HandlerFunc,
	chatLimiter *middleware.RateLimiter,
	corsOrigin string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(corsOrigin))

	r.Get("/", handlers.Root)
	r.Get("/health", handlers.Health)

	r.Route("/v1", func(r chi.Router) {

		// ──── Chat ────
		r.Group(func(r chi.Router) {
			if chatLimiter != nil {
				r.Use(chatLimiter.Middleware)
			}
			r.Post("/chat", chatHandler.Chat)
		})

		// ──── Conversations ────
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", chatHandler.ListConversations)
			r.Delete("/{conversation_id}", chatHandler.ClearConversation)
			r.Delete("/{conversation_id}/delete", chatHandler.DeleteConversation)
			r.Get("/{conversation_id}/messages", chatHandler.GetHistory)
		})

		// ──── WebSocket ────
		if wsHandler != nil {
			r.Get("/ws", wsHandler)
		}
	})

	return r
}
