package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/services"
)

type chatService interface {
	Chat(ctx context.Context, userMessage, userID, conversationID string) (*models.ChatResponse, error)
	ClearConversation(ctx context.Context, conversationID, userID string) (bool, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error)
	GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error)
}

type ChatHandler struct {
	chatService chatService
}

func NewChatHandler(chatService chatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := services.ValidateChatRequest(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	log.Printf("[ChatHandler] received chat request (conversation: %q)", req.ConversationID)

	resp, err := h.chatService.Chat(r.Context(), req.Content, req.UserID, strings.TrimSpace(req.ConversationID))
	if err != nil {
		log.Printf("[ChatHandler] chat failed: %v", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, userID, ok := conversationParams(w, r)
	if !ok {
		return
	}

	cleared, err := h.chatService.ClearConversation(r.Context(), conversationID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !cleared {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Conversation cleared"})
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, userID, ok := conversationParams(w, r)
	if !ok {
		return
	}

	deleted, err := h.chatService.DeleteConversation(r.Context(), conversationID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Conversation deleted"})
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "user_id is required", r))
		return
	}

	conversations, err := h.chatService.GetUserConversations(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
	})
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	conversationID, userID, ok := conversationParams(w, r)
	if !ok {
		return
	}

	history, err := h.chatService.GetConversationHistory(r.Context(), conversationID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": conversationID,
		"messages":        history,
	})
}

func conversationParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	conversationID := chi.URLParam(r, "conversation_id")
	userID := r.URL.Query().Get("user_id")

	fields := make(map[string]string)
	if conversationID == "" {
		fields["conversation_id"] = "Conversation ID is required"
	}
	if userID == "" {
		fields["user_id"] = "user_id query parameter is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return "", "", false
	}
	return conversationID, userID, true
}
