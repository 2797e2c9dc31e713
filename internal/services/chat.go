package services

import (
	"context"
	"log"
	"unicode/utf8"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

const (
	maxUserIDLength  = 255
	maxContentLength = 5000
)

// ConversationStore is the persistence contract the chat service relies on.
// Both the Postgres and SQLite repositories satisfy it.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, conversationID string) (string, error)
	ConversationExists(ctx context.Context, conversationID, userID string) (bool, error)
	AddMessage(ctx context.Context, conversationID, userID string, role models.Role, content string, tokensUsed *int) error
	GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error)
	GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	ClearConversation(ctx context.Context, conversationID, userID string) (bool, error)
	DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error)
}

type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Debug       bool // log each provider request
}

type ChatService struct {
	store     ConversationStore
	provider  CompletionProvider
	publisher TurnPublisher
	opts      ChatOptions
	prompt    string
}

// NewChatService wires the orchestration service. publisher may be nil.
func NewChatService(store ConversationStore, provider CompletionProvider, publisher TurnPublisher, opts ChatOptions) *ChatService {
	return &ChatService{
		store:     store,
		provider:  provider,
		publisher: publisher,
		opts:      opts,
		prompt:    mindEaseSystemPrompt,
	}
}

// ValidateUserID checks the user id length shared by every transport.
func ValidateUserID(userID string) error {
	if msg := userIDProblem(userID); msg != "" {
		return &ValidationError{Fields: map[string]string{"user_id": msg}}
	}
	return nil
}

func userIDProblem(userID string) string {
	switch n := utf8.RuneCountInString(userID); {
	case n == 0:
		return "User ID is required"
	case n > maxUserIDLength:
		return "User ID must be at most 255 characters"
	}
	return ""
}

// ValidateChatRequest checks the request shape accepted by every transport.
func ValidateChatRequest(req models.ChatRequest) error {
	fields := make(map[string]string)

	if msg := userIDProblem(req.UserID); msg != "" {
		fields["user_id"] = msg
	}

	switch n := utf8.RuneCountInString(req.Content); {
	case n == 0:
		fields["content"] = "Message is required"
	case n > maxContentLength:
		fields["content"] = "Message must be at most 5000 characters"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Chat runs one conversational turn. An empty conversationID starts a new
// conversation; an id unknown to this user is adopted as a new conversation.
// The user message is persisted only after the provider has answered.
func (s *ChatService) Chat(ctx context.Context, userMessage, userID, conversationID string) (*models.ChatResponse, error) {
	convID, err := s.resolveConversation(ctx, userID, conversationID)
	if err != nil {
		log.Printf("[ChatService] resolve conversation failed for user %s: %v", userID, err)
		return nil, &ChatError{Err: err}
	}

	history, err := s.store.GetConversationHistory(ctx, convID, userID)
	if err != nil {
		log.Printf("[ChatService] load history failed for conversation %s: %v", convID, err)
		return nil, &ChatError{Err: err}
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: s.prompt})
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: userMessage})

	if s.opts.Debug {
		log.Printf("[ChatService] sending %d turns to %s for conversation %s", len(messages), s.opts.Model, convID)
	}

	completion, err := s.provider.Complete(ctx, CompletionRequest{
		Model:       s.opts.Model,
		Messages:    messages,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		log.Printf("[ChatService] completion failed for conversation %s: %v", convID, err)
		return nil, &ChatError{Err: err}
	}

	if err := s.store.AddMessage(ctx, convID, userID, models.RoleUser, userMessage, nil); err != nil {
		log.Printf("[ChatService] persist user message failed for conversation %s: %v", convID, err)
		return nil, &ChatError{Err: err}
	}

	tokens := completion.TotalTokens
	if err := s.store.AddMessage(ctx, convID, userID, models.RoleAssistant, completion.Content, &tokens); err != nil {
		log.Printf("[ChatService] persist assistant message failed for conversation %s: %v", convID, err)
		return nil, &ChatError{Err: err}
	}

	log.Printf("[ChatService] response generated for conversation %s, user %s. Tokens: %d", convID, userID, tokens)

	if s.publisher != nil {
		evt := models.TurnEvent{ConversationID: convID, TokensUsed: tokens}
		if err := s.publisher.PublishTurn(ctx, userID, evt); err != nil {
			log.Printf("[ChatService] publish turn event failed for conversation %s: %v", convID, err)
		}
	}

	return &models.ChatResponse{
		Message:        completion.Content,
		ConversationID: convID,
		TokensUsed:     tokens,
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, userID, conversationID string) (string, error) {
	if conversationID == "" {
		return s.store.CreateConversation(ctx, userID, "")
	}

	exists, err := s.store.ConversationExists(ctx, conversationID, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return s.store.CreateConversation(ctx, userID, conversationID)
	}
	return conversationID, nil
}

func (s *ChatService) ClearConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	return s.store.ClearConversation(ctx, conversationID, userID)
}

func (s *ChatService) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	return s.store.DeleteConversation(ctx, conversationID, userID)
}

func (s *ChatService) GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.store.GetUserConversations(ctx, userID)
}

// GetConversationHistory returns the ordered turns of a conversation, or a
// NotFoundError when the user owns no such conversation.
func (s *ChatService) GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error) {
	exists, err := s.store.ConversationExists(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Message: "Conversation not found"}
	}
	return s.store.GetConversationHistory(ctx, conversationID, userID)
}
