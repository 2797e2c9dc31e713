package models

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	UserID         string `json:"user_id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the assistant reply for one turn.
type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	TokensUsed     int    `json:"tokens_used"`
}

type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
