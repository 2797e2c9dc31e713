package models

// WebSocket message types
const (
	WSTypeChatResponse  = "chat_response"
	WSTypeTurnCompleted = "turn_completed"
	WSTypeError         = "error"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSChatFrame is an inbound chat message on a UI session.
type WSChatFrame struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// TurnEvent is published after both turns of an exchange are persisted.
type TurnEvent struct {
	ConversationID string `json:"conversation_id"`
	TokensUsed     int    `json:"tokens_used"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
