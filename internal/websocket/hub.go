package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
	"github.com/DejusDevspace/MindEase-AI-Integration/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type chatService interface {
	Chat(ctx context.Context, userMessage, userID, conversationID string) (*models.ChatResponse, error)
}

// session is one open chat UI connection. It remembers the conversation it
// is talking in so follow-up frames can omit the id.
type session struct {
	conn           *websocket.Conn
	userID         string
	conversationID string
	writeMu        sync.Mutex
}

func (s *session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) send(msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.write(data)
}

// Hub serves chat sessions over websockets and relays turn events published
// on Redis to every open session of the same user.
type Hub struct {
	mu          sync.RWMutex
	sessions    map[string][]*session
	chat        chatService
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
}

// NewHub creates a hub. redisClient may be nil, in which case sessions only
// receive replies to their own messages.
func NewHub(chat chatService, redisClient *redis.Client) *Hub {
	return &Hub{
		sessions:    make(map[string][]*session),
		chat:        chat,
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := services.ValidateUserID(userID); err != nil {
		http.Error(w, "user_id must be between 1 and 255 characters", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Hub] websocket upgrade failed: %v", err)
		return
	}

	sess := &session{conn: conn, userID: userID}
	h.register(sess)

	go func() {
		defer h.unregister(sess)
		h.readLoop(sess)
	}()
}

func (h *Hub) readLoop(sess *session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame models.WSChatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			sess.send(errorMessage("VALIDATION_ERROR", "Invalid message format"))
			continue
		}

		h.handleFrame(ctx, sess, frame)
	}
}

func (h *Hub) handleFrame(ctx context.Context, sess *session, frame models.WSChatFrame) {
	req := models.ChatRequest{
		UserID:         sess.userID,
		Content:        frame.Content,
		ConversationID: frame.ConversationID,
	}
	if err := services.ValidateChatRequest(req); err != nil {
		sess.send(errorMessage("VALIDATION_ERROR", "Message must be between 1 and 5000 characters"))
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = sess.conversationID
	}

	resp, err := h.chat.Chat(ctx, req.Content, req.UserID, req.ConversationID)
	if err != nil {
		log.Printf("[Hub] chat failed for user %s: %v", sess.userID, err)
		var chatErr *services.ChatError
		if errors.As(err, &chatErr) {
			sess.send(errorMessage("CHAT_FAILED", "Failed to process your message. Please try again."))
		} else {
			sess.send(errorMessage("INTERNAL_ERROR", "An unexpected error occurred. Please try again later."))
		}
		return
	}

	sess.conversationID = resp.ConversationID
	sess.send(models.WSMessage{Type: models.WSTypeChatResponse, Payload: resp})
}

func errorMessage(code, message string) models.WSMessage {
	return models.WSMessage{
		Type:    models.WSTypeError,
		Payload: models.ErrorEvent{Code: code, Message: message},
	}
}

func (h *Hub) register(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[sess.userID] = append(h.sessions[sess.userID], sess)

	// Start pub/sub subscription if this is the first session for this user
	if h.redisClient != nil && len(h.sessions[sess.userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sess.userID] = cancel
		go h.subscribeToPubSub(ctx, sess.userID)
	}

	log.Printf("[Hub] session opened: user %s (total: %d)", sess.userID, len(h.sessions[sess.userID]))
}

func (h *Hub) unregister(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess.conn.Close()

	sessions := h.sessions[sess.userID]
	for i, s := range sessions {
		if s == sess {
			h.sessions[sess.userID] = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}

	// If no more sessions, cancel pub/sub
	if len(h.sessions[sess.userID]) == 0 {
		delete(h.sessions, sess.userID)
		if cancel, ok := h.cancelFuncs[sess.userID]; ok {
			cancel()
			delete(h.cancelFuncs, sess.userID)
		}
	}

	log.Printf("[Hub] session closed: user %s", sess.userID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, userID string) {
	pubsub := h.redisClient.Subscribe(ctx, services.UserChannel(userID))
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

func (h *Hub) broadcast(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sess := range h.sessions[userID] {
		sess.write(data)
	}
}

// SessionCount reports how many sessions a user has open.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}
