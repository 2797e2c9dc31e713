package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

type storedMessage struct {
	userID     string
	role       models.Role
	content    string
	tokensUsed *int
}

type stubStore struct {
	mu            sync.Mutex
	owners        map[string]string
	messages      map[string][]storedMessage
	nextID        int
	failAddOnRole models.Role
}

func newStubStore() *stubStore {
	return &stubStore{
		owners:   make(map[string]string),
		messages: make(map[string][]storedMessage),
	}
}

func (s *stubStore) CreateConversation(ctx context.Context, userID, conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID == "" {
		s.nextID++
		conversationID = fmt.Sprintf("conv-%d", s.nextID)
	}
	if _, ok := s.owners[conversationID]; ok {
		return "", errors.New("duplicate conversation id")
	}
	s.owners[conversationID] = userID
	return conversationID, nil
}

func (s *stubStore) ConversationExists(ctx context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[conversationID]
	return ok && owner == userID, nil
}

func (s *stubStore) AddMessage(ctx context.Context, conversationID, userID string, role models.Role, content string, tokensUsed *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAddOnRole == role {
		return errors.New("disk full")
	}
	s.messages[conversationID] = append(s.messages[conversationID], storedMessage{userID, role, content, tokensUsed})
	return nil
}

func (s *stubStore) GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := []models.ChatMessage{}
	for _, m := range s.messages[conversationID] {
		if m.userID == userID {
			history = append(history, models.ChatMessage{Role: m.role, Content: m.content})
		}
	}
	return history, nil
}

func (s *stubStore) GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for id, owner := range s.owners {
		if owner == userID {
			out = append(out, models.Conversation{ConversationID: id})
		}
	}
	return out, nil
}

func (s *stubStore) ClearConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[conversationID] != userID {
		return false, nil
	}
	delete(s.messages, conversationID)
	return true, nil
}

func (s *stubStore) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[conversationID] != userID {
		return false, nil
	}
	delete(s.messages, conversationID)
	delete(s.owners, conversationID)
	return true, nil
}

type capturingProvider struct {
	requests []CompletionRequest
	reply    string
	tokens   int
	err      error
}

func (p *capturingProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &Completion{Content: p.reply, TotalTokens: p.tokens}, nil
}

type recordingPublisher struct {
	userIDs []string
	events  []models.TurnEvent
	err     error
}

func (p *recordingPublisher) PublishTurn(ctx context.Context, userID string, evt models.TurnEvent) error {
	p.userIDs = append(p.userIDs, userID)
	p.events = append(p.events, evt)
	return p.err
}

func newTestService(store ConversationStore, provider CompletionProvider, publisher TurnPublisher) *ChatService {
	return NewChatService(store, provider, publisher, ChatOptions{
		Model:       "llama-3.3-70b-versatile",
		MaxTokens:   500,
		Temperature: 0.7,
	})
}

func TestChat_DebugLogsProviderRequest(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	ctx := context.Background()
	provider := &capturingProvider{reply: "ok", tokens: 1}

	quiet := newTestService(newStubStore(), provider, nil)
	quiet.Chat(ctx, "hello", "u1", "")
	if strings.Contains(buf.String(), "sending") {
		t.Fatalf("provider requests must not be logged without debug: %s", buf.String())
	}

	verbose := NewChatService(newStubStore(), provider, nil, ChatOptions{Model: "m", Debug: true})
	verbose.Chat(ctx, "hello", "u1", "")
	if !strings.Contains(buf.String(), "sending 2 turns to m") {
		t.Fatalf("expected debug log of the provider request, got: %s", buf.String())
	}
}

func TestChat_MultiTurnHistoryGrows(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	provider := &capturingProvider{reply: "Exam anxiety is so real.", tokens: 87}
	svc := newTestService(store, provider, nil)

	first, err := svc.Chat(ctx, "I'm stressed about exams", "u1", "")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if first.Message == "" || first.ConversationID == "" || first.TokensUsed <= 0 {
		t.Fatalf("unexpected first response: %+v", first)
	}

	second, err := svc.Chat(ctx, "How do I start?", "u1", first.ConversationID)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected conversation %s to continue, got %s", first.ConversationID, second.ConversationID)
	}

	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(provider.requests))
	}
	firstLen := len(provider.requests[0].Messages)
	secondLen := len(provider.requests[1].Messages)
	if firstLen != 2 {
		t.Fatalf("expected system + user turn on first call, got %d", firstLen)
	}
	if secondLen != firstLen+2 {
		t.Fatalf("expected history to grow by 2, got %d -> %d", firstLen, secondLen)
	}

	turns := provider.requests[1].Messages
	if turns[0].Role != models.RoleSystem || !strings.Contains(turns[0].Content, "MindEase") {
		t.Fatalf("expected system prompt first, got %+v", turns[0])
	}
	if turns[1] != (models.ChatMessage{Role: models.RoleUser, Content: "I'm stressed about exams"}) {
		t.Fatalf("unexpected history turn 1: %+v", turns[1])
	}
	if turns[2] != (models.ChatMessage{Role: models.RoleAssistant, Content: "Exam anxiety is so real."}) {
		t.Fatalf("unexpected history turn 2: %+v", turns[2])
	}
	if turns[3] != (models.ChatMessage{Role: models.RoleUser, Content: "How do I start?"}) {
		t.Fatalf("expected new user turn last, got %+v", turns[3])
	}

	req := provider.requests[0]
	if req.Model != "llama-3.3-70b-versatile" || req.MaxTokens != 500 || req.Temperature != 0.7 {
		t.Fatalf("unexpected provider options: %+v", req)
	}
}

func TestChat_PersistsUserThenAssistant(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	provider := &capturingProvider{reply: "I hear you.", tokens: 12}
	svc := newTestService(store, provider, nil)

	resp, err := svc.Chat(ctx, "hello", "u1", "")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	rows := store.messages[resp.ConversationID]
	if len(rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(rows))
	}
	if rows[0].role != models.RoleUser || rows[0].tokensUsed != nil {
		t.Fatalf("expected user row without token count, got %+v", rows[0])
	}
	if rows[1].role != models.RoleAssistant || rows[1].tokensUsed == nil || *rows[1].tokensUsed != 12 {
		t.Fatalf("expected assistant row with token count 12, got %+v", rows[1])
	}
}

func TestChat_AdoptsUnknownConversationID(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(store, &capturingProvider{reply: "hi", tokens: 3}, nil)

	resp, err := svc.Chat(ctx, "hello", "u1", "my-own-id")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.ConversationID != "my-own-id" {
		t.Fatalf("expected caller-supplied id to be adopted, got %s", resp.ConversationID)
	}
	if store.owners["my-own-id"] != "u1" {
		t.Fatalf("expected conversation to be created for u1")
	}
}

func TestChat_ForeignConversationIDFails(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	store.CreateConversation(ctx, "owner", "taken")
	provider := &capturingProvider{reply: "hi", tokens: 3}
	svc := newTestService(store, provider, nil)

	_, err := svc.Chat(ctx, "hello", "intruder", "taken")
	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("expected ChatError, got %v", err)
	}
	if len(provider.requests) != 0 {
		t.Fatalf("provider must not be called when the conversation cannot be resolved")
	}
}

func TestChat_ProviderFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	cause := errors.New("upstream 503")
	svc := newTestService(store, &capturingProvider{err: cause}, nil)

	_, err := svc.Chat(ctx, "hello", "u1", "conv-x")
	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("expected ChatError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected ChatError to wrap the provider error")
	}
	if len(store.messages["conv-x"]) != 0 {
		t.Fatalf("expected no persisted messages after provider failure")
	}
}

func TestChat_AssistantWriteFailureLeavesUserMessage(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	store.failAddOnRole = models.RoleAssistant
	publisher := &recordingPublisher{}
	svc := newTestService(store, &capturingProvider{reply: "hi", tokens: 3}, publisher)

	_, err := svc.Chat(ctx, "hello", "u1", "conv-y")
	var chatErr *ChatError
	if !errors.As(err, &chatErr) {
		t.Fatalf("expected ChatError, got %v", err)
	}

	rows := store.messages["conv-y"]
	if len(rows) != 1 || rows[0].role != models.RoleUser {
		t.Fatalf("expected a single orphaned user message, got %+v", rows)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no turn event should be published for a failed turn")
	}
}

func TestChat_PublishesTurnEvent(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{err: errors.New("redis down")}
	svc := newTestService(newStubStore(), &capturingProvider{reply: "hi", tokens: 9}, publisher)

	resp, err := svc.Chat(ctx, "hello", "u1", "")
	if err != nil {
		t.Fatalf("publish failures must not fail the turn: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	if publisher.userIDs[0] != "u1" || publisher.events[0].ConversationID != resp.ConversationID || publisher.events[0].TokensUsed != 9 {
		t.Fatalf("unexpected event: %s %+v", publisher.userIDs[0], publisher.events[0])
	}
}

func TestChatService_DelegatesClearAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := newTestService(store, &capturingProvider{reply: "hi", tokens: 1}, nil)

	resp, _ := svc.Chat(ctx, "hello", "u1", "")

	if ok, _ := svc.ClearConversation(ctx, "missing", "u1"); ok {
		t.Fatalf("expected clear of missing conversation to return false")
	}
	if ok, _ := svc.DeleteConversation(ctx, resp.ConversationID, "u2"); ok {
		t.Fatalf("expected delete by non-owner to return false")
	}
	if ok, _ := svc.ClearConversation(ctx, resp.ConversationID, "u1"); !ok {
		t.Fatalf("expected clear to return true")
	}
	if ok, _ := svc.DeleteConversation(ctx, resp.ConversationID, "u1"); !ok {
		t.Fatalf("expected delete to return true")
	}

	convs, _ := svc.GetUserConversations(ctx, "u1")
	if len(convs) != 0 {
		t.Fatalf("expected no conversations after delete, got %d", len(convs))
	}
}

func TestChatService_GetConversationHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newStubStore(), &capturingProvider{reply: "hi", tokens: 1}, nil)

	resp, _ := svc.Chat(ctx, "hello", "u1", "")

	history, err := svc.GetConversationHistory(ctx, resp.ConversationID, "u1")
	if err != nil {
		t.Fatalf("GetConversationHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}

	_, err = svc.GetConversationHistory(ctx, resp.ConversationID, "u2")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for other user, got %v", err)
	}
}

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"valid", "u1", false},
		{"whitespace", " ", false},
		{"empty", "", true},
		{"at limit", strings.Repeat("é", 255), false},
		{"too long", strings.Repeat("a", 256), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUserID(tc.userID)
			if tc.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) || vErr.Fields["user_id"] == "" {
					t.Fatalf("expected user_id ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       models.ChatRequest
		badFields []string
	}{
		{"valid", models.ChatRequest{UserID: "u1", Content: "hi"}, nil},
		{"missing user", models.ChatRequest{Content: "hi"}, []string{"user_id"}},
		{"whitespace content", models.ChatRequest{UserID: "u1", Content: "   "}, nil},
		{"empty content", models.ChatRequest{UserID: "u1", Content: ""}, []string{"content"}},
		{"user too long", models.ChatRequest{UserID: strings.Repeat("a", 256), Content: "hi"}, []string{"user_id"}},
		{"content too long", models.ChatRequest{UserID: "u1", Content: strings.Repeat("é", 5001)}, []string{"content"}},
		{"content at limit", models.ChatRequest{UserID: "u1", Content: strings.Repeat("é", 5000)}, nil},
		{"both missing", models.ChatRequest{}, []string{"user_id", "content"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateChatRequest(tc.req)
			if tc.badFields == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(vErr.Fields) != len(tc.badFields) {
				t.Fatalf("expected fields %v, got %v", tc.badFields, vErr.Fields)
			}
			for _, f := range tc.badFields {
				if _, ok := vErr.Fields[f]; !ok {
					t.Fatalf("expected field %q to be flagged, got %v", f, vErr.Fields)
				}
			}
		})
	}
}
