package repository

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

// ErrConversationExists is returned when a caller-supplied conversation id is
// already taken.
var ErrConversationExists = errors.New("conversation already exists")

const pgUniqueViolation = "23505"

// ConversationRepo persists conversations and messages in Postgres. Every
// call acquires its own pooled connection and commits before returning.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, userID, conversationID string) (string, error) {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	_, err := r.pool.Exec(ctx,
		"INSERT INTO conversations (conversation_id, user_id) VALUES ($1, $2)",
		conversationID, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrConversationExists, conversationID)
		}
		return "", err
	}

	log.Printf("[ConversationRepo] created conversation %s for user %s", conversationID, userID)
	return conversationID, nil
}

func (r *ConversationRepo) ConversationExists(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM conversations WHERE conversation_id = $1 AND user_id = $2)",
		conversationID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *ConversationRepo) AddMessage(ctx context.Context, conversationID, userID string, role models.Role, content string, tokensUsed *int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content, tokens_used)
		VALUES ($1, $2, $3, $4, $5)`,
		conversationID, userID, string(role), content, tokensUsed,
	)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx,
		"UPDATE conversations SET updated_at = NOW() WHERE conversation_id = $1 AND user_id = $2",
		conversationID, userID,
	); err != nil {
		return err
	}

	log.Printf("[ConversationRepo] added %s message to conversation %s", role, conversationID)
	return nil
}

func (r *ConversationRepo) GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, content FROM messages
		WHERE conversation_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC`,
		conversationID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		history = append(history, m)
	}
	return history, rows.Err()
}

func (r *ConversationRepo) GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT conversation_id, created_at, updated_at FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ConversationID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// ClearConversation removes every message of the conversation but keeps the
// conversation itself. It reports false when the owner has no such
// conversation.
func (r *ConversationRepo) ClearConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	found := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM conversations WHERE conversation_id = $1 AND user_id = $2)",
			conversationID, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return nil
		}
		found = true

		_, err := tx.Exec(ctx,
			"DELETE FROM messages WHERE conversation_id = $1 AND user_id = $2",
			conversationID, userID,
		)
		return err
	})
	if err != nil {
		return false, err
	}

	if found {
		log.Printf("[ConversationRepo] cleared conversation %s for user %s", conversationID, userID)
	}
	return found, nil
}

func (r *ConversationRepo) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	found := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			"DELETE FROM messages WHERE conversation_id = $1 AND user_id = $2",
			conversationID, userID,
		); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			"DELETE FROM conversations WHERE conversation_id = $1 AND user_id = $2",
			conversationID, userID,
		)
		if err != nil {
			return err
		}
		found = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if found {
		log.Printf("[ConversationRepo] deleted conversation %s for user %s", conversationID, userID)
	}
	return found, nil
}
