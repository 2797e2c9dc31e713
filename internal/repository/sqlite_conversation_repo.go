package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

// SQLiteConversationRepo is the single-file variant of ConversationRepo.
type SQLiteConversationRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteConversationRepo(db *sql.DB) *SQLiteConversationRepo {
	return &SQLiteConversationRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SQLiteConversationRepo) CreateConversation(ctx context.Context, userID, conversationID string) (string, error) {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	now := r.now()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO conversations (conversation_id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		conversationID, userID, now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", fmt.Errorf("%w: %s", ErrConversationExists, conversationID)
		}
		return "", err
	}

	log.Printf("[SQLiteConversationRepo] created conversation %s for user %s", conversationID, userID)
	return conversationID, nil
}

func (r *SQLiteConversationRepo) ConversationExists(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM conversations WHERE conversation_id = ? AND user_id = ?)",
		conversationID, userID,
	).Scan(&exists)
	return exists, err
}

func (r *SQLiteConversationRepo) AddMessage(ctx context.Context, conversationID, userID string, role models.Role, content string, tokensUsed *int) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, userID, string(role), content, tokensUsed, now,
	)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE conversation_id = ? AND user_id = ?",
		now, conversationID, userID,
	); err != nil {
		return err
	}

	log.Printf("[SQLiteConversationRepo] added %s message to conversation %s", role, conversationID)
	return nil
}

func (r *SQLiteConversationRepo) GetConversationHistory(ctx context.Context, conversationID, userID string) ([]models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content FROM messages
		WHERE conversation_id = ? AND user_id = ?
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

func (r *SQLiteConversationRepo) GetUserConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT conversation_id, created_at, updated_at FROM conversations
		WHERE user_id = ?
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

func (r *SQLiteConversationRepo) ClearConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM conversations WHERE conversation_id = ? AND user_id = ?)",
		conversationID, userID,
	).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	log.Printf("[SQLiteConversationRepo] cleared conversation %s for user %s", conversationID, userID)
	return true, nil
}

func (r *SQLiteConversationRepo) DeleteConversation(ctx context.Context, conversationID, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM conversations WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	log.Printf("[SQLiteConversationRepo] deleted conversation %s for user %s", conversationID, userID)
	return true, nil
}
