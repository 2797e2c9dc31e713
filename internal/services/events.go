package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/DejusDevspace/MindEase-AI-Integration/internal/models"
)

// TurnPublisher announces completed chat turns to other sessions of a user.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, userID string, evt models.TurnEvent) error
}

// UserChannel is the pub/sub channel carrying a user's turn events.
func UserChannel(userID string) string {
	return fmt.Sprintf("conversation_updates:%s", userID)
}

type RedisTurnPublisher struct {
	redis *redis.Client
}

func NewRedisTurnPublisher(client *redis.Client) *RedisTurnPublisher {
	return &RedisTurnPublisher{redis: client}
}

func (p *RedisTurnPublisher) PublishTurn(ctx context.Context, userID string, evt models.TurnEvent) error {
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeTurnCompleted, Payload: evt})
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, UserChannel(userID), string(data)).Err()
}
