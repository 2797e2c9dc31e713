package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients carries turn events. Events is used by the chat service to
// publish; PubSub backs the websocket hub's per-user subscriptions.
type RedisClients struct {
	Events *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := dialRedis(ctx, opt, "events")
	if err != nil {
		return nil, err
	}

	subOpt := *opt
	pubsub, err := dialRedis(ctx, &subOpt, "pubsub")
	if err != nil {
		events.Close()
		return nil, err
	}

	return &RedisClients{Events: events, PubSub: pubsub}, nil
}

func dialRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Events.Close()
	r.PubSub.Close()
}
