package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"farmerconnect/utils"

	"github.com/redis/go-redis/v9"
)

// NotificationsChannel carries every stored notification
const NotificationsChannel = "farmerconnect:notifications"

// Publisher fans domain events out to other processes
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	Close() error
}

// RedisPublisher publishes JSON payloads over Redis pub/sub
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to the Redis server at url and pings it
func NewRedisPublisher(ctx context.Context, url string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher only logs events; used when Redis is not configured
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, channel string, payload any) error {
	utils.Debug("event published", map[string]any{"channel": channel, "payload": payload})
	return nil
}

func (LogPublisher) Close() error { return nil }
