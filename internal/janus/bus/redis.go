package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends messages to Redis streams via XADD. One stream
// per channel; consumers read with XREAD or consumer groups.
type RedisPublisher struct {
	client *redis.Client
	logger *log.Logger
}

func NewRedisPublisher(client *redis.Client, logger *log.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bus: marshal message: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: channel,
		Values: map[string]interface{}{
			"event_id": msg.EventID,
			"lock_id":  msg.LockID,
			"payload":  payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("bus: xadd %s: %w", channel, err)
	}

	if p.logger != nil {
		p.logger.Printf("bus: published %s to %s (stream id %s)", msg.EventID, channel, id)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
