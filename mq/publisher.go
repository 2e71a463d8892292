package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// NotificationChannel is the Redis pub/sub channel the mail worker listens on.
const NotificationChannel = "notification-events"

// RedisPublisher hands events to whichever mail worker is subscribed.
type RedisPublisher struct {
	conn *redis.Client
}

func NewRedisPublisher(conn *redis.Client) *RedisPublisher {
	return &RedisPublisher{conn: conn}
}

func (p *RedisPublisher) Send(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(ctx, NotificationChannel, data).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	log.Printf("[Emit] %s for %s published to %s", ev.Type, ev.Email, NotificationChannel)
	return nil
}

// LogSender only logs. It is used when neither Redis nor SMTP is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, ev Event) error {
	log.Printf("[Notify] %s -> %s (%s)", ev.Type, ev.Email, ev.OrderID)
	return nil
}
