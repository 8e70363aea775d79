// Package notification delivers workflow notifications to organizations.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Message is a notification addressed to an organization.
type Message struct {
	Kind           string    `json:"kind"`
	TicketID       string    `json:"ticket_id"`
	TicketNumber   string    `json:"ticket_number"`
	OrganizationID string    `json:"organization_id"`
	Text           string    `json:"text"`
	Data           any       `json:"data,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// Notifier delivers messages. Delivery is best-effort for callers.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Publisher is the pub/sub primitive the Redis notifier relies on.
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// RedisNotifier publishes JSON encoded messages on a channel.
type RedisNotifier struct {
	publisher Publisher
	channel   string
}

// NewRedisNotifier builds a notifier publishing on channel.
func NewRedisNotifier(publisher Publisher, channel string) *RedisNotifier {
	return &RedisNotifier{publisher: publisher, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.channel, body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// LogNotifier only logs messages. Used when Redis is disabled.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		zap.String("kind", msg.Kind),
		zap.String("ticket_id", msg.TicketID),
		zap.String("ticket_number", msg.TicketNumber),
		zap.String("organization_id", msg.OrganizationID),
		zap.String("text", msg.Text))
	return nil
}
