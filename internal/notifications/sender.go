package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Sender delivers an order confirmation to whatever channel backs it.
type Sender interface {
	Send(ctx context.Context, msg OrderConfirmation) error
}

type publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// PubSubSender publishes confirmations as JSON to a Pub/Sub topic for the
// mail worker to pick up.
type PubSubSender struct {
	client publisher
	topic  string
	logg   *logger.Logger
}

func NewPubSubSender(client publisher, topic string, logg *logger.Logger) (*PubSubSender, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	if topic == "" {
		return nil, fmt.Errorf("order confirmation topic required")
	}
	return &PubSubSender{client: client, topic: topic, logg: logg}, nil
}

func (s *PubSubSender) Send(ctx context.Context, msg OrderConfirmation) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order confirmation: %w", err)
	}
	attrs := map[string]string{
		"event_type":   "order_confirmation",
		"order_number": msg.OrderNumber,
	}
	id, err := s.client.Publish(ctx, s.topic, data, attrs)
	if err != nil {
		return fmt.Errorf("publish order confirmation: %w", err)
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithField(ctx, "message_id", id), "order confirmation published")
	}
	return nil
}

// LogSender writes confirmations to the structured log. It backs environments
// without a Pub/Sub project.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg OrderConfirmation) error {
	if s.logg == nil {
		return nil
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_number": msg.OrderNumber,
		"recipient":    msg.Recipient.Email,
		"total":        msg.TotalAmount.StringFixed(2),
		"items":        len(msg.Items),
	})
	s.logg.Info(logCtx, "order confirmation")
	return nil
}
