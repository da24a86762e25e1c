package service

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/charlene/kitchen-api/internal/model"
)

// Notifier publishes notification events. Dispatch is a side effect:
// implementations must never fail the calling operation.
type Notifier interface {
	Notify(ctx context.Context, msg model.NotificationMessage)
}

type amqpNotifier struct {
	ch  *amqp.Channel
	log *slog.Logger
}

// NewAMQPNotifier publishes to the notifications queue consumed by the
// worker. Publish failures are logged and dropped.
func NewAMQPNotifier(ch *amqp.Channel, log *slog.Logger) Notifier {
	return &amqpNotifier{ch: ch, log: log}
}

func (n *amqpNotifier) Notify(ctx context.Context, msg model.NotificationMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("marshal notification", "kind", msg.Kind, "error", err)
		return
	}
	err = n.ch.PublishWithContext(ctx, "", "notifications", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		n.log.Error("publish notification", "kind", msg.Kind, "error", err)
	}
}
