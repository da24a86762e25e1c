package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

const (
	notificationQueueName = "notifications"
	dlxExchange           = "notifications.dlx"
	dlqQueueName          = "notifications.dlq"
)

// sender is the mail surface the worker needs. Each method reports
// whether the message actually went out (throttled sends report false
// without error).
type sender interface {
	SendWelcome(ctx context.Context, user *model.User) bool
	SendOrderConfirmation(ctx context.Context, order *model.Order, user *model.User) bool
	SendOrderStatusUpdate(ctx context.Context, order *model.Order, user *model.User, status model.OrderStatus) bool
}

// NotificationWorker consumes queued notification events and turns them
// into emails.
type NotificationWorker struct {
	channel   *amqp.Channel
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	mailer    sender
	log       *slog.Logger
	done      chan struct{}
}

func NewNotificationWorker(
	ch *amqp.Channel,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	mailer sender,
	log *slog.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		channel:   ch,
		userRepo:  userRepo,
		orderRepo: orderRepo,
		mailer:    mailer,
		log:       log,
		done:      make(chan struct{}),
	}
}

// SetupRabbitMQ declares the notification queue with its DLX/DLQ pair.
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, notificationQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": notificationQueueName,
	}); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var event model.NotificationMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		w.log.Error("unmarshal notification", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("kind", event.Kind, "user_id", event.UserID.Hex())

	if err := w.dispatch(ctx, event); err != nil {
		log.Error("dispatch notification failed", "error", err)
		_ = msg.Nack(false, false) // to DLQ
		return
	}

	_ = msg.Ack(false)
	log.Info("notification dispatched")
}

func (w *NotificationWorker) dispatch(ctx context.Context, event model.NotificationMessage) error {
	user, err := w.userRepo.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		// Account deleted since the event was queued; nothing to send.
		return nil
	}

	switch event.Kind {
	case model.NotificationWelcome:
		w.mailer.SendWelcome(ctx, user)
		return nil

	case model.NotificationOrderConfirmation:
		order, err := w.orderRepo.GetByID(ctx, event.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil || order.ConfirmationEmailSent {
			return nil
		}
		if w.mailer.SendOrderConfirmation(ctx, order, user) {
			if err := w.orderRepo.MarkConfirmationSent(ctx, order.ID); err != nil {
				return fmt.Errorf("mark confirmation sent: %w", err)
			}
		}
		return nil

	case model.NotificationOrderStatus:
		order, err := w.orderRepo.GetByID(ctx, event.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil {
			return nil
		}
		w.mailer.SendOrderStatusUpdate(ctx, order, user, event.Status)
		return nil

	default:
		w.log.Warn("unknown notification kind", "kind", event.Kind)
		return nil
	}
}
