package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type NotificationKind string

const (
	NotificationWelcome           NotificationKind = "welcome"
	NotificationOrderConfirmation NotificationKind = "order-confirmation"
	NotificationOrderStatus       NotificationKind = "order-status-changed"
)

// NotificationMessage is the queue payload consumed by the notification
// worker.
type NotificationMessage struct {
	Kind    NotificationKind   `json:"kind"`
	UserID  primitive.ObjectID `json:"user_id"`
	OrderID primitive.ObjectID `json:"order_id,omitempty"`
	Status  OrderStatus        `json:"status,omitempty"`
}
