package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDineIn   OrderType = "dine-in"
)

const (
	TaxRate             = 0.10
	DeliveryFee         = 3.50
	DeliveryPrepMinutes = 45
	PickupPrepMinutes   = 30
)

// OrderItem is a snapshot of a product at order time; later catalog edits
// never change it.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Note      string      `bson:"note,omitempty" json:"note,omitempty"`
}

type DeliveryInfo struct {
	Address               Address   `bson:"address,omitempty" json:"address"`
	Instructions          string    `bson:"instructions,omitempty" json:"instructions,omitempty"`
	EstimatedDeliveryTime time.Time `bson:"estimatedDeliveryTime,omitempty" json:"estimatedDeliveryTime,omitempty"`
	ActualDeliveryTime    time.Time `bson:"actualDeliveryTime,omitempty" json:"actualDeliveryTime,omitempty"`
}

type ContactInfo struct {
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email" json:"email"`
}

type OrderRating struct {
	Score   int       `bson:"score" json:"score"`
	Comment string    `bson:"comment,omitempty" json:"comment,omitempty"`
	RatedAt time.Time `bson:"ratedAt" json:"ratedAt"`
}

type Order struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID                primitive.ObjectID `bson:"userId" json:"userId"`
	OrderNumber           string             `bson:"orderNumber" json:"orderNumber"`
	Items                 []OrderItem        `bson:"items" json:"items"`
	Subtotal              float64            `bson:"subtotal" json:"subtotal"`
	Tax                   float64            `bson:"tax" json:"tax"`
	DeliveryFee           float64            `bson:"deliveryFee" json:"deliveryFee"`
	TotalAmount           float64            `bson:"totalAmount" json:"totalAmount"`
	Status                OrderStatus        `bson:"status" json:"status"`
	PaymentStatus         PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMethod         string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentID             string             `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	OrderType             OrderType          `bson:"orderType" json:"orderType"`
	DeliveryInfo          *DeliveryInfo      `bson:"deliveryInfo,omitempty" json:"deliveryInfo,omitempty"`
	ContactInfo           ContactInfo        `bson:"contactInfo" json:"contactInfo"`
	Notes                 string             `bson:"notes,omitempty" json:"notes,omitempty"`
	RequestedTime         time.Time          `bson:"requestedTime,omitempty" json:"requestedTime,omitempty"`
	StatusHistory         []StatusChange     `bson:"statusHistory" json:"statusHistory"`
	ConfirmationEmailSent bool               `bson:"confirmationEmailSent" json:"confirmationEmailSent"`
	Rating                *OrderRating       `bson:"rating,omitempty" json:"rating,omitempty"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

func ValidOrderType(t OrderType) bool {
	return t == OrderTypeDelivery || t == OrderTypePickup || t == OrderTypeDineIn
}

// nextStatuses encodes the order state machine. Delivered and cancelled
// are terminal.
var nextStatuses = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady},
	OrderStatusReady:          {OrderStatusOutForDelivery, OrderStatusDelivered},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to
// another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range nextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellable orders are still pending or confirmed.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// AppendStatus records a transition in the append-only history log.
func (o *Order) AppendStatus(status OrderStatus, note string) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    status,
		Timestamp: time.Now(),
		Note:      note,
	})
}

// RoundMoney rounds to currency precision using standard half-up rounding.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ComputeTotals derives subtotal/tax/fee/total from the item snapshots.
// The arithmetic runs on decimals so the 2-decimal invariant
// totalAmount == subtotal + tax + deliveryFee survives rounding.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		line := decimal.NewFromFloat(o.Items[i].Price).
			Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		o.Items[i].Subtotal, _ = line.Round(2).Float64()
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(decimal.NewFromFloat(TaxRate)).Round(2)
	fee := decimal.Zero
	if o.OrderType == OrderTypeDelivery {
		fee = decimal.NewFromFloat(DeliveryFee)
	}
	o.Subtotal, _ = subtotal.Float64()
	o.Tax, _ = tax.Float64()
	o.DeliveryFee, _ = fee.Float64()
	o.TotalAmount, _ = subtotal.Add(tax).Add(fee).Round(2).Float64()
}

// EstimatedReadyTime is now + 45 minutes for delivery, + 30 otherwise.
func EstimatedReadyTime(t OrderType, now time.Time) time.Time {
	if t == OrderTypeDelivery {
		return now.Add(DeliveryPrepMinutes * time.Minute)
	}
	return now.Add(PickupPrepMinutes * time.Minute)
}

// FormatOrderNumber builds CK-YYYYMMDD-NNNN from the day and the 1-based
// same-day sequence.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("CK-%s-%04d", day.Format("20060102"), seq)
}
