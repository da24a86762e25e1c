package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charlene/kitchen-api/internal/model"
)

// OrderFilter narrows order listings. UserID zero means all users
// (admin view); Day non-zero restricts to that calendar day.
type OrderFilter struct {
	UserID    primitive.ObjectID
	Status    model.OrderStatus
	OrderType model.OrderType
	Day       time.Time
}

// TodayStats are the same-day aggregates shown on the admin dashboard.
type TodayStats struct {
	TotalOrders     int64   `bson:"totalOrders"`
	TotalRevenue    float64 `bson:"totalRevenue"`
	PendingOrders   int64   `bson:"pendingOrders"`
	CompletedOrders int64   `bson:"completedOrders"`
}

// PeriodStats aggregates orders over a trailing period.
type PeriodStats struct {
	TotalOrders       int64   `bson:"totalOrders"`
	TotalRevenue      float64 `bson:"totalRevenue"`
	AverageOrderValue float64 `bson:"averageOrderValue"`
	DeliveryOrders    int64   `bson:"deliveryOrders"`
	PickupOrders      int64   `bson:"pickupOrders"`
	CancelledOrders   int64   `bson:"cancelledOrders"`
}

// TopProduct ranks a product by quantity ordered over a period.
type TopProduct struct {
	ProductID     primitive.ObjectID `bson:"_id"`
	Name          string             `bson:"name"`
	TotalQuantity int64              `bson:"totalQuantity"`
	TotalRevenue  float64            `bson:"totalRevenue"`
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error)
	Update(ctx context.Context, order *model.Order) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	TodayStats(ctx context.Context) (TodayStats, error)
	PeriodStats(ctx context.Context, since time.Time) (PeriodStats, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProduct, error)
	MarkConfirmationSent(ctx context.Context, id primitive.ObjectID) error
}

type mongoOrderRepo struct{ coll *mongo.Collection }

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepo{coll: db.Collection(ordersCollection)}
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *model.Order) error {
	now := time.Now()
	order.ID = primitive.NewObjectID()
	order.CreatedAt = now
	order.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *mongoOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	order := &model.Order{}
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func buildOrderQuery(f OrderFilter) bson.M {
	query := bson.M{}
	if !f.UserID.IsZero() {
		query["userId"] = f.UserID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.OrderType != "" {
		query["orderType"] = f.OrderType
	}
	if !f.Day.IsZero() {
		start := time.Date(f.Day.Year(), f.Day.Month(), f.Day.Day(), 0, 0, 0, 0, f.Day.Location())
		query["createdAt"] = bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)}
	}
	return query
}

func (r *mongoOrderRepo) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error) {
	query := buildOrderQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	var orders []model.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return orders, total, nil
}

func (r *mongoOrderRepo) Update(ctx context.Context, order *model.Order) error {
	order.UpdatedAt = time.Now()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": order.ID}, order)
	if err != nil {
		return fmt.Errorf("update order: %w", translateWriteErr(err))
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoOrderRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func statusCond(status model.OrderStatus) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{"$status", status}}, 1, 0,
	}}}
}

func typeCond(t model.OrderType) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{
		bson.M{"$eq": bson.A{"$orderType", t}}, 1, 0,
	}}}
}

func (r *mongoOrderRepo) TodayStats(ctx context.Context) (TodayStats, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": start}}}},
		{{Key: "$group", Value: bson.M{
			"_id":             nil,
			"totalOrders":     bson.M{"$sum": 1},
			"totalRevenue":    bson.M{"$sum": "$totalAmount"},
			"pendingOrders":   statusCond(model.OrderStatusPending),
			"completedOrders": statusCond(model.OrderStatusDelivered),
		}}},
	}

	var stats TodayStats
	if err := r.aggregateOne(ctx, pipeline, &stats); err != nil {
		return TodayStats{}, fmt.Errorf("today stats: %w", err)
	}
	stats.TotalRevenue = model.RoundMoney(stats.TotalRevenue)
	return stats, nil
}

func (r *mongoOrderRepo) PeriodStats(ctx context.Context, since time.Time) (PeriodStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":               nil,
			"totalOrders":       bson.M{"$sum": 1},
			"totalRevenue":      bson.M{"$sum": "$totalAmount"},
			"averageOrderValue": bson.M{"$avg": "$totalAmount"},
			"deliveryOrders":    typeCond(model.OrderTypeDelivery),
			"pickupOrders":      typeCond(model.OrderTypePickup),
			"cancelledOrders":   statusCond(model.OrderStatusCancelled),
		}}},
	}

	var stats PeriodStats
	if err := r.aggregateOne(ctx, pipeline, &stats); err != nil {
		return PeriodStats{}, fmt.Errorf("period stats: %w", err)
	}
	stats.TotalRevenue = model.RoundMoney(stats.TotalRevenue)
	stats.AverageOrderValue = model.RoundMoney(stats.AverageOrderValue)
	return stats, nil
}

func (r *mongoOrderRepo) TopProducts(ctx context.Context, since time.Time, limit int) ([]TopProduct, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$items.productId",
			"name":          bson.M{"$first": "$items.name"},
			"totalQuantity": bson.M{"$sum": "$items.quantity"},
			"totalRevenue":  bson.M{"$sum": "$items.subtotal"},
		}}},
		{{Key: "$sort", Value: bson.M{"totalQuantity": -1}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer cur.Close(ctx)

	var top []TopProduct
	if err := cur.All(ctx, &top); err != nil {
		return nil, fmt.Errorf("decode top products: %w", err)
	}
	return top, nil
}

func (r *mongoOrderRepo) MarkConfirmationSent(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"confirmationEmailSent": true, "updatedAt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("mark confirmation sent: %w", err)
	}
	return nil
}

// aggregateOne runs a single-group pipeline; no documents is not an
// error, the zero value stands for an empty period.
func (r *mongoOrderRepo) aggregateOne(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		return cur.Decode(out)
	}
	return cur.Err()
}
