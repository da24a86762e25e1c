package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

// orderNumberAttempts bounds the retry loop when two orders race for the
// same daily sequence number. The unique index on orderNumber is the
// arbiter; losers recount and try again.
const orderNumberAttempts = 3

const topProductsLimit = 5

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	notifier    Notifier
	log         *slog.Logger
	now         func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, notifier Notifier, log *slog.Logger) *OrderService {
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// PlaceOrder validates the request, snapshots each product, computes the
// totals and persists the order under a fresh daily order number.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, req dto.CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	if !model.ValidOrderType(req.OrderType) {
		return nil, apperr.Validation(fmt.Sprintf("invalid order type: %q", req.OrderType))
	}
	if req.OrderType == model.OrderTypeDelivery {
		if req.DeliveryInfo == nil {
			return nil, apperr.Validation("delivery orders require a delivery address")
		}
		addr := req.DeliveryInfo.Address
		if addr.Street == "" || addr.City == "" || addr.ZipCode == "" {
			return nil, apperr.Validation("delivery address must include street, city and zip code")
		}
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, apperr.Validation("item quantity must be at least 1")
		}
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid product id: %q", it.ProductID))
		}
		product, err := s.productRepo.GetPublishedByID(ctx, pid)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", it.ProductID, err)
		}
		if product == nil || !product.Available {
			return nil, &apperr.ProductUnavailableError{ProductID: it.ProductID}
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}

	now := s.now()
	order := &model.Order{
		UserID:        userID,
		Items:         items,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: "cash",
		OrderType:     req.OrderType,
		ContactInfo: model.ContactInfo{
			Phone: req.ContactInfo.Phone,
			Email: model.NormalizeEmail(req.ContactInfo.Email),
		},
		Notes: req.Notes,
	}
	if req.RequestedTime != nil {
		order.RequestedTime = *req.RequestedTime
	}
	if req.DeliveryInfo != nil {
		order.DeliveryInfo = &model.DeliveryInfo{
			Address:      req.DeliveryInfo.Address,
			Instructions: req.DeliveryInfo.Instructions,
		}
	}
	if req.OrderType == model.OrderTypeDelivery {
		if order.DeliveryInfo == nil {
			order.DeliveryInfo = &model.DeliveryInfo{}
		}
		order.DeliveryInfo.EstimatedDeliveryTime = model.EstimatedReadyTime(req.OrderType, now)
	}
	order.ComputeTotals()
	order.AppendStatus(model.OrderStatusPending, "order created")

	if err := s.createWithOrderNumber(ctx, order, now); err != nil {
		return nil, err
	}

	// The popularity counter is a side effect. The order is already
	// persisted, so a failed increment must not surface to the caller.
	for _, it := range items {
		if err := s.productRepo.IncrementOrderCount(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Warn("increment order count", "product", it.ProductID.Hex(), "error", err)
		}
	}

	s.notify(ctx, model.NotificationMessage{
		Kind:    model.NotificationOrderConfirmation,
		UserID:  userID,
		OrderID: order.ID,
	})
	return order, nil
}

func (s *OrderService) createWithOrderNumber(ctx context.Context, order *model.Order, now time.Time) error {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		count, err := s.orderRepo.CountCreatedBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("count today's orders: %w", err)
		}
		order.OrderNumber = model.FormatOrderNumber(now, int(count)+1)

		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return fmt.Errorf("create order: %w", err)
		}
	}
	return fmt.Errorf("create order: exhausted %d order number attempts", orderNumberAttempts)
}

// GetByID returns the order only if the caller owns it or is an admin.
// Someone else's order reads as not found rather than forbidden, so order
// ids do not leak.
func (s *OrderService) GetByID(ctx context.Context, user *model.User, id primitive.ObjectID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, apperr.ErrNotFound
	}
	if !user.IsAdmin() && order.UserID != user.ID {
		return nil, apperr.ErrNotFound
	}
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID, req dto.ListOrdersRequest) (*dto.OrderListResponse, error) {
	filter := repository.OrderFilter{
		UserID: userID,
		Status: model.OrderStatus(req.Status),
	}
	orders, total, err := s.orderRepo.List(ctx, filter, req.Page, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return &dto.OrderListResponse{
		Orders:     orders,
		Pagination: dto.NewPagination(req.Page, req.Limit, total),
	}, nil
}

func (s *OrderService) ListForAdmin(ctx context.Context, req dto.AdminListOrdersRequest) (*dto.AdminOrderListResponse, error) {
	filter := repository.OrderFilter{
		Status:    model.OrderStatus(req.Status),
		OrderType: model.OrderType(req.OrderType),
	}
	if req.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			return nil, apperr.Validation("date must be in YYYY-MM-DD format")
		}
		filter.Day = day
	}

	orders, total, err := s.orderRepo.List(ctx, filter, req.Page, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	stats, err := s.orderRepo.TodayStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("today stats: %w", err)
	}

	return &dto.AdminOrderListResponse{
		Orders:     orders,
		Pagination: dto.NewPagination(req.Page, req.Limit, total),
		TodayStats: dto.TodayStats{
			TotalOrders:     stats.TotalOrders,
			TotalRevenue:    stats.TotalRevenue,
			PendingOrders:   stats.PendingOrders,
			CompletedOrders: stats.CompletedOrders,
		},
	}, nil
}

// UpdateStatus moves an order through the state machine and records the
// step in its history.
func (s *OrderService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status model.OrderStatus, note string) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("invalid order status: %q", status))
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, apperr.ErrNotFound
	}
	if !model.CanTransition(order.Status, status) {
		return nil, &apperr.InvalidTransitionError{From: string(order.Status), To: string(status)}
	}

	order.AppendStatus(status, note)
	if status == model.OrderStatusDelivered {
		// Pickup and dine-in orders carry no delivery info until now;
		// the completion timestamp is recorded for every order type.
		if order.DeliveryInfo == nil {
			order.DeliveryInfo = &model.DeliveryInfo{}
		}
		order.DeliveryInfo.ActualDeliveryTime = s.now()
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if status != model.OrderStatusPending {
		s.notify(ctx, model.NotificationMessage{
			Kind:    model.NotificationOrderStatus,
			UserID:  order.UserID,
			OrderID: order.ID,
			Status:  status,
		})
	}
	return order, nil
}

// Cancel lets the owner abandon an order while it is still pending or
// confirmed. Admins may cancel on the customer's behalf.
func (s *OrderService) Cancel(ctx context.Context, user *model.User, id primitive.ObjectID) (*model.Order, error) {
	order, err := s.GetByID(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		return nil, &apperr.InvalidTransitionError{From: string(order.Status), To: string(model.OrderStatusCancelled)}
	}

	note := "Cancellato dal cliente"
	if user.IsAdmin() && order.UserID != user.ID {
		note = "Cancellato dal ristorante"
	}
	order.AppendStatus(model.OrderStatusCancelled, note)
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	s.notify(ctx, model.NotificationMessage{
		Kind:    model.NotificationOrderStatus,
		UserID:  order.UserID,
		OrderID: order.ID,
		Status:  model.OrderStatusCancelled,
	})
	return order, nil
}

// RateOrder accepts a single rating on a delivered order and folds the
// score into each ordered product's running average.
func (s *OrderService) RateOrder(ctx context.Context, user *model.User, id primitive.ObjectID, score int, comment string) (*model.Order, error) {
	if score < 1 || score > 5 {
		return nil, apperr.Validation("score must be between 1 and 5")
	}
	order, err := s.GetByID(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusDelivered {
		return nil, apperr.Validation("only delivered orders can be rated")
	}
	if order.Rating != nil {
		return nil, apperr.Conflict("a rating for this order")
	}

	order.Rating = &model.OrderRating{
		Score:   score,
		Comment: comment,
		RatedAt: s.now(),
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("rate order: %w", err)
	}

	for _, it := range order.Items {
		product, err := s.productRepo.GetByID(ctx, it.ProductID)
		if err != nil || product == nil {
			continue
		}
		rating := product.Rating.ApplyRating(float64(score))
		if err := s.productRepo.UpdateRating(ctx, it.ProductID, rating); err != nil {
			return nil, fmt.Errorf("update product rating: %w", err)
		}
	}
	return order, nil
}

// Statistics aggregates orders over today, the trailing week or the
// trailing month, plus the best selling products of the period.
func (s *OrderService) Statistics(ctx context.Context, period string) (*dto.StatisticsResponse, error) {
	now := s.now()
	var since time.Time
	switch period {
	case "", "today":
		period = "today"
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		return nil, apperr.Validation(fmt.Sprintf("invalid period: %q", period))
	}

	stats, err := s.orderRepo.PeriodStats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("period stats: %w", err)
	}
	top, err := s.orderRepo.TopProducts(ctx, since, topProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}

	topOut := make([]dto.TopProduct, 0, len(top))
	for _, t := range top {
		topOut = append(topOut, dto.TopProduct{
			ProductID:     t.ProductID.Hex(),
			Name:          t.Name,
			TotalQuantity: t.TotalQuantity,
			TotalRevenue:  model.RoundMoney(t.TotalRevenue),
		})
	}

	return &dto.StatisticsResponse{
		Period: period,
		Statistics: dto.OrderStatistics{
			TotalOrders:       stats.TotalOrders,
			TotalRevenue:      stats.TotalRevenue,
			AverageOrderValue: stats.AverageOrderValue,
			DeliveryOrders:    stats.DeliveryOrders,
			PickupOrders:      stats.PickupOrders,
			CancelledOrders:   stats.CancelledOrders,
		},
		TopProducts: topOut,
	}, nil
}

func (s *OrderService) notify(ctx context.Context, msg model.NotificationMessage) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg)
	}
}
