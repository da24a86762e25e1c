package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

type mockProductRepo struct {
	products   map[primitive.ObjectID]*model.Product
	orderCount map[primitive.ObjectID]int
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products:   make(map[primitive.ObjectID]*model.Product),
		orderCount: make(map[primitive.ObjectID]int),
	}
}

func (m *mockProductRepo) add(p *model.Product) *model.Product {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepo) Create(_ context.Context, p *model.Product) error {
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepo) GetPublishedByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	p := m.products[id]
	if p == nil || p.Status != model.ProductStatusPublished {
		return nil, nil
	}
	return p, nil
}

func (m *mockProductRepo) FindActiveByName(_ context.Context, name string) (*model.Product, error) {
	for _, p := range m.products {
		if p.Name == name && p.Status != model.ProductStatusArchived {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, filter repository.ProductFilter, _, _ string, _, _ int) ([]model.Product, int64, error) {
	var out []model.Product
	for _, p := range m.products {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *mockProductRepo) Categories(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range m.products {
		if p.Status == model.ProductStatusPublished && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Featured(_ context.Context, limit int) ([]model.Product, error) {
	var out []model.Product
	for _, p := range m.products {
		if len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p *model.Product) error {
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) IncrementOrderCount(_ context.Context, id primitive.ObjectID, by int) error {
	m.orderCount[id] += by
	if p := m.products[id]; p != nil {
		p.OrderCount += by
	}
	return nil
}

func (m *mockProductRepo) UpdateRating(_ context.Context, id primitive.ObjectID, rating model.Rating) error {
	if p := m.products[id]; p != nil {
		p.Rating = rating
	}
	return nil
}

type mockOrderRepo struct {
	orders   map[primitive.ObjectID]*model.Order
	failDups int // first N creates fail with ErrDuplicateKey
	creates  int
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[primitive.ObjectID]*model.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	m.creates++
	if m.creates <= m.failDups {
		return repository.ErrDuplicateKey
	}
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	return m.orders[id], nil
}

func (m *mockOrderRepo) List(_ context.Context, filter repository.OrderFilter, _, _ int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range m.orders {
		if !filter.UserID.IsZero() && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) Update(_ context.Context, order *model.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if !o.CreatedAt.Before(from) && o.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *mockOrderRepo) TodayStats(_ context.Context) (repository.TodayStats, error) {
	return repository.TodayStats{TotalOrders: int64(len(m.orders))}, nil
}

func (m *mockOrderRepo) PeriodStats(_ context.Context, _ time.Time) (repository.PeriodStats, error) {
	return repository.PeriodStats{TotalOrders: int64(len(m.orders))}, nil
}

func (m *mockOrderRepo) TopProducts(_ context.Context, _ time.Time, _ int) ([]repository.TopProduct, error) {
	return nil, nil
}

func (m *mockOrderRepo) MarkConfirmationSent(_ context.Context, id primitive.ObjectID) error {
	if o := m.orders[id]; o != nil {
		o.ConfirmationEmailSent = true
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokenCounterProductRepo fails every order count increment.
type brokenCounterProductRepo struct {
	*mockProductRepo
}

func (r *brokenCounterProductRepo) IncrementOrderCount(context.Context, primitive.ObjectID, int) error {
	return errors.New("connection reset")
}

func publishedProduct(name string, price float64) *model.Product {
	return &model.Product{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Price:     price,
		Status:    model.ProductStatusPublished,
		Available: true,
	}
}

func deliveryRequest(items ...dto.OrderItemRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		Items:     items,
		OrderType: model.OrderTypeDelivery,
		DeliveryInfo: &dto.DeliveryInfoRequest{
			Address: model.Address{Street: "Via Roma 1", City: "Milano", ZipCode: "20100"},
		},
		ContactInfo: dto.ContactInfoRequest{Phone: "333 1234567", Email: "mario@example.com"},
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	notifier := &mockNotifier{}
	svc := NewOrderService(orderRepo, productRepo, notifier, testLogger())

	pizza := productRepo.add(publishedProduct("Pizza Margherita", 7.00))
	drink := productRepo.add(publishedProduct("Acqua frizzante", 3.00))

	userID := primitive.NewObjectID()
	order, err := svc.PlaceOrder(context.Background(), userID, deliveryRequest(
		dto.OrderItemRequest{ProductID: pizza.ID.Hex(), Quantity: 2},
		dto.OrderItemRequest{ProductID: drink.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, 17.00, order.Subtotal)
	assert.Equal(t, 1.70, order.Tax)
	assert.Equal(t, 3.50, order.DeliveryFee)
	assert.Equal(t, 22.20, order.TotalAmount)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, "order created", order.StatusHistory[0].Note)
	assert.Regexp(t, `^CK-\d{8}-0001$`, order.OrderNumber)
	require.NotNil(t, order.DeliveryInfo)
	assert.False(t, order.DeliveryInfo.EstimatedDeliveryTime.IsZero())

	// snapshot carries the price, not a reference
	pizza.Price = 99.00
	assert.Equal(t, 7.00, order.Items[0].Price)

	assert.Equal(t, 2, productRepo.orderCount[order.Items[0].ProductID])
	assert.Equal(t, 1, productRepo.orderCount[order.Items[1].ProductID])

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, model.NotificationOrderConfirmation, notifier.messages[0].Kind)
	assert.Equal(t, order.ID, notifier.messages[0].OrderID)
}

func TestOrderService_PlaceOrder_CounterFailureDoesNotFailOrder(t *testing.T) {
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	notifier := &mockNotifier{}
	svc := NewOrderService(orderRepo, &brokenCounterProductRepo{productRepo}, notifier, testLogger())

	p := productRepo.add(publishedProduct("Lasagne", 9.50))
	order, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)

	assert.Contains(t, orderRepo.orders, order.ID)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, model.NotificationOrderConfirmation, notifier.messages[0].Kind)
}

func TestOrderService_PlaceOrder_SequentialNumbers(t *testing.T) {
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	svc := NewOrderService(orderRepo, productRepo, nil, testLogger())

	p := productRepo.add(publishedProduct("Tiramisù", 5.50))
	userID := primitive.NewObjectID()

	first, err := svc.PlaceOrder(context.Background(), userID, deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)
	second, err := svc.PlaceOrder(context.Background(), userID, deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)

	assert.Regexp(t, `-0001$`, first.OrderNumber)
	assert.Regexp(t, `-0002$`, second.OrderNumber)
}

func TestOrderService_PlaceOrder_RetriesOnDuplicateNumber(t *testing.T) {
	orderRepo := newMockOrderRepo()
	orderRepo.failDups = 2
	productRepo := newMockProductRepo()
	svc := NewOrderService(orderRepo, productRepo, nil, testLogger())

	p := productRepo.add(publishedProduct("Risotto ai funghi", 11.00))
	order, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, 3, orderRepo.creates)
	assert.NotEmpty(t, order.OrderNumber)
}

func TestOrderService_PlaceOrder_GivesUpAfterRetries(t *testing.T) {
	orderRepo := newMockOrderRepo()
	orderRepo.failDups = 10
	productRepo := newMockProductRepo()
	svc := NewOrderService(orderRepo, productRepo, nil, testLogger())

	p := productRepo.add(publishedProduct("Risotto ai funghi", 11.00))
	_, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))
	assert.Error(t, err)
	assert.Equal(t, 3, orderRepo.creates)
}

func TestOrderService_PlaceOrder_EmptyItems(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockProductRepo(), nil, testLogger())

	_, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest())

	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestOrderService_PlaceOrder_DeliveryNeedsAddress(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewOrderService(newMockOrderRepo(), productRepo, nil, testLogger())
	p := productRepo.add(publishedProduct("Pizza", 7.00))

	req := deliveryRequest(dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1})
	req.DeliveryInfo.Address.City = ""

	_, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), req)

	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestOrderService_PlaceOrder_UnavailableProduct(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewOrderService(newMockOrderRepo(), productRepo, nil, testLogger())

	p := publishedProduct("Pizza", 7.00)
	p.Available = false
	productRepo.add(p)

	_, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))

	var unavailableErr *apperr.ProductUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, p.ID.Hex(), unavailableErr.ProductID)
}

func TestOrderService_PlaceOrder_DraftProductIsInvisible(t *testing.T) {
	productRepo := newMockProductRepo()
	svc := NewOrderService(newMockOrderRepo(), productRepo, nil, testLogger())

	p := publishedProduct("Pizza", 7.00)
	p.Status = model.ProductStatusDraft
	productRepo.add(p)

	_, err := svc.PlaceOrder(context.Background(), primitive.NewObjectID(), deliveryRequest(
		dto.OrderItemRequest{ProductID: p.ID.Hex(), Quantity: 1},
	))

	var unavailableErr *apperr.ProductUnavailableError
	assert.ErrorAs(t, err, &unavailableErr)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	orderRepo := newMockOrderRepo()
	notifier := &mockNotifier{}
	svc := NewOrderService(orderRepo, newMockProductRepo(), notifier, testLogger())

	order := &model.Order{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		Status: model.OrderStatusPending,
	}
	orderRepo.orders[order.ID] = order

	updated, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusConfirmed, "accepted")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)
	require.Len(t, updated.StatusHistory, 1)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, model.NotificationOrderStatus, notifier.messages[0].Kind)
	assert.Equal(t, model.OrderStatusConfirmed, notifier.messages[0].Status)
}

func TestOrderService_UpdateStatus_InvalidTransition(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	order := &model.Order{ID: primitive.NewObjectID(), Status: model.OrderStatusDelivered}
	orderRepo.orders[order.ID] = order

	_, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusPreparing, "")

	var transitionErr *apperr.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "delivered", transitionErr.From)
	assert.Equal(t, "preparing", transitionErr.To)
}

func TestOrderService_UpdateStatus_DeliveredStampsActualTime(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	order := &model.Order{
		ID:           primitive.NewObjectID(),
		Status:       model.OrderStatusReady,
		OrderType:    model.OrderTypeDelivery,
		DeliveryInfo: &model.DeliveryInfo{},
	}
	orderRepo.orders[order.ID] = order

	updated, err := svc.UpdateStatus(context.Background(), order.ID, model.OrderStatusDelivered, "")
	require.NoError(t, err)
	assert.False(t, updated.DeliveryInfo.ActualDeliveryTime.IsZero())

	// pickup orders start without delivery info but still get the stamp
	pickup := &model.Order{
		ID:        primitive.NewObjectID(),
		Status:    model.OrderStatusReady,
		OrderType: model.OrderTypePickup,
	}
	orderRepo.orders[pickup.ID] = pickup

	updated, err = svc.UpdateStatus(context.Background(), pickup.ID, model.OrderStatusDelivered, "")
	require.NoError(t, err)
	require.NotNil(t, updated.DeliveryInfo)
	assert.False(t, updated.DeliveryInfo.ActualDeliveryTime.IsZero())
}

func TestOrderService_Cancel(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	user := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer}
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID, Status: model.OrderStatusPending}
	orderRepo.orders[order.ID] = order

	cancelled, err := svc.Cancel(context.Background(), user, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "Cancellato dal cliente", cancelled.StatusHistory[0].Note)
}

func TestOrderService_Cancel_TooLate(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	user := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer}
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID, Status: model.OrderStatusPreparing}
	orderRepo.orders[order.ID] = order

	_, err := svc.Cancel(context.Background(), user, order.ID)

	var transitionErr *apperr.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestOrderService_GetByID_OtherUsersOrderIsHidden(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	owner := primitive.NewObjectID()
	order := &model.Order{ID: primitive.NewObjectID(), UserID: owner, Status: model.OrderStatusPending}
	orderRepo.orders[order.ID] = order

	stranger := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer}
	_, err := svc.GetByID(context.Background(), stranger, order.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	admin := &model.User{ID: primitive.NewObjectID(), Role: model.RoleAdmin}
	got, err := svc.GetByID(context.Background(), admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestOrderService_RateOrder(t *testing.T) {
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	svc := NewOrderService(orderRepo, productRepo, nil, testLogger())

	p := productRepo.add(publishedProduct("Pizza", 7.00))
	user := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer}
	order := &model.Order{
		ID:     primitive.NewObjectID(),
		UserID: user.ID,
		Status: model.OrderStatusDelivered,
		Items:  []model.OrderItem{{ProductID: p.ID, Name: p.Name, Quantity: 1}},
	}
	orderRepo.orders[order.ID] = order

	rated, err := svc.RateOrder(context.Background(), user, order.ID, 5, "ottimo")
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 5, rated.Rating.Score)
	assert.Equal(t, 5.0, p.Rating.Average)
	assert.Equal(t, 1, p.Rating.Count)

	// second rating is rejected
	_, err = svc.RateOrder(context.Background(), user, order.ID, 4, "")
	var conflictErr *apperr.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestOrderService_RateOrder_OnlyDelivered(t *testing.T) {
	orderRepo := newMockOrderRepo()
	svc := NewOrderService(orderRepo, newMockProductRepo(), nil, testLogger())

	user := &model.User{ID: primitive.NewObjectID(), Role: model.RoleCustomer}
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID, Status: model.OrderStatusReady}
	orderRepo.orders[order.ID] = order

	_, err := svc.RateOrder(context.Background(), user, order.ID, 5, "")

	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestOrderService_Statistics_InvalidPeriod(t *testing.T) {
	svc := NewOrderService(newMockOrderRepo(), newMockProductRepo(), nil, testLogger())

	_, err := svc.Statistics(context.Background(), "decade")

	var validationErr *apperr.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
