package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

type mockUserRepo struct {
	byID map[primitive.ObjectID]*model.User
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return m.byID[id], nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.byID[user.ID] = user
	return nil
}

type mockOrderRepo struct {
	byID map[primitive.ObjectID]*model.Order
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	m.byID[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	return m.byID[id], nil
}

func (m *mockOrderRepo) List(_ context.Context, _ repository.OrderFilter, _, _ int) ([]model.Order, int64, error) {
	return nil, 0, nil
}

func (m *mockOrderRepo) Update(_ context.Context, order *model.Order) error {
	m.byID[order.ID] = order
	return nil
}

func (m *mockOrderRepo) CountCreatedBetween(_ context.Context, _, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockOrderRepo) TodayStats(_ context.Context) (repository.TodayStats, error) {
	return repository.TodayStats{}, nil
}

func (m *mockOrderRepo) PeriodStats(_ context.Context, _ time.Time) (repository.PeriodStats, error) {
	return repository.PeriodStats{}, nil
}

func (m *mockOrderRepo) TopProducts(_ context.Context, _ time.Time, _ int) ([]repository.TopProduct, error) {
	return nil, nil
}

func (m *mockOrderRepo) MarkConfirmationSent(_ context.Context, id primitive.ObjectID) error {
	if o := m.byID[id]; o != nil {
		o.ConfirmationEmailSent = true
	}
	return nil
}

type fakeSender struct {
	welcomes      int
	confirmations int
	statusUpdates []model.OrderStatus
	result        bool
}

func (f *fakeSender) SendWelcome(_ context.Context, _ *model.User) bool {
	f.welcomes++
	return f.result
}

func (f *fakeSender) SendOrderConfirmation(_ context.Context, _ *model.Order, _ *model.User) bool {
	f.confirmations++
	return f.result
}

func (f *fakeSender) SendOrderStatusUpdate(_ context.Context, _ *model.Order, _ *model.User, status model.OrderStatus) bool {
	f.statusUpdates = append(f.statusUpdates, status)
	return f.result
}

func newTestWorker(sender *fakeSender) (*NotificationWorker, *mockUserRepo, *mockOrderRepo) {
	userRepo := &mockUserRepo{byID: make(map[primitive.ObjectID]*model.User)}
	orderRepo := &mockOrderRepo{byID: make(map[primitive.ObjectID]*model.Order)}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotificationWorker(nil, userRepo, orderRepo, sender, log), userRepo, orderRepo
}

func TestNotificationWorker_DispatchWelcome(t *testing.T) {
	sender := &fakeSender{result: true}
	w, userRepo, _ := newTestWorker(sender)

	user := &model.User{ID: primitive.NewObjectID(), Email: "mario@example.com"}
	userRepo.byID[user.ID] = user

	err := w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationWelcome, UserID: user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sender.welcomes)
}

func TestNotificationWorker_DispatchConfirmation(t *testing.T) {
	sender := &fakeSender{result: true}
	w, userRepo, orderRepo := newTestWorker(sender)

	user := &model.User{ID: primitive.NewObjectID(), Email: "mario@example.com"}
	userRepo.byID[user.ID] = user
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID}
	orderRepo.byID[order.ID] = order

	err := w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationOrderConfirmation, UserID: user.ID, OrderID: order.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sender.confirmations)
	assert.True(t, order.ConfirmationEmailSent)

	// redelivery after the flag is set sends nothing
	err = w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationOrderConfirmation, UserID: user.ID, OrderID: order.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sender.confirmations)
}

func TestNotificationWorker_FailedConfirmationKeepsFlagClear(t *testing.T) {
	sender := &fakeSender{result: false}
	w, userRepo, orderRepo := newTestWorker(sender)

	user := &model.User{ID: primitive.NewObjectID()}
	userRepo.byID[user.ID] = user
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID}
	orderRepo.byID[order.ID] = order

	err := w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationOrderConfirmation, UserID: user.ID, OrderID: order.ID,
	})
	require.NoError(t, err)
	assert.False(t, order.ConfirmationEmailSent)
}

func TestNotificationWorker_DispatchStatusUpdate(t *testing.T) {
	sender := &fakeSender{result: true}
	w, userRepo, orderRepo := newTestWorker(sender)

	user := &model.User{ID: primitive.NewObjectID()}
	userRepo.byID[user.ID] = user
	order := &model.Order{ID: primitive.NewObjectID(), UserID: user.ID}
	orderRepo.byID[order.ID] = order

	err := w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationOrderStatus, UserID: user.ID, OrderID: order.ID,
		Status: model.OrderStatusReady,
	})
	require.NoError(t, err)
	require.Len(t, sender.statusUpdates, 1)
	assert.Equal(t, model.OrderStatusReady, sender.statusUpdates[0])
}

func TestNotificationWorker_DeletedUserIsSkipped(t *testing.T) {
	sender := &fakeSender{result: true}
	w, _, _ := newTestWorker(sender)

	err := w.dispatch(context.Background(), model.NotificationMessage{
		Kind: model.NotificationWelcome, UserID: primitive.NewObjectID(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sender.welcomes)
}
