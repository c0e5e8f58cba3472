package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
)

type fakeOrderRepo struct {
	orders []*domain.Order
	logs   []*domain.StatusLog
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error { return nil }

func (r *fakeOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *fakeOrderRepo) Update(ctx context.Context, order *domain.Order) error { return nil }

func (r *fakeOrderRepo) ListByScope(ctx context.Context, scope domain.Scope) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range r.orders {
		if scope.Covers(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListOpen(ctx context.Context) ([]*domain.Order, error) { return nil, nil }

func (r *fakeOrderRepo) GenerateOrderNumber(ctx context.Context) (string, error) { return "", nil }

func (r *fakeOrderRepo) LogStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) error {
	return nil
}

func (r *fakeOrderRepo) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	var out []*domain.StatusLog
	for _, entry := range r.logs {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeSubscriberRepo struct {
	subscribers []*domain.Subscriber
}

func (r *fakeSubscriberRepo) Register(ctx context.Context, sub *domain.Subscriber) error { return nil }
func (r *fakeSubscriberRepo) FindByName(ctx context.Context, name string) (*domain.Subscriber, error) {
	return nil, nil
}
func (r *fakeSubscriberRepo) Update(ctx context.Context, sub *domain.Subscriber) error { return nil }
func (r *fakeSubscriberRepo) UpdateHeartbeat(ctx context.Context, name string) error   { return nil }
func (r *fakeSubscriberRepo) IncrementEventsApplied(ctx context.Context, name string) error {
	return nil
}
func (r *fakeSubscriberRepo) ListAll(ctx context.Context) ([]*domain.Subscriber, error) {
	return r.subscribers, nil
}

var trackingTestSLA = config.SLAConfig{
	AcceptTimeoutMinutes: 5,
	ReadyTimeoutMinutes:  30,
	AcceptWarningSeconds: 60,
	ReadyWarningSeconds:  300,
}

func repoOrder(t *testing.T, id, number, merchantID, customerID string, createdAt time.Time) *domain.Order {
	t.Helper()

	order, err := domain.NewOrder(id, merchantID, customerID, domain.OrderTypePickup,
		[]domain.OrderItem{{MenuItemID: "mi-1", Name: "Margherita", Quantity: 1, UnitPrice: 10}},
		nil, createdAt, trackingTestSLA.AcceptTimeout(), trackingTestSLA.ReadyTimeout())
	require.NoError(t, err)
	order.Number = number
	return order
}

func TestSnapshotIsScoped(t *testing.T) {
	now := time.Now()
	repo := &fakeOrderRepo{orders: []*domain.Order{
		repoOrder(t, "o-1", "ORD-1", "m-1", "c-1", now),
		repoOrder(t, "o-2", "ORD-2", "m-2", "c-1", now),
		repoOrder(t, "o-3", "ORD-3", "m-1", "c-2", now),
	}}
	svc := NewService(repo, &fakeSubscriberRepo{}, logger.New("tracking-test"), trackingTestSLA)
	ctx := context.Background()

	views, err := svc.Snapshot(ctx, domain.AllScope())
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = svc.Snapshot(ctx, domain.MerchantScope("m-1"))
	require.NoError(t, err)
	assert.Len(t, views, 2)

	views, err = svc.Snapshot(ctx, domain.CustomerScope("c-1"))
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestGetOrderStatusSLAStates(t *testing.T) {
	now := time.Now()

	// created just now: both deadlines comfortably ahead
	repo := &fakeOrderRepo{orders: []*domain.Order{repoOrder(t, "o-1", "ORD-1", "m-1", "c-1", now)}}
	svc := NewService(repo, &fakeSubscriberRepo{}, logger.New("tracking-test"), trackingTestSLA)

	resp, err := svc.GetOrderStatus(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.AcceptSLA)
	assert.Equal(t, "ok", resp.ReadySLA)

	// created long ago and never accepted: both deadlines blown
	repo.orders[0] = repoOrder(t, "o-1", "ORD-1", "m-1", "c-1", now.Add(-time.Hour))
	resp, err = svc.GetOrderStatus(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "breached", resp.AcceptSLA)
	assert.Equal(t, "breached", resp.ReadySLA)

	// accepted orders no longer report accept SLA
	order := repoOrder(t, "o-1", "ORD-1", "m-1", "c-1", now)
	require.NoError(t, order.TransitionTo(domain.StatusAccepted, now))
	repo.orders[0] = order
	resp, err = svc.GetOrderStatus(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Empty(t, resp.AcceptSLA)
	assert.Equal(t, "ok", resp.ReadySLA)
}

func TestGetOrderStatusNotFound(t *testing.T) {
	svc := NewService(&fakeOrderRepo{}, &fakeSubscriberRepo{}, logger.New("tracking-test"), trackingTestSLA)

	_, err := svc.GetOrderStatus(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestGetSubscribersStatusDowngradesStaleHeartbeats(t *testing.T) {
	repo := &fakeSubscriberRepo{subscribers: []*domain.Subscriber{
		{Name: "fresh", Scope: domain.AllScope(), Status: domain.SubscriberStatusOnline, LastSeen: time.Now()},
		{Name: "silent", Scope: domain.MerchantScope("m-1"), Status: domain.SubscriberStatusOnline, LastSeen: time.Now().Add(-5 * time.Minute)},
		{Name: "gone", Scope: domain.CustomerScope("c-1"), Status: domain.SubscriberStatusOffline, LastSeen: time.Now()},
	}}
	svc := NewService(&fakeOrderRepo{}, repo, logger.New("tracking-test"), trackingTestSLA)

	resp, err := svc.GetSubscribersStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, resp, 3)

	byName := make(map[string]domain.SubscriberStatus)
	for _, r := range resp {
		byName[r.Name] = r.Status
	}

	assert.Equal(t, domain.SubscriberStatusOnline, byName["fresh"])
	assert.Equal(t, domain.SubscriberStatusOffline, byName["silent"])
	assert.Equal(t, domain.SubscriberStatusOffline, byName["gone"])
}
