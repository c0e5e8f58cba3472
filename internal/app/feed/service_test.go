package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/app/tracking"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

var errSubscriberNotFound = errors.New("subscriber not found")

type memSubscriberRepo struct {
	subscribers map[string]*domain.Subscriber
	applied     int
}

func newMemSubscriberRepo() *memSubscriberRepo {
	return &memSubscriberRepo{subscribers: make(map[string]*domain.Subscriber)}
}

func (r *memSubscriberRepo) Register(ctx context.Context, sub *domain.Subscriber) error {
	sub.ID = len(r.subscribers) + 1
	r.subscribers[sub.Name] = sub
	return nil
}

func (r *memSubscriberRepo) FindByName(ctx context.Context, name string) (*domain.Subscriber, error) {
	sub, ok := r.subscribers[name]
	if !ok {
		return nil, errSubscriberNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *memSubscriberRepo) Update(ctx context.Context, sub *domain.Subscriber) error {
	r.subscribers[sub.Name] = sub
	return nil
}

func (r *memSubscriberRepo) UpdateHeartbeat(ctx context.Context, name string) error {
	if sub, ok := r.subscribers[name]; ok {
		sub.UpdateHeartbeat()
	}
	return nil
}

func (r *memSubscriberRepo) IncrementEventsApplied(ctx context.Context, name string) error {
	r.applied++
	return nil
}

func (r *memSubscriberRepo) ListAll(ctx context.Context) ([]*domain.Subscriber, error) {
	var out []*domain.Subscriber
	for _, sub := range r.subscribers {
		out = append(out, sub)
	}
	return out, nil
}

type stubSnapshots struct {
	views []*interfaces.OrderView
}

func (s *stubSnapshots) Snapshot(ctx context.Context, scope domain.Scope) ([]*interfaces.OrderView, error) {
	return s.views, nil
}

func (s *stubSnapshots) GetOrderStatus(ctx context.Context, orderNumber string) (*interfaces.OrderStatusResponse, error) {
	return nil, domain.ErrOrderNotFound
}

func (s *stubSnapshots) GetOrderHistory(ctx context.Context, orderNumber string) ([]*domain.StatusLog, error) {
	return nil, domain.ErrOrderNotFound
}

func (s *stubSnapshots) GetSubscribersStatus(ctx context.Context) ([]*interfaces.SubscriberStatusResponse, error) {
	return nil, nil
}

func TestStartRegistersAndRejectsDuplicates(t *testing.T) {
	repo := newMemSubscriberRepo()
	store := tracking.NewStore(domain.MerchantScope("m-1"))
	svc := NewService(store, &stubSnapshots{}, repo, logger.New("feed-test"), "kitchen-display-1", 30)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Start(ctx))
	require.Contains(t, repo.subscribers, "kitchen-display-1")
	assert.Equal(t, domain.SubscriberStatusOnline, repo.subscribers["kitchen-display-1"].Status)

	// a second session with the same name is rejected while the first is online
	second := NewService(store, &stubSnapshots{}, repo, logger.New("feed-test"), "kitchen-display-1", 30)
	assert.Error(t, second.Start(ctx))

	// after shutdown the name can be reused
	require.NoError(t, svc.Shutdown(ctx))
	assert.Equal(t, domain.SubscriberStatusOffline, repo.subscribers["kitchen-display-1"].Status)
	assert.NoError(t, second.Start(ctx))
}

func TestOnConnectResnapshotsStore(t *testing.T) {
	repo := newMemSubscriberRepo()
	store := tracking.NewStore(domain.AllScope())
	snapshots := &stubSnapshots{views: []*interfaces.OrderView{
		{ID: "o-1", Number: "ORD-1", Status: domain.StatusPreparing},
		{ID: "o-2", Number: "ORD-2", Status: domain.StatusSubmitted},
	}}
	svc := NewService(store, snapshots, repo, logger.New("feed-test"), "ops-dashboard", 30)

	store.MarkStale()
	require.NoError(t, svc.OnConnect(context.Background()))

	assert.False(t, store.Stale())
	assert.Len(t, store.Orders(), 2)

	svc.OnDisconnect()
	assert.True(t, store.Stale())
}

func TestApplyEventCountsOnlyAppliedEvents(t *testing.T) {
	repo := newMemSubscriberRepo()
	store := tracking.NewStore(domain.AllScope())
	svc := NewService(store, &stubSnapshots{}, repo, logger.New("feed-test"), "ops-dashboard", 30)
	ctx := context.Background()

	evt := interfaces.Event{
		Type: interfaces.EventOrderCreated,
		Order: &interfaces.OrderView{
			ID:        "o-1",
			Number:    "ORD-1",
			Status:    domain.StatusSubmitted,
			CreatedAt: time.Now(),
		},
	}

	require.NoError(t, svc.ApplyEvent(ctx, evt))
	assert.Equal(t, 1, repo.applied)

	// the duplicate is swallowed without touching the counter
	require.NoError(t, svc.ApplyEvent(ctx, evt))
	assert.Equal(t, 1, repo.applied)
}
