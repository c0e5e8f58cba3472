package order

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/adapter/pricing"
	"github.com/quickbite/orderflow/internal/app/dispatch"
	"github.com/quickbite/orderflow/internal/app/sla"
	"github.com/quickbite/orderflow/internal/app/tracking"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// routedPublisher stands in for the broker: it routes each publish to the
// store subscribed on the matching key, through a JSON round-trip like the
// real consumer.
type routedPublisher struct {
	stores map[string]*tracking.Store
}

func (p *routedPublisher) Publish(ctx context.Context, scope domain.Scope, evt interfaces.Event) error {
	store, ok := p.stores[scope.Key()]
	if !ok {
		return nil
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	var decoded interfaces.Event
	if err := json.Unmarshal(body, &decoded); err != nil {
		return err
	}

	store.Apply(decoded)
	return nil
}

func TestWarningFlowAcrossScopes(t *testing.T) {
	ctx := context.Background()
	lgr := logger.New("engine-test")

	adminStore := tracking.NewStore(domain.AllScope())
	merchantStore := tracking.NewStore(domain.MerchantScope("m-1"))
	customerStore := tracking.NewStore(domain.CustomerScope("c-1"))

	pub := &routedPublisher{stores: map[string]*tracking.Store{
		adminStore.Scope().Key():    adminStore,
		merchantStore.Scope().Key(): merchantStore,
		customerStore.Scope().Key(): customerStore,
	}}

	distributor := dispatch.New(pub, lgr, config.PublishConfig{TimeoutSeconds: 1, MaxAttempts: 3, BackoffMillis: 1})

	repo := newMemOrderRepo()
	tracker := sla.NewTracker(distributor, repo, lgr, serviceTestSLA)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker.Now = clock

	pricer := pricing.NewStatic(config.PricingConfig{DeliveryFee: 2.5, ServiceFee: 1})
	service := NewService(repo, distributor, tracker, pricer, lgr, serviceTestSLA)
	service.now = clock

	// T: customer places an order; every scope sees it
	order, err := service.CreateOrder(ctx, customer, createCmd("delivery"))
	require.NoError(t, err)

	for _, store := range []*tracking.Store{adminStore, merchantStore, customerStore} {
		orders := store.Orders()
		require.Len(t, orders, 1)
		assert.Equal(t, order.Number, orders[0].Number)
		assert.Equal(t, domain.StatusSubmitted, orders[0].Status)
	}

	// T+4:30: inside the accept warning window; admin and merchant see the
	// warning, the customer does not
	now = now.Add(4*time.Minute + 30*time.Second)
	tracker.Sweep(ctx)

	for _, store := range []*tracking.Store{adminStore, merchantStore} {
		sig, ok := store.Signal(order.ID, domain.SignalAccept)
		require.True(t, ok)
		assert.Equal(t, domain.SeverityWarning, sig.Severity)
		assert.Equal(t, order.Number, sig.OrderNumber)
	}
	assert.Empty(t, customerStore.Signals())

	// T+4:45: the merchant accepts; the change clears the warning everywhere
	now = now.Add(15 * time.Second)
	_, err = service.Transition(ctx, staff, interfaces.TransitionCommand{
		OrderNumber: order.Number,
		Target:      domain.StatusAccepted,
	})
	require.NoError(t, err)

	for _, store := range []*tracking.Store{adminStore, merchantStore, customerStore} {
		orders := store.Orders()
		require.Len(t, orders, 1)
		assert.Equal(t, domain.StatusAccepted, orders[0].Status)
		require.NotNil(t, orders[0].AcceptedAt)
		assert.Empty(t, store.Signals())
	}

	// T+5:01: past the accept deadline, but the stage was exited in time
	now = now.Add(16 * time.Second)
	tracker.Sweep(ctx)

	assert.Empty(t, adminStore.Signals())
	assert.Empty(t, merchantStore.Signals())
}
