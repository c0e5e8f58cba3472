package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T, orderType OrderType) *Order {
	t.Helper()

	addr := "12 Main Street"
	var deliveryAddress *string
	if orderType == OrderTypeDelivery {
		deliveryAddress = &addr
	}

	order, err := NewOrder("o-1", "m-1", "c-1", orderType,
		[]OrderItem{{MenuItemID: "mi-1", Name: "Margherita", Quantity: 2, UnitPrice: 10}},
		deliveryAddress, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		5*time.Minute, 30*time.Minute)
	require.NoError(t, err)
	return order
}

func TestNewOrderDeadlines(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	addr := "12 Main Street"

	order, err := NewOrder("o-1", "m-1", "c-1", OrderTypeDelivery,
		[]OrderItem{{MenuItemID: "mi-1", Name: "Margherita", Quantity: 1, UnitPrice: 9.5}},
		&addr, createdAt, 5*time.Minute, 30*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, order.Status)
	assert.Equal(t, createdAt.Add(5*time.Minute), order.AcceptDeadline)
	assert.Equal(t, createdAt.Add(30*time.Minute), order.ReadyDeadline)
	assert.Equal(t, 9.5, order.TotalAmount)
	assert.Equal(t, 1, order.Version)
}

func TestNewOrderValidation(t *testing.T) {
	now := time.Now()
	addr := "12 Main Street"
	item := OrderItem{MenuItemID: "mi-1", Name: "Margherita", Quantity: 1, UnitPrice: 9.5}

	tests := []struct {
		name       string
		merchantID string
		customerID string
		orderType  OrderType
		items      []OrderItem
		address    *string
	}{
		{"no items", "m-1", "c-1", OrderTypePickup, nil, nil},
		{"zero quantity", "m-1", "c-1", OrderTypePickup, []OrderItem{{Name: "x", Quantity: 0, UnitPrice: 1}}, nil},
		{"negative price", "m-1", "c-1", OrderTypePickup, []OrderItem{{Name: "x", Quantity: 1, UnitPrice: -1}}, nil},
		{"unknown type", "m-1", "c-1", OrderType("dine_in"), []OrderItem{item}, nil},
		{"delivery without address", "m-1", "c-1", OrderTypeDelivery, []OrderItem{item}, nil},
		{"missing merchant", "", "c-1", OrderTypePickup, []OrderItem{item}, nil},
		{"missing customer", "m-1", "", OrderTypePickup, []OrderItem{item}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder("o-1", tc.merchantID, tc.customerID, tc.orderType, tc.items, tc.address, now, 5*time.Minute, 30*time.Minute)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOrder), "expected ErrInvalidOrder, got %v", err)
		})
	}

	_, err := NewOrder("o-1", "m-1", "c-1", OrderTypeDelivery, []OrderItem{item}, &addr, now, 5*time.Minute, 30*time.Minute)
	assert.NoError(t, err)
}

func TestTransitionGraph(t *testing.T) {
	all := []Status{StatusSubmitted, StatusAccepted, StatusPreparing, StatusReady, StatusInDelivery, StatusCompleted, StatusCancelled}

	allowed := map[OrderType]map[Status][]Status{
		OrderTypeDelivery: {
			StatusSubmitted:  {StatusAccepted, StatusCancelled},
			StatusAccepted:   {StatusPreparing, StatusCancelled},
			StatusPreparing:  {StatusReady, StatusCancelled},
			StatusReady:      {StatusInDelivery},
			StatusInDelivery: {StatusCompleted},
			StatusCompleted:  {},
			StatusCancelled:  {},
		},
		OrderTypePickup: {
			StatusSubmitted:  {StatusAccepted, StatusCancelled},
			StatusAccepted:   {StatusPreparing, StatusCancelled},
			StatusPreparing:  {StatusReady, StatusCancelled},
			StatusReady:      {StatusCompleted},
			StatusInDelivery: {StatusCompleted},
			StatusCompleted:  {},
			StatusCancelled:  {},
		},
	}

	for orderType, graph := range allowed {
		for _, from := range all {
			for _, target := range all {
				order := testOrder(t, orderType)
				order.Status = from

				want := false
				for _, s := range graph[from] {
					if s == target {
						want = true
					}
				}

				err := order.TransitionTo(target, time.Now())
				if want {
					assert.NoError(t, err, "%s %s -> %s should be allowed", orderType, from, target)
				} else {
					assert.True(t, errors.Is(err, ErrInvalidTransition), "%s %s -> %s should be rejected", orderType, from, target)
				}
			}
		}
	}
}

func TestTransitionStampsTimestamps(t *testing.T) {
	order := testOrder(t, OrderTypeDelivery)

	t1 := order.CreatedAt.Add(time.Minute)
	require.NoError(t, order.TransitionTo(StatusAccepted, t1))
	require.NotNil(t, order.AcceptedAt)
	assert.Equal(t, t1, *order.AcceptedAt)

	require.NoError(t, order.TransitionTo(StatusPreparing, t1.Add(time.Minute)))
	assert.Nil(t, order.ReadyAt)

	t3 := t1.Add(10 * time.Minute)
	require.NoError(t, order.TransitionTo(StatusReady, t3))
	require.NotNil(t, order.ReadyAt)
	assert.Equal(t, t3, *order.ReadyAt)
}

func TestCancelRecordsMetadata(t *testing.T) {
	order := testOrder(t, OrderTypePickup)

	now := order.CreatedAt.Add(2 * time.Minute)
	require.NoError(t, order.Cancel("changed my mind", CancelledByCustomer, now))

	assert.Equal(t, StatusCancelled, order.Status)
	require.NotNil(t, order.CancelledAt)
	assert.Equal(t, now, *order.CancelledAt)
	require.NotNil(t, order.CancelReason)
	assert.Equal(t, "changed my mind", *order.CancelReason)
	require.NotNil(t, order.CancelledBy)
	assert.Equal(t, CancelledByCustomer, *order.CancelledBy)
}

func TestCancelNotAllowedAfterReady(t *testing.T) {
	order := testOrder(t, OrderTypeDelivery)
	order.Status = StatusReady

	err := order.Cancel("too late", CancelledByCustomer, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Nil(t, order.CancelledBy)
}

func TestStagePending(t *testing.T) {
	order := testOrder(t, OrderTypeDelivery)

	assert.True(t, order.StagePending(SignalAccept))
	assert.True(t, order.StagePending(SignalReady))

	order.Status = StatusAccepted
	assert.False(t, order.StagePending(SignalAccept))
	assert.True(t, order.StagePending(SignalReady))

	order.Status = StatusPreparing
	assert.True(t, order.StagePending(SignalReady))

	order.Status = StatusReady
	assert.False(t, order.StagePending(SignalReady))

	order.Status = StatusCancelled
	assert.False(t, order.StagePending(SignalAccept))
	assert.False(t, order.StagePending(SignalReady))
}
