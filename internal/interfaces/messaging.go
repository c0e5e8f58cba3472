package interfaces

import (
	"context"
	"time"

	"github.com/quickbite/orderflow/internal/domain"
)

type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderStatusChanged EventType = "order_status_changed"
	EventSLASignal          EventType = "sla_signal"
)

// Event is the wire envelope published to scoped channels. Delivery is
// at-least-once: consumers must de-duplicate and guard against stale
// status changes.
type Event struct {
	Type         EventType          `json:"type"`
	Order        *OrderView         `json:"order,omitempty"`
	StatusChange *StatusChangeEvent `json:"status_change,omitempty"`
	SLASignal    *SLASignalEvent    `json:"sla_signal,omitempty"`
}

// OrderID returns the id of the order the event concerns.
func (e Event) OrderID() string {
	switch {
	case e.Order != nil:
		return e.Order.ID
	case e.StatusChange != nil:
		return e.StatusChange.OrderID
	case e.SLASignal != nil:
		return e.SLASignal.OrderID
	}
	return ""
}

// OrderView is the client-facing projection of an order, carried in
// snapshots and order_created events.
type OrderView struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	Status          domain.Status      `json:"status"`
	MerchantID      string             `json:"merchant_id"`
	CustomerID      string             `json:"customer_id"`
	Type            domain.OrderType   `json:"type"`
	DeliveryAddress *string            `json:"delivery_address,omitempty"`
	Items           []OrderItemView    `json:"items"`
	TotalAmount     float64            `json:"total_amount"`
	CreatedAt       time.Time          `json:"created_at"`
	AcceptedAt      *time.Time         `json:"accepted_at,omitempty"`
	ReadyAt         *time.Time         `json:"ready_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason    *string            `json:"cancel_reason,omitempty"`
	CancelledBy     *domain.CancelActor `json:"cancelled_by,omitempty"`
	AcceptDeadline  time.Time          `json:"accept_deadline"`
	ReadyDeadline   time.Time          `json:"ready_deadline"`
}

type OrderItemView struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// StatusChangeEvent announces a completed lifecycle transition. SLAClear is
// the implicit instruction to drop any outstanding SLA signals for the
// order so subscriber caches do not keep stale warnings.
type StatusChangeEvent struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	ChangedBy   string        `json:"changed_by"`
	ChangedAt   time.Time     `json:"changed_at"`
	SLAClear    bool          `json:"sla_clear"`
}

type SLASignalEvent struct {
	OrderID     string            `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	MerchantID  string            `json:"merchant_id"`
	Kind        domain.SignalKind `json:"kind"`
	Severity    domain.Severity   `json:"severity"`
	Deadline    time.Time         `json:"deadline"`
}

// ViewOf projects an order into its client-facing view.
func ViewOf(o *domain.Order) *OrderView {
	items := make([]OrderItemView, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemView{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}

	return &OrderView{
		ID:              o.ID,
		Number:          o.Number,
		Status:          o.Status,
		MerchantID:      o.MerchantID,
		CustomerID:      o.CustomerID,
		Type:            o.Type,
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		CreatedAt:       o.CreatedAt,
		AcceptedAt:      o.AcceptedAt,
		ReadyAt:         o.ReadyAt,
		CancelledAt:     o.CancelledAt,
		CancelReason:    o.CancelReason,
		CancelledBy:     o.CancelledBy,
		AcceptDeadline:  o.AcceptDeadline,
		ReadyDeadline:   o.ReadyDeadline,
	}
}

// EventPublisher publishes one event to one scoped channel. A publish that
// cannot be accepted before its context deadline fails with
// domain.ErrChannelBackpressure.
type EventPublisher interface {
	Publish(ctx context.Context, scope domain.Scope, evt Event) error
}

// EventConsumer subscribes to one scoped channel. OnConnect runs after every
// successful (re)bind, before events flow; subscribers use it to re-snapshot.
// OnDisconnect runs when the channel drops, before reconnection is attempted.
type EventConsumer interface {
	Subscribe(ctx context.Context, scope domain.Scope, hooks SubscriptionHooks, handler EventMessageHandler) error
}

type SubscriptionHooks struct {
	OnConnect    func(ctx context.Context) error
	OnDisconnect func()
}

type EventMessageHandler func(ctx context.Context, body []byte) error
