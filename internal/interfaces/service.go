package interfaces

import (
	"context"
	"time"

	"github.com/quickbite/orderflow/internal/domain"
)

// Commands accepted by the order service.
type CreateOrderCommand struct {
	MerchantID      string
	CustomerID      string
	OrderType       string
	DeliveryAddress *string
	Items           []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	MenuItemID string
	Name       string
	Quantity   int
	UnitPrice  float64
}

type TransitionCommand struct {
	OrderNumber  string
	Target       domain.Status
	CancelReason string
}

// OrderService is the single authority mutating order state.
type OrderService interface {
	CreateOrder(ctx context.Context, principal *domain.Principal, cmd CreateOrderCommand) (*domain.Order, error)
	Transition(ctx context.Context, principal *domain.Principal, cmd TransitionCommand) (*domain.Order, error)
}

// EventDistributor fans lifecycle and SLA events out to every scope entitled
// to them.
type EventDistributor interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	StatusChanged(ctx context.Context, order *domain.Order, oldStatus domain.Status, changedBy string) error
	Signal(ctx context.Context, sig domain.SLASignal) error
}

// DeadlineTracker watches SLA deadlines of non-terminal orders. Track arms
// timers for a new order; OrderChanged retires timers for stages the order
// has left.
type DeadlineTracker interface {
	Track(order *domain.Order)
	OrderChanged(order *domain.Order)
}

// PriceQuote is the pricing collaborator's breakdown for an order.
type PriceQuote struct {
	Subtotal    float64
	DeliveryFee float64
	ServiceFee  float64
	Total       float64
}

type Pricer interface {
	Quote(ctx context.Context, orderType domain.OrderType, items []domain.OrderItem) (PriceQuote, error)
}

// TrackingService is the read side: scoped snapshots, single-order status
// and history, and connected-subscriber liveness.
type TrackingService interface {
	Snapshot(ctx context.Context, scope domain.Scope) ([]*OrderView, error)
	GetOrderStatus(ctx context.Context, orderNumber string) (*OrderStatusResponse, error)
	GetOrderHistory(ctx context.Context, orderNumber string) ([]*domain.StatusLog, error)
	GetSubscribersStatus(ctx context.Context) ([]*SubscriberStatusResponse, error)
}

// OrderStatusResponse reports current status plus the SLA state of each
// still-pending deadline ("ok", "warning" or "breached").
type OrderStatusResponse struct {
	OrderNumber    string
	Status         domain.Status
	UpdatedAt      time.Time
	AcceptDeadline time.Time
	ReadyDeadline  time.Time
	AcceptSLA      string
	ReadySLA       string
}

type SubscriberStatusResponse struct {
	Name          string
	Scope         string
	Status        domain.SubscriberStatus
	EventsApplied int
	LastSeen      time.Time
}
