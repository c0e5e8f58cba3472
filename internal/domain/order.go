package domain

import (
	"fmt"
	"time"
)

// Order represents a customer order owned by a merchant. It is created once,
// mutated only through TransitionTo/Cancel, and becomes immutable on a
// terminal status.
type Order struct {
	ID              string
	Number          string
	Status          Status
	MerchantID      string
	CustomerID      string
	Type            OrderType
	DeliveryAddress *string
	Items           []OrderItem
	TotalAmount     float64
	CreatedAt       time.Time
	AcceptedAt      *time.Time
	ReadyAt         *time.Time
	CancelledAt     *time.Time
	CancelReason    *string
	CancelledBy     *CancelActor
	AcceptDeadline  time.Time
	ReadyDeadline   time.Time
	UpdatedAt       time.Time

	// Version guards against lost updates: the repository only applies an
	// Update carrying the version it last read.
	Version int
}

// OrderItem represents an item in an order
type OrderItem struct {
	MenuItemID string
	Name       string
	Quantity   int
	UnitPrice  float64
}

// NewOrder creates a new order in SUBMITTED state with both SLA deadlines
// stamped relative to now. TotalAmount starts at the item subtotal; the
// pricing collaborator adds fees on top.
func NewOrder(id, merchantID, customerID string, orderType OrderType, items []OrderItem, deliveryAddress *string, now time.Time, acceptTimeout, readyTimeout time.Duration) (*Order, error) {
	order := &Order{
		ID:              id,
		Status:          StatusSubmitted,
		MerchantID:      merchantID,
		CustomerID:      customerID,
		Type:            orderType,
		DeliveryAddress: deliveryAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
		AcceptDeadline:  now.Add(acceptTimeout),
		ReadyDeadline:   now.Add(readyTimeout),
		Version:         1,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.TotalAmount = order.Subtotal()

	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	if o.MerchantID == "" {
		return fmt.Errorf("%w: merchant id is required", ErrInvalidOrder)
	}

	if o.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidOrder)
	}

	if o.Type != OrderTypeDelivery && o.Type != OrderTypePickup {
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, o.Type)
	}

	if o.Type == OrderTypeDelivery && (o.DeliveryAddress == nil || *o.DeliveryAddress == "") {
		return fmt.Errorf("%w: delivery address is required for delivery orders", ErrInvalidOrder)
	}

	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order must have at least one item", ErrInvalidOrder)
	}

	for _, item := range o.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %q has non-positive quantity", ErrInvalidOrder, item.Name)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %q has negative price", ErrInvalidOrder, item.Name)
		}
	}

	return nil
}

// Subtotal returns the sum of unit price times quantity over all items.
func (o *Order) Subtotal() float64 {
	total := 0.0
	for _, item := range o.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}

// nextStatuses returns the direct successors of the current status.
// PICKUP orders skip IN_DELIVERY; CANCELLED is reachable only before the
// goods are prepared or dispatched.
func (o *Order) nextStatuses() []Status {
	switch o.Status {
	case StatusSubmitted:
		return []Status{StatusAccepted, StatusCancelled}
	case StatusAccepted:
		return []Status{StatusPreparing, StatusCancelled}
	case StatusPreparing:
		return []Status{StatusReady, StatusCancelled}
	case StatusReady:
		if o.Type == OrderTypePickup {
			return []Status{StatusCompleted}
		}
		return []Status{StatusInDelivery}
	case StatusInDelivery:
		return []Status{StatusCompleted}
	default:
		return nil
	}
}

// CanTransitionTo checks if the order can transition to the new status
func (o *Order) CanTransitionTo(newStatus Status) bool {
	for _, s := range o.nextStatuses() {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the order to a new status, stamping the
// stage-entry timestamp where one exists.
func (o *Order) TransitionTo(newStatus Status, now time.Time) error {
	if !o.CanTransitionTo(newStatus) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
	}

	o.Status = newStatus
	o.UpdatedAt = now

	stamp := now
	switch newStatus {
	case StatusAccepted:
		o.AcceptedAt = &stamp
	case StatusReady:
		o.ReadyAt = &stamp
	case StatusCancelled:
		o.CancelledAt = &stamp
	}

	return nil
}

// Cancel transitions the order to CANCELLED and records who cancelled and why.
func (o *Order) Cancel(reason string, by CancelActor, now time.Time) error {
	if err := o.TransitionTo(StatusCancelled, now); err != nil {
		return err
	}

	if reason != "" {
		o.CancelReason = &reason
	}
	o.CancelledBy = &by

	return nil
}

// StagePending reports whether the order has yet to reach the stage the
// given deadline kind concerns. A signal must never be emitted for a stage
// the order has already exited.
func (o *Order) StagePending(kind SignalKind) bool {
	switch kind {
	case SignalAccept:
		return o.Status == StatusSubmitted
	case SignalReady:
		return o.Status == StatusSubmitted || o.Status == StatusAccepted || o.Status == StatusPreparing
	default:
		return false
	}
}

// DeadlineFor returns the deadline for the given kind.
func (o *Order) DeadlineFor(kind SignalKind) time.Time {
	if kind == SignalAccept {
		return o.AcceptDeadline
	}
	return o.ReadyDeadline
}
