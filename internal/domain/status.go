package domain

import "time"

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusAccepted   Status = "accepted"
	StatusPreparing  Status = "preparing"
	StatusReady      Status = "ready"
	StatusInDelivery Status = "in_delivery"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// statusRanks orders statuses along the lifecycle. The reconciliation store
// uses ranks to drop status events that arrive out of order.
var statusRanks = map[Status]int{
	StatusSubmitted:  1,
	StatusAccepted:   2,
	StatusPreparing:  3,
	StatusReady:      4,
	StatusInDelivery: 5,
	StatusCompleted:  6,
	StatusCancelled:  7,
}

// Rank returns the position of the status in the lifecycle; unknown statuses rank 0.
func (s Status) Rank() int {
	return statusRanks[s]
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// SignalKind identifies which SLA deadline a signal concerns.
type SignalKind string

const (
	SignalAccept SignalKind = "accept"
	SignalReady  SignalKind = "ready"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityBreached Severity = "breached"
)

// SLASignal is an ephemeral alert raised when an order approaches or passes
// a deadline. It is superseded or cleared once the order leaves the stage
// the deadline concerns.
type SLASignal struct {
	OrderID     string
	OrderNumber string
	MerchantID  string
	Kind        SignalKind
	Severity    Severity
	Deadline    time.Time
}

type CancelActor string

const (
	CancelledByCustomer CancelActor = "customer"
	CancelledByMerchant CancelActor = "merchant"
)

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int
	OrderID   string
	Status    Status
	ChangedBy string
	ChangedAt time.Time
}
