package interfaces

import (
	"context"

	"github.com/quickbite/orderflow/internal/domain"
)

// OrderRepository is the durable order store. Saves are atomic per order;
// Update applies only when the caller holds the current version and fails
// with domain.ErrConflict otherwise.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	ListByScope(ctx context.Context, scope domain.Scope) ([]*domain.Order, error)
	ListOpen(ctx context.Context) ([]*domain.Order, error)
	GenerateOrderNumber(ctx context.Context) (string, error)
	LogStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) error
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
}

type SubscriberRepository interface {
	Register(ctx context.Context, sub *domain.Subscriber) error
	FindByName(ctx context.Context, name string) (*domain.Subscriber, error)
	Update(ctx context.Context, sub *domain.Subscriber) error
	UpdateHeartbeat(ctx context.Context, name string) error
	IncrementEventsApplied(ctx context.Context, name string) error
	ListAll(ctx context.Context) ([]*domain.Subscriber, error)
}
