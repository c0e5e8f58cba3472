package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// Service is the single authority mutating order state. Creation and
// transitions for different orders run concurrently; a lost race on the
// same order surfaces as domain.ErrConflict through the repository's
// version check, and the caller retries against the latest state.
type Service struct {
	repo        interfaces.OrderRepository
	distributor interfaces.EventDistributor
	tracker     interfaces.DeadlineTracker
	pricer      interfaces.Pricer
	logger      logger.Logger

	acceptTimeout time.Duration
	readyTimeout  time.Duration

	now func() time.Time
}

func NewService(
	repo interfaces.OrderRepository,
	distributor interfaces.EventDistributor,
	tracker interfaces.DeadlineTracker,
	pricer interfaces.Pricer,
	lgr logger.Logger,
	cfg config.SLAConfig,
) *Service {
	return &Service{
		repo:          repo,
		distributor:   distributor,
		tracker:       tracker,
		pricer:        pricer,
		logger:        lgr,
		acceptTimeout: cfg.AcceptTimeout(),
		readyTimeout:  cfg.ReadyTimeout(),
		now:           time.Now,
	}
}

func (s *Service) CreateOrder(ctx context.Context, principal *domain.Principal, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	if principal == nil {
		return nil, domain.ErrUnauthorized
	}

	customerID := cmd.CustomerID
	if customerID == "" {
		customerID = principal.ID
	}
	if !principal.OwnsOrDelegated(customerID) {
		return nil, fmt.Errorf("%w: cannot place an order for another customer", domain.ErrForbidden)
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}

	order, err := domain.NewOrder(
		uuid.NewString(),
		cmd.MerchantID,
		customerID,
		domain.OrderType(cmd.OrderType),
		items,
		cmd.DeliveryAddress,
		s.now(),
		s.acceptTimeout,
		s.readyTimeout,
	)
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, err
	}

	quote, err := s.pricer.Quote(ctx, order.Type, order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to price order: %w", err)
	}
	order.TotalAmount = quote.Total

	number, err := s.repo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}
	order.Number = number

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_create_failed", "Failed to create order", "", nil, err)
		return nil, err
	}

	s.logger.Debug("order_created", "Order created", "", map[string]interface{}{
		"order_number": order.Number,
		"merchant_id":  order.MerchantID,
	})

	// The order is durable; a failed fan-out is logged as undelivered by
	// the distributor and fixed by a scope resync, not by failing the
	// creation.
	if err := s.distributor.OrderCreated(ctx, order); err != nil {
		s.logger.Error("event_publish_failed", "Failed to distribute order_created", "", map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}

	s.tracker.Track(order)

	return order, nil
}

func (s *Service) Transition(ctx context.Context, principal *domain.Principal, cmd interfaces.TransitionCommand) (*domain.Order, error) {
	if principal == nil {
		return nil, domain.ErrUnauthorized
	}

	order, err := s.repo.FindByNumber(ctx, cmd.OrderNumber)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(principal, order, cmd.Target); err != nil {
		return nil, err
	}

	oldStatus := order.Status
	now := s.now()

	if cmd.Target == domain.StatusCancelled {
		err = order.Cancel(cmd.CancelReason, cancelActor(principal, order), now)
	} else {
		err = order.TransitionTo(cmd.Target, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	if err := s.repo.LogStatus(ctx, order.ID, order.Status, principal.ID); err != nil {
		s.logger.Error("status_log_failed", "Failed to log status change", "", map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}

	s.logger.Debug("order_transitioned", fmt.Sprintf("Order %s: %s -> %s", order.Number, oldStatus, order.Status), "", map[string]interface{}{
		"order_number": order.Number,
		"old_status":   string(oldStatus),
		"new_status":   string(order.Status),
	})

	if err := s.distributor.StatusChanged(ctx, order, oldStatus, principal.ID); err != nil {
		s.logger.Error("event_publish_failed", "Failed to distribute status change", "", map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}

	s.tracker.OrderChanged(order)

	return order, nil
}

// authorizeTransition checks the actor against the edge being taken.
// Forward edges belong to the owning merchant's staff (admin bypasses);
// cancellation additionally belongs to the owning customer.
func authorizeTransition(p *domain.Principal, order *domain.Order, target domain.Status) error {
	if target == domain.StatusCancelled {
		if p.OwnsOrDelegated(order.CustomerID) || staffOf(p, order.MerchantID) {
			return nil
		}
		return fmt.Errorf("%w: only the customer, the merchant or an admin may cancel", domain.ErrForbidden)
	}

	if staffOf(p, order.MerchantID) || domain.Satisfies(p.Role, domain.RoleAdmin) {
		return nil
	}
	return fmt.Errorf("%w: only merchant staff or an admin may move order to %s", domain.ErrForbidden, target)
}

func staffOf(p *domain.Principal, merchantID string) bool {
	return domain.Satisfies(p.Role, domain.RoleMerchantStaff) && p.OwnsMerchantResource(merchantID)
}

// cancelActor records which side cancelled. Admins cancelling someone
// else's order are recorded on the merchant side.
func cancelActor(p *domain.Principal, order *domain.Order) domain.CancelActor {
	if p.ID == order.CustomerID {
		return domain.CancelledByCustomer
	}
	return domain.CancelledByMerchant
}
