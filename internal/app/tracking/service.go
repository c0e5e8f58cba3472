package tracking

import (
	"context"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/app/sla"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// subscriberOfflineAfter is twice the default heartbeat interval.
const subscriberOfflineAfter = 60 * time.Second

// Service is the read side: scoped snapshots for (re)connecting clients,
// single-order status with SLA state, and subscriber liveness.
type Service struct {
	orderRepo      interfaces.OrderRepository
	subscriberRepo interfaces.SubscriberRepository
	logger         logger.Logger
	acceptWarning  time.Duration
	readyWarning   time.Duration
}

func NewService(orderRepo interfaces.OrderRepository, subscriberRepo interfaces.SubscriberRepository, lgr logger.Logger, cfg config.SLAConfig) *Service {
	return &Service{
		orderRepo:      orderRepo,
		subscriberRepo: subscriberRepo,
		logger:         lgr,
		acceptWarning:  cfg.AcceptWarning(),
		readyWarning:   cfg.ReadyWarning(),
	}
}

// Snapshot returns the full order list visible to the scope, newest first.
func (s *Service) Snapshot(ctx context.Context, scope domain.Scope) ([]*interfaces.OrderView, error) {
	orders, err := s.orderRepo.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	views := make([]*interfaces.OrderView, len(orders))
	for i, o := range orders {
		views[i] = interfaces.ViewOf(o)
	}
	return views, nil
}

func (s *Service) GetOrderStatus(ctx context.Context, orderNumber string) (*interfaces.OrderStatusResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	resp := &interfaces.OrderStatusResponse{
		OrderNumber:    order.Number,
		Status:         order.Status,
		UpdatedAt:      order.UpdatedAt,
		AcceptDeadline: order.AcceptDeadline,
		ReadyDeadline:  order.ReadyDeadline,
	}

	now := time.Now()
	if order.StagePending(domain.SignalAccept) {
		resp.AcceptSLA = string(sla.StatusAt(order.AcceptDeadline, s.acceptWarning, now))
	}
	if order.StagePending(domain.SignalReady) {
		resp.ReadySLA = string(sla.StatusAt(order.ReadyDeadline, s.readyWarning, now))
	}

	return resp, nil
}

func (s *Service) GetOrderHistory(ctx context.Context, orderNumber string) ([]*domain.StatusLog, error) {
	order, err := s.orderRepo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetStatusHistory(ctx, order.ID)
}

func (s *Service) GetSubscribersStatus(ctx context.Context) ([]*interfaces.SubscriberStatusResponse, error) {
	subscribers, err := s.subscriberRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var resp []*interfaces.SubscriberStatusResponse
	for _, sub := range subscribers {
		status := sub.Status
		if status == domain.SubscriberStatusOnline && !sub.IsOnline(subscriberOfflineAfter) {
			status = domain.SubscriberStatusOffline
		}

		resp = append(resp, &interfaces.SubscriberStatusResponse{
			Name:          sub.Name,
			Scope:         sub.Scope.Key(),
			Status:        status,
			EventsApplied: sub.EventsApplied,
			LastSeen:      sub.LastSeen,
		})
	}

	return resp, nil
}
