package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/app/tracking"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// Service runs one feed session: it registers the subscriber, snapshots its
// scope on every (re)connect, applies the event stream to the local store,
// and heartbeats while connected.
type Service struct {
	store             *tracking.Store
	snapshots         interfaces.TrackingService
	subscriberRepo    interfaces.SubscriberRepository
	logger            logger.Logger
	name              string
	heartbeatInterval time.Duration
}

func NewService(
	store *tracking.Store,
	snapshots interfaces.TrackingService,
	subscriberRepo interfaces.SubscriberRepository,
	lgr logger.Logger,
	name string,
	heartbeatInterval int,
) *Service {
	return &Service{
		store:             store,
		snapshots:         snapshots,
		subscriberRepo:    subscriberRepo,
		logger:            lgr,
		name:              name,
		heartbeatInterval: time.Duration(heartbeatInterval) * time.Second,
	}
}

func (s *Service) Start(ctx context.Context) error {
	sub, err := s.subscriberRepo.FindByName(ctx, s.name)
	if err == nil {
		if sub.Status == domain.SubscriberStatusOnline {
			return fmt.Errorf("subscriber %s is already online", s.name)
		}
		sub.Scope = s.store.Scope()
		sub.UpdateHeartbeat()
		if err := s.subscriberRepo.Update(ctx, sub); err != nil {
			return err
		}
	} else {
		sub, err = domain.NewSubscriber(s.name, s.store.Scope())
		if err != nil {
			return err
		}
		if err := s.subscriberRepo.Register(ctx, sub); err != nil {
			return err
		}
	}

	s.logger.Info("subscriber_registered", fmt.Sprintf("Subscriber %s registered for scope %s", s.name, s.store.Scope().Key()), "", nil)

	go s.heartbeatLoop(ctx)

	return nil
}

func (s *Service) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.subscriberRepo.UpdateHeartbeat(ctx, s.name); err != nil {
				s.logger.Error("heartbeat_failed", "Failed to update heartbeat", "", nil, err)
			}
		}
	}
}

func (s *Service) Shutdown(ctx context.Context) error {
	sub, err := s.subscriberRepo.FindByName(ctx, s.name)
	if err != nil {
		return err
	}
	sub.SetOffline()
	return s.subscriberRepo.Update(ctx, sub)
}

// OnConnect replaces the local view with a fresh scoped snapshot. Runs on
// initial connection and after every transport reconnect; gaps are never
// replayed, they are resynced away.
func (s *Service) OnConnect(ctx context.Context) error {
	views, err := s.snapshots.Snapshot(ctx, s.store.Scope())
	if err != nil {
		return fmt.Errorf("failed to snapshot scope %s: %w", s.store.Scope().Key(), err)
	}

	s.store.ReplaceSnapshot(views)

	s.logger.Info("snapshot_applied", fmt.Sprintf("Snapshot of %d orders applied for scope %s", len(views), s.store.Scope().Key()), "", map[string]interface{}{
		"scope":  s.store.Scope().Key(),
		"orders": len(views),
	})
	return nil
}

// OnDisconnect marks the view stale; it keeps rendering last-known state
// until OnConnect resnapshots.
func (s *Service) OnDisconnect() {
	s.store.MarkStale()
	s.logger.Warn("feed_disconnected", "Feed disconnected; view marked stale until resync", "", map[string]interface{}{
		"scope": s.store.Scope().Key(),
	})
}

// ApplyEvent merges one decoded event into the store.
func (s *Service) ApplyEvent(ctx context.Context, evt interfaces.Event) error {
	applied := s.store.Apply(evt)

	if !applied {
		s.logger.Debug("event_skipped", "Event was a duplicate, stale or out of scope", "", map[string]interface{}{
			"event_type": string(evt.Type),
			"order_id":   evt.OrderID(),
		})
		return nil
	}

	if err := s.subscriberRepo.IncrementEventsApplied(ctx, s.name); err != nil {
		s.logger.Error("subscriber_stats_failed", "Failed to update subscriber stats", "", nil, err)
	}

	s.logger.Info("event_applied", fmt.Sprintf("Applied %s for order %s", evt.Type, evt.OrderID()), "", map[string]interface{}{
		"event_type": string(evt.Type),
		"order_id":   evt.OrderID(),
	})
	return nil
}
