package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// Distributor routes domain events to every scope entitled to them and
// publishes once per scope. Publishing blocks with a bounded timeout rather
// than dropping; backpressure is retried with backoff and exhausted retries
// are logged as undelivered.
type Distributor struct {
	publisher   interfaces.EventPublisher
	logger      logger.Logger
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

func New(publisher interfaces.EventPublisher, lgr logger.Logger, cfg config.PublishConfig) *Distributor {
	return &Distributor{
		publisher:   publisher,
		logger:      lgr,
		timeout:     cfg.Timeout(),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff(),
	}
}

func (d *Distributor) OrderCreated(ctx context.Context, order *domain.Order) error {
	evt := interfaces.Event{
		Type:  interfaces.EventOrderCreated,
		Order: interfaces.ViewOf(order),
	}

	return d.fanout(ctx, evt,
		domain.AllScope(),
		domain.MerchantScope(order.MerchantID),
		domain.CustomerScope(order.CustomerID),
	)
}

func (d *Distributor) StatusChanged(ctx context.Context, order *domain.Order, oldStatus domain.Status, changedBy string) error {
	evt := interfaces.Event{
		Type: interfaces.EventOrderStatusChanged,
		StatusChange: &interfaces.StatusChangeEvent{
			OrderID:     order.ID,
			OrderNumber: order.Number,
			OldStatus:   oldStatus,
			NewStatus:   order.Status,
			ChangedBy:   changedBy,
			ChangedAt:   order.UpdatedAt,
			SLAClear:    clearsSignals(order.Status),
		},
	}

	return d.fanout(ctx, evt,
		domain.AllScope(),
		domain.MerchantScope(order.MerchantID),
		domain.CustomerScope(order.CustomerID),
	)
}

// Signal publishes an SLA signal to the admin and merchant scopes only;
// customers are not alarmed by internal SLA timers.
func (d *Distributor) Signal(ctx context.Context, sig domain.SLASignal) error {
	evt := interfaces.Event{
		Type: interfaces.EventSLASignal,
		SLASignal: &interfaces.SLASignalEvent{
			OrderID:     sig.OrderID,
			OrderNumber: sig.OrderNumber,
			MerchantID:  sig.MerchantID,
			Kind:        sig.Kind,
			Severity:    sig.Severity,
			Deadline:    sig.Deadline,
		},
	}

	return d.fanout(ctx, evt,
		domain.AllScope(),
		domain.MerchantScope(sig.MerchantID),
	)
}

// clearsSignals reports whether entering the status satisfies, supersedes
// or terminates the order's SLA obligations: subscriber caches drop the
// order's outstanding signals when they see the change.
func clearsSignals(s domain.Status) bool {
	switch s {
	case domain.StatusAccepted, domain.StatusReady, domain.StatusInDelivery, domain.StatusCompleted, domain.StatusCancelled:
		return true
	}
	return false
}

func (d *Distributor) fanout(ctx context.Context, evt interfaces.Event, scopes ...domain.Scope) error {
	var errs []error
	for _, scope := range scopes {
		if err := d.publishWithRetry(ctx, scope, evt); err != nil {
			d.logger.Warn("event_undelivered", "Event exhausted its publish retries; affected scope should full-resync", "", map[string]interface{}{
				"event_type": string(evt.Type),
				"order_id":   evt.OrderID(),
				"scope":      scope.Key(),
			})
			errs = append(errs, fmt.Errorf("scope %s: %w", scope.Key(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Distributor) publishWithRetry(ctx context.Context, scope domain.Scope, evt interfaces.Event) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, d.timeout)
		err = d.publisher.Publish(pctx, scope, evt)
		cancel()

		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == d.maxAttempts {
			break
		}

		d.logger.Debug("publish_retry", fmt.Sprintf("Publish to %s backpressured, retrying", scope.Key()), "", map[string]interface{}{
			"attempt": attempt,
			"scope":   scope.Key(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrChannelBackpressure) || errors.Is(err, context.DeadlineExceeded)
}
