package sla

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// entry is one armed timer: it fires at fireAt with the given severity,
// then either rearms for the breach point (after a warning) or retires.
type entry struct {
	orderID     string
	orderNumber string
	merchantID  string
	kind        domain.SignalKind
	deadline    time.Time
	fireAt      time.Time
	severity    domain.Severity
	heapIndex   int
	cancelled   bool
}

// timerHeap is a min-heap ordered by fire time.
type timerHeap []*entry

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].fireAt.Before(h[j].fireAt) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*entry)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.heapIndex = -1
	*h = old[:n-1]
	return e
}

// Tracker watches the SLA deadlines of all non-terminal orders and emits
// exactly one signal per threshold crossing (warning, then breach) per
// order per deadline kind. One scheduling loop per process; the timer heap
// is shared with Track/OrderChanged callers and serialized by a mutex.
type Tracker struct {
	distributor interfaces.EventDistributor
	repo        interfaces.OrderRepository
	logger      logger.Logger

	acceptWarning time.Duration
	readyWarning  time.Duration

	mu     sync.Mutex
	timers timerHeap
	index  map[string]map[domain.SignalKind]*entry
	wake   chan struct{}

	// Now is the tracker's clock; overridable in tests.
	Now func() time.Time
}

func NewTracker(distributor interfaces.EventDistributor, repo interfaces.OrderRepository, lgr logger.Logger, cfg config.SLAConfig) *Tracker {
	return &Tracker{
		distributor:   distributor,
		repo:          repo,
		logger:        lgr,
		acceptWarning: cfg.AcceptWarning(),
		readyWarning:  cfg.ReadyWarning(),
		index:         make(map[string]map[domain.SignalKind]*entry),
		wake:          make(chan struct{}, 1),
		Now:           time.Now,
	}
}

// Track arms timers for every deadline stage the order has not yet passed.
// If a warning threshold is already behind us the entry is immediately due
// and fires on the next sweep.
func (t *Tracker) Track(order *domain.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, kind := range []domain.SignalKind{domain.SignalAccept, domain.SignalReady} {
		if !order.StagePending(kind) {
			continue
		}
		if _, armed := t.index[order.ID][kind]; armed {
			continue
		}

		deadline := order.DeadlineFor(kind)
		e := &entry{
			orderID:     order.ID,
			orderNumber: order.Number,
			merchantID:  order.MerchantID,
			kind:        kind,
			deadline:    deadline,
			fireAt:      deadline.Add(-t.warningFor(kind)),
			severity:    domain.SeverityWarning,
		}

		heap.Push(&t.timers, e)
		if t.index[order.ID] == nil {
			t.index[order.ID] = make(map[domain.SignalKind]*entry)
		}
		t.index[order.ID][kind] = e
	}

	t.signalWake()
}

// OrderChanged retires timers for every stage the order has left. Called by
// the state machine after each successful transition: acceptance cancels
// the ACCEPT timer, readiness and terminal states cancel the READY timer.
func (t *Tracker) OrderChanged(order *domain.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kinds := t.index[order.ID]
	for kind, e := range kinds {
		if order.StagePending(kind) {
			continue
		}
		e.cancelled = true
		if e.heapIndex >= 0 {
			heap.Remove(&t.timers, e.heapIndex)
		}
		delete(kinds, kind)
	}
	if len(kinds) == 0 {
		delete(t.index, order.ID)
	}
}

// Rearm reloads every open order from the repository and tracks it. Run at
// startup so a restart does not lose armed deadlines; anything already
// overdue fires on the first sweep, in ascending deadline order.
func (t *Tracker) Rearm(ctx context.Context) error {
	orders, err := t.repo.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open orders: %w", err)
	}

	for _, order := range orders {
		t.Track(order)
	}

	t.logger.Info("tracker_rearmed", fmt.Sprintf("Re-armed deadlines for %d open orders", len(orders)), "", nil)
	return nil
}

// Run is the scheduling loop. It sweeps all due timers, then sleeps until
// the next fire time, a wake from Track, or cancellation. A stalled loop
// self-heals: the next sweep drains every overdue entry in fire order.
func (t *Tracker) Run(ctx context.Context) {
	const idleWait = time.Hour

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		next := t.Sweep(ctx)

		wait := idleWait
		if !next.IsZero() {
			wait = next.Sub(t.Now())
			if wait < 0 {
				wait = 0
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-t.wake:
		case <-timer.C:
		}
	}
}

// Sweep emits a signal for every timer due at or before now and returns the
// next fire time (zero when no timers are armed). Warnings rearm as breach
// timers; breaches retire the entry.
func (t *Tracker) Sweep(ctx context.Context) time.Time {
	due, next := t.collectDue()

	for _, sig := range due {
		if err := t.distributor.Signal(ctx, sig); err != nil {
			t.logger.Error("sla_signal_publish_failed", "Failed to distribute SLA signal", "", map[string]interface{}{
				"order_number": sig.OrderNumber,
				"kind":         string(sig.Kind),
				"severity":     string(sig.Severity),
			}, err)
			continue
		}

		t.logger.Info("sla_signal_emitted", fmt.Sprintf("SLA %s for order %s (%s)", sig.Severity, sig.OrderNumber, sig.Kind), "", map[string]interface{}{
			"order_number": sig.OrderNumber,
			"kind":         string(sig.Kind),
			"severity":     string(sig.Severity),
			"deadline":     sig.Deadline,
		})
	}

	return next
}

func (t *Tracker) collectDue() ([]domain.SLASignal, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.Now()
	var due []domain.SLASignal

	for t.timers.Len() > 0 && !t.timers[0].fireAt.After(now) {
		e := heap.Pop(&t.timers).(*entry)
		if e.cancelled {
			continue
		}

		due = append(due, domain.SLASignal{
			OrderID:     e.orderID,
			OrderNumber: e.orderNumber,
			MerchantID:  e.merchantID,
			Kind:        e.kind,
			Severity:    e.severity,
			Deadline:    e.deadline,
		})

		if e.severity == domain.SeverityWarning {
			// The breach threshold is still ahead; rearm the same entry.
			e.severity = domain.SeverityBreached
			e.fireAt = e.deadline
			heap.Push(&t.timers, e)
		} else {
			delete(t.index[e.orderID], e.kind)
			if len(t.index[e.orderID]) == 0 {
				delete(t.index, e.orderID)
			}
		}
	}

	var next time.Time
	if t.timers.Len() > 0 {
		next = t.timers[0].fireAt
	}
	return due, next
}

func (t *Tracker) warningFor(kind domain.SignalKind) time.Duration {
	if kind == domain.SignalAccept {
		return t.acceptWarning
	}
	return t.readyWarning
}

func (t *Tracker) signalWake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}
