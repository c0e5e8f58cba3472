package tracking

import (
	"sync"

	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

type signalKey struct {
	orderID string
	kind    domain.SignalKind
}

// Store is one audience's local view: a scoped order list merged from a
// full snapshot plus the incremental event stream. Events are applied on a
// single sequence per connection; the store itself guards against duplicate
// delivery and out-of-order status changes.
type Store struct {
	mu      sync.Mutex
	scope   domain.Scope
	orders  []*interfaces.OrderView
	index   map[string]*interfaces.OrderView
	signals map[signalKey]*interfaces.SLASignalEvent
	stale   bool
}

func NewStore(scope domain.Scope) *Store {
	return &Store{
		scope:   scope,
		index:   make(map[string]*interfaces.OrderView),
		signals: make(map[signalKey]*interfaces.SLASignalEvent),
	}
}

func (s *Store) Scope() domain.Scope {
	return s.scope
}

// ReplaceSnapshot discards local state wholesale in favour of a fresh
// server snapshot. Signals are dropped too: any still-relevant ones are
// re-emitted by the tracker or re-derived from subsequent events.
func (s *Store) ReplaceSnapshot(views []*interfaces.OrderView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make([]*interfaces.OrderView, 0, len(views))
	s.index = make(map[string]*interfaces.OrderView, len(views))
	s.signals = make(map[signalKey]*interfaces.SLASignalEvent)

	for _, v := range views {
		if _, dup := s.index[v.ID]; dup {
			continue
		}
		s.orders = append(s.orders, v)
		s.index[v.ID] = v
	}

	s.stale = false
}

// Apply merges one event into the view. Returns false when the event was a
// duplicate, stale, or outside the local scope.
func (s *Store) Apply(evt interfaces.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch evt.Type {
	case interfaces.EventOrderCreated:
		return s.applyCreated(evt.Order)
	case interfaces.EventOrderStatusChanged:
		return s.applyStatusChange(evt.StatusChange)
	case interfaces.EventSLASignal:
		return s.applySignal(evt.SLASignal)
	}
	return false
}

// applyCreated inserts at the front of the view. Insertion is an idempotent
// upsert keyed by order id: replayed or duplicated deliveries must not
// create a second entry.
func (s *Store) applyCreated(view *interfaces.OrderView) bool {
	if view == nil {
		return false
	}
	if _, exists := s.index[view.ID]; exists {
		return false
	}

	s.orders = append([]*interfaces.OrderView{view}, s.orders...)
	s.index[view.ID] = view
	return true
}

func (s *Store) applyStatusChange(change *interfaces.StatusChangeEvent) bool {
	if change == nil {
		return false
	}

	// Clears apply even when the order itself is outside the local view.
	if change.SLAClear {
		s.clearSignals(change.OrderID)
	}

	view, ok := s.index[change.OrderID]
	if !ok {
		return false
	}

	// Ordering guard: an event carrying a status earlier in the lifecycle
	// than the local one arrived late and is dropped.
	if change.NewStatus.Rank() <= view.Status.Rank() {
		return false
	}

	view.Status = change.NewStatus

	stamp := change.ChangedAt
	switch change.NewStatus {
	case domain.StatusAccepted:
		view.AcceptedAt = &stamp
	case domain.StatusReady:
		view.ReadyAt = &stamp
	case domain.StatusCancelled:
		view.CancelledAt = &stamp
	}

	return true
}

func (s *Store) applySignal(sig *interfaces.SLASignalEvent) bool {
	if sig == nil {
		return false
	}
	s.signals[signalKey{orderID: sig.OrderID, kind: sig.Kind}] = sig
	return true
}

func (s *Store) clearSignals(orderID string) {
	for key := range s.signals {
		if key.orderID == orderID {
			delete(s.signals, key)
		}
	}
}

// MarkStale flags the view after a disconnect. The last-known state keeps
// rendering; reconnection replaces it via ReplaceSnapshot rather than
// replaying the gap.
func (s *Store) MarkStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
}

func (s *Store) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// Orders returns the current view, newest first.
func (s *Store) Orders() []*interfaces.OrderView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*interfaces.OrderView, len(s.orders))
	copy(out, s.orders)
	return out
}

// Signals returns the outstanding SLA signals.
func (s *Store) Signals() []*interfaces.SLASignalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*interfaces.SLASignalEvent, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, sig)
	}
	return out
}

// Signal returns the outstanding signal for one order and kind, if any.
func (s *Store) Signal(orderID string, kind domain.SignalKind) (*interfaces.SLASignalEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[signalKey{orderID: orderID, kind: kind}]
	return sig, ok
}
