package domain

import (
	"errors"
	"time"
)

// Subscriber represents a named feed session: one connected audience
// applying scoped events to its local view.
type Subscriber struct {
	ID            int
	Name          string
	Scope         Scope
	Status        SubscriberStatus
	LastSeen      time.Time
	EventsApplied int
	CreatedAt     time.Time
}

type SubscriberStatus string

const (
	SubscriberStatusOnline  SubscriberStatus = "online"
	SubscriberStatusOffline SubscriberStatus = "offline"
)

// NewSubscriber creates a new subscriber session
func NewSubscriber(name string, scope Scope) (*Subscriber, error) {
	if name == "" {
		return nil, errors.New("subscriber name is required")
	}

	return &Subscriber{
		Name:      name,
		Scope:     scope,
		Status:    SubscriberStatusOnline,
		LastSeen:  time.Now(),
		CreatedAt: time.Now(),
	}, nil
}

// UpdateHeartbeat updates the subscriber's last seen timestamp
func (s *Subscriber) UpdateHeartbeat() {
	s.LastSeen = time.Now()
	s.Status = SubscriberStatusOnline
}

// SetOffline marks the subscriber as disconnected; its view is stale until
// it reconnects and re-snapshots.
func (s *Subscriber) SetOffline() {
	s.Status = SubscriberStatusOffline
}

// IsOnline checks if the subscriber is considered connected based on its
// last heartbeat.
func (s *Subscriber) IsOnline(heartbeatTimeout time.Duration) bool {
	if s.Status == SubscriberStatusOffline {
		return false
	}
	return time.Since(s.LastSeen) <= heartbeatTimeout
}
