package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

type subscriberRepository struct {
	db DB
}

func NewSubscriberRepository(db DB) interfaces.SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) Register(ctx context.Context, sub *domain.Subscriber) error {
	query := `
		INSERT INTO subscribers (name, scope_kind, scope_id, status, last_seen, events_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		sub.Name, string(sub.Scope.Kind), sub.Scope.ID, string(sub.Status),
		sub.LastSeen, sub.EventsApplied, sub.CreatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return fmt.Errorf("failed to register subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) FindByName(ctx context.Context, name string) (*domain.Subscriber, error) {
	query := `
		SELECT id, name, scope_kind, scope_id, status, last_seen, events_applied, created_at
		FROM subscribers
		WHERE name = $1
	`

	var (
		sub       domain.Subscriber
		scopeKind string
		scopeID   string
		status    string
	)
	err := r.db.QueryRow(ctx, query, name).Scan(
		&sub.ID, &sub.Name, &scopeKind, &scopeID, &status,
		&sub.LastSeen, &sub.EventsApplied, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscriber %s not found: %w", name, err)
		}
		return nil, fmt.Errorf("failed to load subscriber: %w", err)
	}

	sub.Scope = domain.Scope{Kind: domain.ScopeKind(scopeKind), ID: scopeID}
	sub.Status = domain.SubscriberStatus(status)

	return &sub, nil
}

func (r *subscriberRepository) Update(ctx context.Context, sub *domain.Subscriber) error {
	query := `
		UPDATE subscribers
		SET scope_kind = $1, scope_id = $2, status = $3, last_seen = $4, events_applied = $5
		WHERE name = $6
	`
	_, err := r.db.Exec(ctx, query,
		string(sub.Scope.Kind), sub.Scope.ID, string(sub.Status),
		sub.LastSeen, sub.EventsApplied, sub.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) UpdateHeartbeat(ctx context.Context, name string) error {
	query := `UPDATE subscribers SET last_seen = $1, status = 'online' WHERE name = $2`
	if _, err := r.db.Exec(ctx, query, time.Now(), name); err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

func (r *subscriberRepository) IncrementEventsApplied(ctx context.Context, name string) error {
	query := `UPDATE subscribers SET events_applied = events_applied + 1 WHERE name = $1`
	if _, err := r.db.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("failed to increment events applied: %w", err)
	}
	return nil
}

func (r *subscriberRepository) ListAll(ctx context.Context) ([]*domain.Subscriber, error) {
	query := `
		SELECT id, name, scope_kind, scope_id, status, last_seen, events_applied, created_at
		FROM subscribers
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Subscriber
	for rows.Next() {
		var (
			sub       domain.Subscriber
			scopeKind string
			scopeID   string
			status    string
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &scopeKind, &scopeID, &status, &sub.LastSeen, &sub.EventsApplied, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		sub.Scope = domain.Scope{Kind: domain.ScopeKind(scopeKind), ID: scopeID}
		sub.Status = domain.SubscriberStatus(status)
		subs = append(subs, &sub)
	}

	return subs, nil
}
