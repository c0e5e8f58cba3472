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

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, number, status, merchant_id, customer_id, type, delivery_address,
	       total_amount, created_at, accepted_at, ready_at, cancelled_at,
	       cancel_reason, cancelled_by, accept_deadline, ready_deadline, updated_at, version`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (id, number, status, merchant_id, customer_id, type, delivery_address,
		                    total_amount, created_at, accept_deadline, ready_deadline, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.Exec(ctx, query,
		order.ID, order.Number, order.Status, order.MerchantID, order.CustomerID,
		order.Type, order.DeliveryAddress, order.TotalAmount, order.CreatedAt,
		order.AcceptDeadline, order.ReadyDeadline, order.UpdatedAt, order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, itemQuery, order.ID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	logQuery := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, logQuery, order.ID, order.Status, order.CustomerID, order.CreatedAt); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.findOne(ctx, "id", id)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.findOne(ctx, "number", number)
}

func (r *orderRepository) findOne(ctx context.Context, column, value string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s = $1`, orderColumns, column)

	order, err := scanOrder(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, value)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// Update applies the order only if the caller holds the version it read.
// A lost race bumps the stored version first and the losing update matches
// zero rows, surfaced as domain.ErrConflict.
func (r *orderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, accepted_at = $2, ready_at = $3, cancelled_at = $4,
		    cancel_reason = $5, cancelled_by = $6, updated_at = $7, version = version + 1
		WHERE id = $8 AND version = $9
	`

	tag, err := r.db.Exec(ctx, query,
		order.Status, order.AcceptedAt, order.ReadyAt, order.CancelledAt,
		order.CancelReason, order.CancelledBy, order.UpdatedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s version %d", domain.ErrConflict, order.Number, order.Version)
	}

	order.Version++
	return nil
}

func (r *orderRepository) ListByScope(ctx context.Context, scope domain.Scope) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders`, orderColumns)
	var args []any

	switch scope.Kind {
	case domain.ScopeKindMerchant:
		query += ` WHERE merchant_id = $1`
		args = append(args, scope.ID)
	case domain.ScopeKindCustomer:
		query += ` WHERE customer_id = $1`
		args = append(args, scope.ID)
	}

	query += ` ORDER BY created_at DESC`

	return r.list(ctx, query, args...)
}

func (r *orderRepository) ListOpen(ctx context.Context) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE status NOT IN ($1, $2) ORDER BY created_at`, orderColumns)
	return r.list(ctx, query, domain.StatusCompleted, domain.StatusCancelled)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `SELECT menu_item_id, name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var (
		order       domain.Order
		status      string
		orderType   string
		cancelledBy *string
	)

	err := row.Scan(
		&order.ID, &order.Number, &status, &order.MerchantID, &order.CustomerID,
		&orderType, &order.DeliveryAddress, &order.TotalAmount, &order.CreatedAt,
		&order.AcceptedAt, &order.ReadyAt, &order.CancelledAt,
		&order.CancelReason, &cancelledBy, &order.AcceptDeadline, &order.ReadyDeadline,
		&order.UpdatedAt, &order.Version,
	)
	if err != nil {
		return nil, err
	}

	order.Status = domain.Status(status)
	order.Type = domain.OrderType(orderType)
	if cancelledBy != nil {
		actor := domain.CancelActor(*cancelledBy)
		order.CancelledBy = &actor
	}

	return &order, nil
}

// GenerateOrderNumber produces a human-facing number ORD-YYYYMMDD-NNN from
// a database sequence; uniqueness is the sequence's problem.
func (r *orderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%03d", time.Now().Format("20060102"), seq), nil
}

func (r *orderRepository) LogStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) error {
	query := `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, orderID, status, changedBy, time.Now()); err != nil {
		return fmt.Errorf("failed to log status: %w", err)
	}
	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	query := `
		SELECT id, order_id, status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var (
			entry  domain.StatusLog
			status string
		)
		if err := rows.Scan(&entry.ID, &entry.OrderID, &status, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status log: %w", err)
		}
		entry.Status = domain.Status(status)
		logs = append(logs, &entry)
	}

	return logs, nil
}
