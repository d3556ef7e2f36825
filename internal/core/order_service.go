package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderService answers read-only questions about orders and clients. Writes go
// through SettlementService.
type OrderService interface {
	GetOrder(ctx context.Context, companyID, orderID int) (*Order, error)
	GetOrders(ctx context.Context, companyID int, status *OrderStatus) ([]Order, error)
	GetClient(ctx context.Context, companyID, clientID int) (*Client, error)
	// ResolveCompanyID looks up the internal company ID from a company code.
	ResolveCompanyID(ctx context.Context, companyCode string) (int, error)
}

type orderService struct {
	pool *pgxpool.Pool
}

func NewOrderService(pool *pgxpool.Pool) OrderService {
	return &orderService{pool: pool}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *orderService) ResolveCompanyID(ctx context.Context, companyCode string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx, "SELECT id FROM companies WHERE company_code = $1", companyCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("company code %s not found", companyCode)
		}
		return 0, fmt.Errorf("failed to resolve company %s: %w", companyCode, err)
	}
	return id, nil
}

func (s *orderService) GetOrder(ctx context.Context, companyID, orderID int) (*Order, error) {
	o, err := fetchOrder(ctx, s.pool, companyID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := fetchOrderItems(ctx, s.pool, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

// GetOrders lists a company's orders, newest first. Items are not loaded.
func (s *orderService) GetOrders(ctx context.Context, companyID int, status *OrderStatus) ([]Order, error) {
	query := `
		SELECT id, company_id, client_id, status, total, created_at, delivered_at, cancelled_at
		FROM orders
		WHERE company_id = $1
	`
	args := []any{companyID}

	if status != nil {
		query += " AND status = $2"
		args = append(args, string(*status))
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CompanyID, &o.ClientID, &o.Status, &o.Total,
			&o.CreatedAt, &o.DeliveredAt, &o.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) GetClient(ctx context.Context, companyID, clientID int) (*Client, error) {
	return NewLedger(s.pool, 0).LoadClient(ctx, companyID, clientID)
}

func fetchOrder(ctx context.Context, q pgxQuerier, companyID, orderID int) (*Order, error) {
	var o Order
	err := q.QueryRow(ctx, `
		SELECT id, company_id, client_id, status, total, created_at, delivered_at, cancelled_at
		FROM orders
		WHERE id = $1 AND company_id = $2
	`, orderID, companyID).Scan(
		&o.ID, &o.CompanyID, &o.ClientID, &o.Status, &o.Total,
		&o.CreatedAt, &o.DeliveredAt, &o.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, persistence(fmt.Sprintf("failed to fetch order %d", orderID), err)
	}
	return &o, nil
}

func fetchOrderItems(ctx context.Context, q pgxRowQuerier, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, is_returnable
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, persistence("failed to query order items", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.IsReturnable); err != nil {
			return nil, persistence("failed to scan order item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("error iterating order items", err)
	}
	return items, nil
}
