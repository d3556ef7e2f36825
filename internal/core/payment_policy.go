package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentPolicyResolver looks up a company-scoped payment type and reports
// whether it defers payment to the client's balance.
type PaymentPolicyResolver interface {
	Resolve(ctx context.Context, companyID, paymentTypeID int) (*PaymentType, error)
	List(ctx context.Context, companyID int) ([]PaymentType, error)
}

type paymentPolicyResolver struct {
	pool *pgxpool.Pool
}

// NewPaymentPolicyResolver constructs a PaymentPolicyResolver backed by the payment_types table.
func NewPaymentPolicyResolver(pool *pgxpool.Pool) PaymentPolicyResolver {
	return &paymentPolicyResolver{pool: pool}
}

// Resolve returns the payment type, or NotFoundError when it does not exist or
// belongs to another company.
func (r *paymentPolicyResolver) Resolve(ctx context.Context, companyID, paymentTypeID int) (*PaymentType, error) {
	return resolvePaymentType(ctx, r.pool, companyID, paymentTypeID)
}

func (r *paymentPolicyResolver) List(ctx context.Context, companyID int) ([]PaymentType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, name, applies_to_balance
		FROM payment_types
		WHERE company_id = $1
		ORDER BY id
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment types: %w", err)
	}
	defer rows.Close()

	var types []PaymentType
	for rows.Next() {
		pt, err := scanPaymentType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment type: %w", err)
		}
		types = append(types, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment types: %w", err)
	}
	return types, nil
}

func resolvePaymentType(ctx context.Context, q pgxQuerier, companyID, paymentTypeID int) (*PaymentType, error) {
	row := q.QueryRow(ctx, `
		SELECT id, company_id, name, applies_to_balance
		FROM payment_types
		WHERE id = $1 AND company_id = $2
	`, paymentTypeID, companyID)

	pt, err := scanPaymentType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "payment_type", ID: paymentTypeID}
		}
		return nil, persistence(fmt.Sprintf("resolve payment type %d", paymentTypeID), err)
	}
	return pt, nil
}

// scanPaymentType is the single scan site for payment_types rows; the bit-encoded
// applies_to_balance column becomes a bool here and nowhere else.
func scanPaymentType(row pgx.Row) (*PaymentType, error) {
	var pt PaymentType
	var appliesToBalance bitFlag
	if err := row.Scan(&pt.ID, &pt.CompanyID, &pt.Name, &appliesToBalance); err != nil {
		return nil, err
	}
	pt.AppliesToBalance = bool(appliesToBalance)
	return &pt, nil
}
