package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// defaultStoreTimeout bounds a single settlement transaction when none is configured.
const defaultStoreTimeout = 10 * time.Second

// TxBeginner starts a database transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LedgerDB is what the ledger needs from the database: transactions plus plain reads.
// *pgxpool.Pool satisfies it.
type LedgerDB interface {
	TxBeginner
	pgxQuerier
	pgxRowQuerier
}

// LedgerStore is the atomic persistence gateway for settlement effects. Every
// mutation of a client's balance or returnable count goes through it.
type LedgerStore interface {
	// LoadOrder reads an order and its items without locking.
	LoadOrder(ctx context.Context, companyID, orderID int) (*Order, error)
	// LoadClient reads a client's current balance and returnables without locking.
	LoadClient(ctx context.Context, companyID, clientID int) (*Client, error)
	// Settle locks the order, re-checks its status, marks it DELIVERED and applies
	// delta to the client, all in one transaction.
	Settle(ctx context.Context, companyID, orderID int, delta LedgerDelta, req SettlementRequest) (*SettlementOutcome, error)
	// Cancel locks the order and moves it from PENDING/IN_PROGRESS to CANCELLED.
	Cancel(ctx context.Context, companyID, orderID int) (*Order, error)
	// Adjust applies an administrative correction to a client and records it.
	Adjust(ctx context.Context, companyID, clientID int, adj ClientAdjustment) (*Client, error)
}

// Ledger is the PostgreSQL LedgerStore.
type Ledger struct {
	db      LedgerDB
	timeout time.Duration
}

// NewLedger constructs the PostgreSQL LedgerStore. timeout bounds each write
// transaction; zero uses defaultStoreTimeout.
func NewLedger(db LedgerDB, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Ledger{db: db, timeout: timeout}
}

// writeContext detaches a write transaction from caller cancellation. Once a
// settlement begins it runs to commit or rollback; a caller that gives up early
// must treat the outcome as unknown and re-read the order.
func (l *Ledger) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
}

func (l *Ledger) Settle(ctx context.Context, companyID, orderID int, delta LedgerDelta, req SettlementRequest) (*SettlementOutcome, error) {
	ctx, cancel := l.writeContext(ctx)
	defer cancel()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, persistence("failed to begin settlement transaction", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the order row for the rest of the transaction.
	clientID, err := lockOrder(ctx, tx, companyID, orderID)
	if err != nil {
		return nil, err
	}

	// 2. Transition to DELIVERED.
	out := SettlementOutcome{ClientID: clientID}
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = 'DELIVERED', delivered_at = NOW()
		WHERE id = $1
		RETURNING delivered_at
	`, orderID).Scan(&out.DeliveredAt)
	if err != nil {
		return nil, persistence(fmt.Sprintf("failed to mark order %d as DELIVERED", orderID), err)
	}

	// 3. Apply the ledger delta to the client.
	err = tx.QueryRow(ctx, `
		UPDATE clients
		SET balance = balance + $1,
		    outstanding_returnables = outstanding_returnables + $2,
		    updated_at = NOW()
		WHERE id = $3 AND company_id = $4
		RETURNING balance, outstanding_returnables
	`, delta.BalanceDelta, delta.ReturnablesDelta, clientID, companyID).Scan(&out.NewBalance, &out.OutstandingReturnables)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, persistence(fmt.Sprintf("failed to apply settlement to client %d", clientID), err)
	}

	// 4. Record what was applied. The collected cash amount is not part of the record.
	_, err = tx.Exec(ctx, `
		INSERT INTO order_settlements (order_id, client_id, payment_type_id, returnables_returned, balance_delta, returnables_delta, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, orderID, clientID, req.PaymentTypeID, req.ReturnablesReturned, delta.BalanceDelta, delta.ReturnablesDelta, out.DeliveredAt)
	if err != nil {
		return nil, persistence(fmt.Sprintf("failed to record settlement of order %d", orderID), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence(fmt.Sprintf("failed to commit settlement of order %d", orderID), err)
	}

	return &out, nil
}

func (l *Ledger) Cancel(ctx context.Context, companyID, orderID int) (*Order, error) {
	wctx, cancel := l.writeContext(ctx)
	defer cancel()

	tx, err := l.db.Begin(wctx)
	if err != nil {
		return nil, persistence("failed to begin cancel transaction", err)
	}
	defer tx.Rollback(wctx)

	if _, err := lockOrder(wctx, tx, companyID, orderID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(wctx,
		"UPDATE orders SET status = 'CANCELLED', cancelled_at = NOW() WHERE id = $1",
		orderID,
	)
	if err != nil {
		return nil, persistence(fmt.Sprintf("failed to cancel order %d", orderID), err)
	}

	// Read back inside the transaction so a committed cancel never reports failure.
	order, err := fetchOrder(wctx, tx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Items, err = fetchOrderItems(wctx, tx, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(wctx); err != nil {
		return nil, persistence(fmt.Sprintf("failed to commit cancel of order %d", orderID), err)
	}
	return order, nil
}

func (l *Ledger) Adjust(ctx context.Context, companyID, clientID int, adj ClientAdjustment) (*Client, error) {
	ctx, cancel := l.writeContext(ctx)
	defer cancel()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, persistence("failed to begin adjustment transaction", err)
	}
	defer tx.Rollback(ctx)

	// The UPDATE takes the client row lock; the audit insert rides the same transaction.
	c := &Client{}
	err = tx.QueryRow(ctx, `
		UPDATE clients
		SET balance = balance + $1,
		    outstanding_returnables = outstanding_returnables + $2,
		    updated_at = NOW()
		WHERE id = $3 AND company_id = $4
		RETURNING id, company_id, name, balance, outstanding_returnables, updated_at
	`, adj.BalanceDelta, adj.ReturnablesDelta, clientID, companyID).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Balance, &c.OutstandingReturnables, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, persistence(fmt.Sprintf("failed to adjust client %d", clientID), err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO client_adjustments (client_id, balance_delta, returnables_delta, reason, actor_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0))
	`, clientID, adj.BalanceDelta, adj.ReturnablesDelta, adj.Reason, adj.ActorID)
	if err != nil {
		return nil, persistence(fmt.Sprintf("failed to record adjustment for client %d", clientID), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence(fmt.Sprintf("failed to commit adjustment for client %d", clientID), err)
	}
	return c, nil
}

func (l *Ledger) LoadOrder(ctx context.Context, companyID, orderID int) (*Order, error) {
	o, err := fetchOrder(ctx, l.db, companyID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := fetchOrderItems(ctx, l.db, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (l *Ledger) LoadClient(ctx context.Context, companyID, clientID int) (*Client, error) {
	c := &Client{}
	err := l.db.QueryRow(ctx, `
		SELECT id, company_id, name, balance, outstanding_returnables, updated_at
		FROM clients
		WHERE id = $1 AND company_id = $2
	`, clientID, companyID).Scan(&c.ID, &c.CompanyID, &c.Name, &c.Balance, &c.OutstandingReturnables, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, persistence(fmt.Sprintf("failed to fetch client %d", clientID), err)
	}
	return c, nil
}

// lockOrder takes the row lock on an order and rejects terminal states.
// It returns the order's client id.
func lockOrder(ctx context.Context, tx pgx.Tx, companyID, orderID int) (int, error) {
	var clientID int
	var status OrderStatus
	err := tx.QueryRow(ctx,
		"SELECT client_id, status FROM orders WHERE id = $1 AND company_id = $2 FOR UPDATE",
		orderID, companyID,
	).Scan(&clientID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &NotFoundError{Entity: "order", ID: orderID}
		}
		return 0, persistence(fmt.Sprintf("failed to lock order %d", orderID), err)
	}
	if status.IsTerminal() {
		return 0, &ConflictError{OrderID: orderID, CurrentStatus: status}
	}
	return clientID, nil
}
