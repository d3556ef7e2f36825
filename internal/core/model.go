package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID          int    `json:"id"`
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
}

// PaymentType is a company-scoped way of paying for an order. When
// AppliesToBalance is true, settling defers payment by adding the order total to
// the client's running account instead of collecting cash at the door.
type PaymentType struct {
	ID               int    `json:"id"`
	CompanyID        int    `json:"company_id"`
	Name             string `json:"name"`
	AppliesToBalance bool   `json:"applies_to_balance"`
}

// SettlementRequest is the caller's input for delivering an order.
// ReturnablesReturned may exceed the order's returnable units (advance return).
type SettlementRequest struct {
	OrderID             int             `json:"order_id"`
	PaymentTypeID       int             `json:"payment_type_id"`
	AmountCollected     decimal.Decimal `json:"amount_collected"`
	ReturnablesReturned int             `json:"returnables_returned"`
}

// LedgerDelta is the effect a settlement applies to the client.
type LedgerDelta struct {
	BalanceDelta     decimal.Decimal `json:"balance_delta"`
	ReturnablesDelta int             `json:"returnables_delta"`
}

// SettlementResult is returned to the caller after a committed settlement.
// UnreturnedReturnables is this delivery's returnable delta; negative means an
// advance return. OutstandingReturnables is the client's count after commit.
type SettlementResult struct {
	OrderID                int             `json:"order_id"`
	ClientID               int             `json:"client_id"`
	NewBalance             decimal.Decimal `json:"new_balance"`
	UnreturnedReturnables  int             `json:"unreturned_returnables"`
	OutstandingReturnables int             `json:"outstanding_returnables"`
	Delta                  LedgerDelta     `json:"delta"`
	DeliveredAt            time.Time       `json:"delivered_at"`
}

// SettlementOutcome is the post-commit state reported by the LedgerStore.
type SettlementOutcome struct {
	ClientID               int
	NewBalance             decimal.Decimal
	OutstandingReturnables int
	DeliveredAt            time.Time
}

// SettlementPreview is a dry run of a settlement. Nothing in it is persisted;
// CashVariance in particular is informational only.
type SettlementPreview struct {
	OrderID              int             `json:"order_id"`
	ClientID             int             `json:"client_id"`
	PaymentType          PaymentType     `json:"payment_type"`
	TotalReturnableUnits int             `json:"total_returnable_units"`
	Delta                LedgerDelta     `json:"delta"`
	ProjectedBalance     decimal.Decimal `json:"projected_balance"`
	ProjectedReturnables int             `json:"projected_returnables"`
	AmountCollected      decimal.Decimal `json:"amount_collected"`
	CashVariance         decimal.Decimal `json:"cash_variance"`
}

// ClientAdjustment is an explicit administrative correction of a client's
// balance and/or returnable count.
type ClientAdjustment struct {
	BalanceDelta     decimal.Decimal `json:"balance_delta"`
	ReturnablesDelta int             `json:"returnables_delta"`
	Reason           string          `json:"reason"`
	ActorID          int             `json:"actor_id"`
}

// OrderDelivered is published after a settlement commits.
type OrderDelivered struct {
	OrderID          int             `json:"order_id"`
	ClientID         int             `json:"client_id"`
	CompanyID        int             `json:"company_id"`
	BalanceDelta     decimal.Decimal `json:"balance_delta"`
	ReturnablesDelta int             `json:"returnables_delta"`
	DeliveredAt      time.Time       `json:"delivered_at"`
}
