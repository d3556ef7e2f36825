package app

import "github.com/shopspring/decimal"

// DeliverOrderRequest is the input for settling or previewing a delivery.
// AmountCollected is ignored for payment types that apply to the client's balance.
type DeliverOrderRequest struct {
	CompanyID           int
	OrderID             int
	PaymentTypeID       int
	AmountCollected     decimal.Decimal
	ReturnablesReturned int
}

// AdjustClientRequest is the input for an administrative client correction.
type AdjustClientRequest struct {
	CompanyID        int
	ClientID         int
	BalanceDelta     decimal.Decimal
	ReturnablesDelta int
	Reason           string
	ActorID          int
}
