package core

import "github.com/shopspring/decimal"

// ComputeDelta is the authoritative settlement computation. It is pure: the
// same order, payment type and request always yield the same delta.
//
// The returnable delta is not clamped. Returning more units than were
// delivered produces a negative delta (advance return) and is applied as is.
// Balance-deferring payment types add the order total to the client's balance
// and ignore any cash amount; immediate payment types leave the balance alone.
func ComputeDelta(order *Order, paymentType *PaymentType, req SettlementRequest) LedgerDelta {
	unreturned := order.TotalReturnableUnits() - req.ReturnablesReturned

	balanceDelta := decimal.Zero
	if paymentType.AppliesToBalance {
		balanceDelta = order.Total
	}

	return LedgerDelta{
		BalanceDelta:     balanceDelta,
		ReturnablesDelta: unreturned,
	}
}

// EffectiveAmountCollected is the cash amount that counts for a settlement.
// Running-account settlements never collect cash at delivery time.
func EffectiveAmountCollected(paymentType *PaymentType, req SettlementRequest) decimal.Decimal {
	if paymentType.AppliesToBalance {
		return decimal.Zero
	}
	return req.AmountCollected
}

// CashVariance is amount collected minus order total for immediate payment
// types: positive is change owed back, negative is a shortfall. It is shown to
// the driver and never persisted.
func CashVariance(order *Order, paymentType *PaymentType, req SettlementRequest) decimal.Decimal {
	if paymentType.AppliesToBalance {
		return decimal.Zero
	}
	return req.AmountCollected.Sub(order.Total)
}
