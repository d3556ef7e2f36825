package app

import (
	"github.com/shopspring/decimal"

	"water-delivery/internal/core"
)

// DeliveryResult is returned by DeliverOrder.
type DeliveryResult struct {
	OrderID                int              `json:"order_id"`
	ClientID               int              `json:"client_id"`
	NewBalance             decimal.Decimal  `json:"new_balance"`
	UnreturnedReturnables  int              `json:"unreturned_returnables"`
	OutstandingReturnables int              `json:"outstanding_returnables"`
	Delta                  core.LedgerDelta `json:"delta"`
}

// OrderResult is returned by single-order operations.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// ClientResult is returned by client reads and adjustments.
type ClientResult struct {
	Client *core.Client `json:"client"`
}

// PaymentTypeListResult is returned by ListPaymentTypes.
type PaymentTypeListResult struct {
	PaymentTypes []core.PaymentType `json:"payment_types"`
}
