package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the delivery lifecycle state of an order.
//
//	PENDING | IN_PROGRESS → DELIVERED (terminal)
//	PENDING | IN_PROGRESS → CANCELLED (terminal)
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Client is a delivery customer with a running monetary balance and a count of
// returnable units (jugs, bottles) still owed back to the company.
// Balance is positive when the client owes money, negative when in credit.
type Client struct {
	ID                     int             `json:"id"`
	CompanyID              int             `json:"company_id"`
	Name                   string          `json:"name"`
	Balance                decimal.Decimal `json:"balance"`
	OutstandingReturnables int             `json:"outstanding_returnables"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Order is a delivery order header with its items. Items and Total are fixed by
// order entry; settlement only reads them.
type Order struct {
	ID          int             `json:"id"`
	CompanyID   int             `json:"company_id"`
	ClientID    int             `json:"client_id"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Items       []OrderItem     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// OrderItem is one line of an order. IsReturnable is copied from the product at
// order creation so later product edits cannot change a past order's accounting.
type OrderItem struct {
	ID           int  `json:"id"`
	OrderID      int  `json:"order_id"`
	ProductID    int  `json:"product_id"`
	Quantity     int  `json:"quantity"`
	IsReturnable bool `json:"is_returnable"`
}

// TotalReturnableUnits is the number of returnable units delivered with the order.
func (o *Order) TotalReturnableUnits() int {
	total := 0
	for _, item := range o.Items {
		if item.IsReturnable {
			total += item.Quantity
		}
	}
	return total
}
