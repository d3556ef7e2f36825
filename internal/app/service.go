package app

import (
	"context"

	"water-delivery/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// DeliverOrder settles an order: marks it DELIVERED and applies the balance and
	// returnable deltas to its client in one transaction.
	DeliverOrder(ctx context.Context, req DeliverOrderRequest) (*DeliveryResult, error)

	// PreviewDelivery computes what DeliverOrder would apply without writing anything.
	PreviewDelivery(ctx context.Context, req DeliverOrderRequest) (*core.SettlementPreview, error)

	// CancelOrder transitions a PENDING or IN_PROGRESS order to CANCELLED.
	CancelOrder(ctx context.Context, companyID, orderID int) (*OrderResult, error)

	// GetOrder returns a single order with its items.
	GetOrder(ctx context.Context, companyID, orderID int) (*OrderResult, error)

	// ListOrders returns orders for a company, optionally filtered by status.
	ListOrders(ctx context.Context, companyID int, status *string) (*OrderListResult, error)

	// GetClient returns a client's current balance and outstanding returnables.
	GetClient(ctx context.Context, companyID, clientID int) (*ClientResult, error)

	// AdjustClient applies an administrative correction to a client's balance or
	// returnables, recorded with a reason.
	AdjustClient(ctx context.Context, req AdjustClientRequest) (*ClientResult, error)

	// ListPaymentTypes returns the company's payment types.
	ListPaymentTypes(ctx context.Context, companyID int) (*PaymentTypeListResult, error)

	// ResolveCompany looks up a company by its code.
	ResolveCompany(ctx context.Context, companyCode string) (*core.Company, error)

	// LoadDefaultCompany loads the active company. Uses COMPANY_CODE env var if set;
	// otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)
}
