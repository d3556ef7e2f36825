package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"water-delivery/internal/core"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is satisfied by *pgxpool.Pool.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type appService struct {
	db           rowQuerier
	settlement   core.SettlementService
	orders       core.OrderService
	paymentTypes core.PaymentPolicyResolver
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	db rowQuerier,
	settlement core.SettlementService,
	orders core.OrderService,
	paymentTypes core.PaymentPolicyResolver,
) ApplicationService {
	return &appService{
		db:           db,
		settlement:   settlement,
		orders:       orders,
		paymentTypes: paymentTypes,
	}
}

func (s *appService) DeliverOrder(ctx context.Context, req DeliverOrderRequest) (*DeliveryResult, error) {
	res, err := s.settlement.Deliver(ctx, req.CompanyID, settlementRequest(req))
	if err != nil {
		return nil, err
	}
	return &DeliveryResult{
		OrderID:                res.OrderID,
		ClientID:               res.ClientID,
		NewBalance:             res.NewBalance,
		UnreturnedReturnables:  res.UnreturnedReturnables,
		OutstandingReturnables: res.OutstandingReturnables,
		Delta:                  res.Delta,
	}, nil
}

func (s *appService) PreviewDelivery(ctx context.Context, req DeliverOrderRequest) (*core.SettlementPreview, error) {
	return s.settlement.Preview(ctx, req.CompanyID, settlementRequest(req))
}

func (s *appService) CancelOrder(ctx context.Context, companyID, orderID int) (*OrderResult, error) {
	order, err := s.settlement.Cancel(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) GetOrder(ctx context.Context, companyID, orderID int) (*OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, companyID, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, companyID int, status *string) (*OrderListResult, error) {
	var filter *core.OrderStatus
	if status != nil && *status != "" {
		st := core.OrderStatus(*status)
		if !st.Valid() {
			return nil, &core.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *status)}
		}
		filter = &st
	}
	orders, err := s.orders.GetOrders(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []core.Order{}
	}
	return &OrderListResult{Orders: orders}, nil
}

func (s *appService) GetClient(ctx context.Context, companyID, clientID int) (*ClientResult, error) {
	c, err := s.orders.GetClient(ctx, companyID, clientID)
	if err != nil {
		return nil, err
	}
	return &ClientResult{Client: c}, nil
}

func (s *appService) AdjustClient(ctx context.Context, req AdjustClientRequest) (*ClientResult, error) {
	c, err := s.settlement.AdjustClient(ctx, req.CompanyID, req.ClientID, core.ClientAdjustment{
		BalanceDelta:     req.BalanceDelta,
		ReturnablesDelta: req.ReturnablesDelta,
		Reason:           req.Reason,
		ActorID:          req.ActorID,
	})
	if err != nil {
		return nil, err
	}
	return &ClientResult{Client: c}, nil
}

func (s *appService) ListPaymentTypes(ctx context.Context, companyID int) (*PaymentTypeListResult, error) {
	types, err := s.paymentTypes.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []core.PaymentType{}
	}
	return &PaymentTypeListResult{PaymentTypes: types}, nil
}

func (s *appService) ResolveCompany(ctx context.Context, companyCode string) (*core.Company, error) {
	c := &core.Company{}
	err := s.db.QueryRow(ctx,
		"SELECT id, company_code, name FROM companies WHERE company_code = $1", companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company %s not found", companyCode)
		}
		return nil, fmt.Errorf("failed to resolve company %s: %w", companyCode, err)
	}
	return c, nil
}

// LoadDefaultCompany loads the active company, using COMPANY_CODE env var if set.
func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	if code := os.Getenv("COMPANY_CODE"); code != "" {
		return s.ResolveCompany(ctx, code)
	}

	var count int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple companies found; set COMPANY_CODE env var (e.g. COMPANY_CODE=AGUA)")
	}

	c := &core.Company{}
	if err := s.db.QueryRow(ctx,
		"SELECT id, company_code, name FROM companies LIMIT 1",
	).Scan(&c.ID, &c.CompanyCode, &c.Name); err != nil {
		return nil, fmt.Errorf("no default company found, have migrations run?: %w", err)
	}
	return c, nil
}

func settlementRequest(req DeliverOrderRequest) core.SettlementRequest {
	return core.SettlementRequest{
		OrderID:             req.OrderID,
		PaymentTypeID:       req.PaymentTypeID,
		AmountCollected:     req.AmountCollected,
		ReturnablesReturned: req.ReturnablesReturned,
	}
}
