package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"water-delivery/internal/metrics"
)

// SettlementService orchestrates delivery settlement: validate, resolve the
// payment policy, compute the delta, apply it atomically, then announce it.
type SettlementService interface {
	// Deliver settles an order. On success the order is DELIVERED and the client's
	// balance and returnables reflect the delta; on any error nothing changed.
	Deliver(ctx context.Context, companyID int, req SettlementRequest) (*SettlementResult, error)
	// Preview runs the same validation and computation as Deliver without writing.
	Preview(ctx context.Context, companyID int, req SettlementRequest) (*SettlementPreview, error)
	Cancel(ctx context.Context, companyID, orderID int) (*Order, error)
	AdjustClient(ctx context.Context, companyID, clientID int, adj ClientAdjustment) (*Client, error)
}

// EventDispatcher accepts post-commit events without blocking the caller.
type EventDispatcher interface {
	Dispatch(evt OrderDelivered)
}

type settlementService struct {
	store    LedgerStore
	resolver PaymentPolicyResolver
	events   EventDispatcher
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewSettlementService wires the settlement workflow. events, log and m may be nil.
func NewSettlementService(store LedgerStore, resolver PaymentPolicyResolver, events EventDispatcher, log *zap.Logger, m *metrics.Metrics) SettlementService {
	if log == nil {
		log = zap.NewNop()
	}
	return &settlementService{
		store:    store,
		resolver: resolver,
		events:   events,
		log:      log.Named("settlement"),
		metrics:  m,
	}
}

func (s *settlementService) Deliver(ctx context.Context, companyID int, req SettlementRequest) (*SettlementResult, error) {
	start := time.Now()
	result, err := s.deliver(ctx, companyID, req)
	s.metrics.ObserveSettlement(outcomeOf(err), time.Since(start))
	return result, err
}

func (s *settlementService) deliver(ctx context.Context, companyID int, req SettlementRequest) (*SettlementResult, error) {
	order, _, delta, err := s.prepare(ctx, companyID, req)
	if err != nil {
		s.logRejected("delivery rejected", req.OrderID, err)
		return nil, err
	}

	out, err := s.store.Settle(ctx, companyID, order.ID, delta, req)
	if err != nil {
		s.logRejected("settlement failed", order.ID, err)
		return nil, err
	}

	result := &SettlementResult{
		OrderID:                order.ID,
		ClientID:               out.ClientID,
		NewBalance:             out.NewBalance,
		UnreturnedReturnables:  delta.ReturnablesDelta,
		OutstandingReturnables: out.OutstandingReturnables,
		Delta:                  delta,
		DeliveredAt:            out.DeliveredAt,
	}

	s.log.Info("order delivered",
		zap.Int("company_id", companyID),
		zap.Int("order_id", order.ID),
		zap.Int("client_id", out.ClientID),
		zap.String("balance_delta", delta.BalanceDelta.String()),
		zap.Int("returnables_delta", delta.ReturnablesDelta),
		zap.String("new_balance", out.NewBalance.String()),
		zap.Int("outstanding_returnables", out.OutstandingReturnables),
	)

	if s.events != nil {
		s.events.Dispatch(OrderDelivered{
			OrderID:          order.ID,
			ClientID:         out.ClientID,
			CompanyID:        companyID,
			BalanceDelta:     delta.BalanceDelta,
			ReturnablesDelta: delta.ReturnablesDelta,
			DeliveredAt:      out.DeliveredAt,
		})
	}
	return result, nil
}

func (s *settlementService) Preview(ctx context.Context, companyID int, req SettlementRequest) (*SettlementPreview, error) {
	order, pt, delta, err := s.prepare(ctx, companyID, req)
	if err != nil {
		return nil, err
	}
	client, err := s.store.LoadClient(ctx, companyID, order.ClientID)
	if err != nil {
		return nil, err
	}
	return &SettlementPreview{
		OrderID:              order.ID,
		ClientID:             client.ID,
		PaymentType:          *pt,
		TotalReturnableUnits: order.TotalReturnableUnits(),
		Delta:                delta,
		ProjectedBalance:     client.Balance.Add(delta.BalanceDelta),
		ProjectedReturnables: client.OutstandingReturnables + delta.ReturnablesDelta,
		AmountCollected:      EffectiveAmountCollected(pt, req),
		CashVariance:         CashVariance(order, pt, req),
	}, nil
}

// prepare validates req against current state and computes its delta. It never writes.
// The terminal-status check here only short-circuits; the locked re-check in the
// store decides.
func (s *settlementService) prepare(ctx context.Context, companyID int, req SettlementRequest) (*Order, *PaymentType, LedgerDelta, error) {
	var none LedgerDelta
	if companyID <= 0 {
		return nil, nil, none, invalid("company_id", "must be positive")
	}
	if req.OrderID <= 0 {
		return nil, nil, none, invalid("order_id", "must be positive")
	}
	if req.PaymentTypeID <= 0 {
		return nil, nil, none, invalid("payment_type_id", "must be positive")
	}
	if req.ReturnablesReturned < 0 {
		return nil, nil, none, invalid("returnables_returned", "must not be negative")
	}

	order, err := s.store.LoadOrder(ctx, companyID, req.OrderID)
	if err != nil {
		return nil, nil, none, err
	}
	if order.Status.IsTerminal() {
		return nil, nil, none, &ConflictError{OrderID: order.ID, CurrentStatus: order.Status}
	}

	pt, err := s.resolver.Resolve(ctx, companyID, req.PaymentTypeID)
	if err != nil {
		return nil, nil, none, err
	}
	if !pt.AppliesToBalance && req.AmountCollected.IsNegative() {
		return nil, nil, none, invalid("amount_collected", "must not be negative")
	}

	return order, pt, ComputeDelta(order, pt, req), nil
}

func (s *settlementService) Cancel(ctx context.Context, companyID, orderID int) (*Order, error) {
	if companyID <= 0 {
		return nil, invalid("company_id", "must be positive")
	}
	if orderID <= 0 {
		return nil, invalid("order_id", "must be positive")
	}
	order, err := s.store.Cancel(ctx, companyID, orderID)
	if err != nil {
		s.logRejected("cancel failed", orderID, err)
		return nil, err
	}
	s.log.Info("order cancelled", zap.Int("company_id", companyID), zap.Int("order_id", orderID))
	return order, nil
}

func (s *settlementService) AdjustClient(ctx context.Context, companyID, clientID int, adj ClientAdjustment) (*Client, error) {
	if companyID <= 0 {
		return nil, invalid("company_id", "must be positive")
	}
	if clientID <= 0 {
		return nil, invalid("client_id", "must be positive")
	}
	adj.Reason = strings.TrimSpace(adj.Reason)
	if adj.Reason == "" {
		return nil, invalid("reason", "is required")
	}
	if adj.BalanceDelta.IsZero() && adj.ReturnablesDelta == 0 {
		return nil, invalid("adjustment", "balance_delta or returnables_delta must be non-zero")
	}

	c, err := s.store.Adjust(ctx, companyID, clientID, adj)
	if err != nil {
		s.log.Error("client adjustment failed", zap.Int("client_id", clientID), zap.Error(err))
		return nil, err
	}
	s.log.Info("client adjusted",
		zap.Int("company_id", companyID),
		zap.Int("client_id", clientID),
		zap.String("balance_delta", adj.BalanceDelta.String()),
		zap.Int("returnables_delta", adj.ReturnablesDelta),
		zap.String("reason", adj.Reason),
		zap.Int("actor_id", adj.ActorID),
	)
	return c, nil
}

func (s *settlementService) logRejected(msg string, orderID int, err error) {
	var ce *ConflictError
	var pe *PersistenceError
	switch {
	case errors.As(err, &pe):
		s.log.Error(msg, zap.Int("order_id", orderID), zap.Error(err))
	case errors.As(err, &ce):
		s.log.Warn(msg, zap.Int("order_id", orderID), zap.String("current_status", string(ce.CurrentStatus)))
	default:
		s.log.Debug(msg, zap.Int("order_id", orderID), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var ce *ConflictError
	var pe *PersistenceError
	switch {
	case err == nil:
		return metrics.OutcomeDelivered
	case errors.As(err, &ve):
		return metrics.OutcomeValidation
	case errors.As(err, &nf):
		return metrics.OutcomeNotFound
	case errors.As(err, &ce):
		return metrics.OutcomeConflict
	case errors.As(err, &pe):
		return metrics.OutcomePersistence
	default:
		return metrics.OutcomeError
	}
}
