package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"water-delivery/internal/core"
	"water-delivery/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCompany = 1

// memStore is an in-memory LedgerStore with the same lock-and-recheck semantics
// as the PostgreSQL one.
type memStore struct {
	mu          sync.Mutex
	orders      map[int]*core.Order
	clients     map[int]*core.Client
	settled     []core.LedgerDelta
	adjustments []core.ClientAdjustment
	settleErr   error
}

func newMemStore() *memStore {
	return &memStore{orders: map[int]*core.Order{}, clients: map[int]*core.Client{}}
}

func (m *memStore) addClient(id int, balance string, returnables int) {
	m.clients[id] = &core.Client{ID: id, CompanyID: testCompany, Balance: decimal.RequireFromString(balance), OutstandingReturnables: returnables}
}

func (m *memStore) addOrder(id, clientID int, total string, items ...core.OrderItem) {
	m.orders[id] = &core.Order{ID: id, CompanyID: testCompany, ClientID: clientID, Status: core.OrderStatusPending, Total: decimal.RequireFromString(total), Items: items}
}

func (m *memStore) LoadOrder(_ context.Context, companyID, orderID int) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.CompanyID != companyID {
		return nil, &core.NotFoundError{Entity: "order", ID: orderID}
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) LoadClient(_ context.Context, companyID, clientID int) (*core.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok || c.CompanyID != companyID {
		return nil, &core.NotFoundError{Entity: "client", ID: clientID}
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Settle(_ context.Context, companyID, orderID int, delta core.LedgerDelta, _ core.SettlementRequest) (*core.SettlementOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settleErr != nil {
		return nil, m.settleErr
	}
	o, ok := m.orders[orderID]
	if !ok || o.CompanyID != companyID {
		return nil, &core.NotFoundError{Entity: "order", ID: orderID}
	}
	if o.Status.IsTerminal() {
		return nil, &core.ConflictError{OrderID: orderID, CurrentStatus: o.Status}
	}
	now := time.Now()
	o.Status = core.OrderStatusDelivered
	o.DeliveredAt = &now
	c := m.clients[o.ClientID]
	c.Balance = c.Balance.Add(delta.BalanceDelta)
	c.OutstandingReturnables += delta.ReturnablesDelta
	m.settled = append(m.settled, delta)
	return &core.SettlementOutcome{ClientID: c.ID, NewBalance: c.Balance, OutstandingReturnables: c.OutstandingReturnables, DeliveredAt: now}, nil
}

func (m *memStore) Cancel(_ context.Context, companyID, orderID int) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.CompanyID != companyID {
		return nil, &core.NotFoundError{Entity: "order", ID: orderID}
	}
	if o.Status.IsTerminal() {
		return nil, &core.ConflictError{OrderID: orderID, CurrentStatus: o.Status}
	}
	now := time.Now()
	o.Status = core.OrderStatusCancelled
	o.CancelledAt = &now
	cp := *o
	return &cp, nil
}

func (m *memStore) Adjust(_ context.Context, companyID, clientID int, adj core.ClientAdjustment) (*core.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[clientID]
	if !ok || c.CompanyID != companyID {
		return nil, &core.NotFoundError{Entity: "client", ID: clientID}
	}
	c.Balance = c.Balance.Add(adj.BalanceDelta)
	c.OutstandingReturnables += adj.ReturnablesDelta
	m.adjustments = append(m.adjustments, adj)
	cp := *c
	return &cp, nil
}

type staticResolver map[int]*core.PaymentType

func (r staticResolver) Resolve(_ context.Context, _, paymentTypeID int) (*core.PaymentType, error) {
	pt, ok := r[paymentTypeID]
	if !ok {
		return nil, &core.NotFoundError{Entity: "payment_type", ID: paymentTypeID}
	}
	return pt, nil
}

func (r staticResolver) List(context.Context, int) ([]core.PaymentType, error) {
	var out []core.PaymentType
	for _, pt := range r {
		out = append(out, *pt)
	}
	return out, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []core.OrderDelivered
}

func (d *recordingDispatcher) Dispatch(evt core.OrderDelivered) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}

type serviceFixture struct {
	store   *memStore
	events  *recordingDispatcher
	metrics *metrics.Metrics
	svc     core.SettlementService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{store: newMemStore(), events: &recordingDispatcher{}, metrics: metrics.New()}
	resolver := staticResolver{cashPayment.ID: cashPayment, accountPayment.ID: accountPayment}
	f.svc = core.NewSettlementService(f.store, resolver, f.events, nil, f.metrics)
	return f
}

func TestDeliver_ScenarioC(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "1000", 5)
	f.store.addOrder(100, 7, "4100", jug(3), sachet(4))

	res, err := f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{
		OrderID: 100, PaymentTypeID: accountPayment.ID, ReturnablesReturned: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "5100", res.NewBalance.String())
	assert.Equal(t, 1, res.UnreturnedReturnables)
	assert.Equal(t, 6, res.OutstandingReturnables)
	assert.Equal(t, 7, res.ClientID)
	assert.Equal(t, core.OrderStatusDelivered, f.store.orders[100].Status)

	require.Len(t, f.events.events, 1)
	evt := f.events.events[0]
	assert.Equal(t, 100, evt.OrderID)
	assert.Equal(t, 7, evt.ClientID)
	assert.Equal(t, "4100", evt.BalanceDelta.String())
	assert.Equal(t, 1, evt.ReturnablesDelta)
}

func TestDeliver_CashLeavesBalanceUntouched(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "250.50", 0)
	f.store.addOrder(101, 7, "1800", jug(1), jug(1))

	res, err := f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{
		OrderID: 101, PaymentTypeID: cashPayment.ID, AmountCollected: decimal.NewFromInt(1500), ReturnablesReturned: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "250.5", res.NewBalance.String())
	assert.Equal(t, 0, res.UnreturnedReturnables)
	assert.Equal(t, 0, res.OutstandingReturnables)
}

func TestDeliver_SecondAttemptConflicts(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(102, 7, "2500", jug(2))
	req := core.SettlementRequest{OrderID: 102, PaymentTypeID: accountPayment.ID, ReturnablesReturned: 2}

	_, err := f.svc.Deliver(context.Background(), testCompany, req)
	require.NoError(t, err)

	_, err = f.svc.Deliver(context.Background(), testCompany, req)
	var ce *core.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, core.OrderStatusDelivered, ce.CurrentStatus)
	assert.True(t, core.IsAlreadySettled(err))
	assert.False(t, core.IsRetryable(err))

	assert.Equal(t, "2500", f.store.clients[7].Balance.String())
	assert.Len(t, f.store.settled, 1)
	assert.Len(t, f.events.events, 1)
	assert.Equal(t, 1.0, f.metricsCounter(metrics.OutcomeConflict))
}

func TestDeliver_CancelledOrderConflicts(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(103, 7, "900", jug(1))

	_, err := f.svc.Cancel(context.Background(), testCompany, 103)
	require.NoError(t, err)

	_, err = f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{OrderID: 103, PaymentTypeID: cashPayment.ID})
	var ce *core.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, core.OrderStatusCancelled, ce.CurrentStatus)
	assert.False(t, core.IsAlreadySettled(err))
	assert.Empty(t, f.store.settled)
}

func TestDeliver_Validation(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(104, 7, "900", jug(1))

	tests := []struct {
		name      string
		companyID int
		req       core.SettlementRequest
		wantField string
	}{
		{"missing company", 0, core.SettlementRequest{OrderID: 104, PaymentTypeID: 1}, "company_id"},
		{"missing order", testCompany, core.SettlementRequest{PaymentTypeID: 1}, "order_id"},
		{"missing payment type", testCompany, core.SettlementRequest{OrderID: 104}, "payment_type_id"},
		{"negative returnables", testCompany, core.SettlementRequest{OrderID: 104, PaymentTypeID: 1, ReturnablesReturned: -1}, "returnables_returned"},
		{"negative cash", testCompany, core.SettlementRequest{OrderID: 104, PaymentTypeID: cashPayment.ID, AmountCollected: decimal.NewFromInt(-5)}, "amount_collected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Deliver(context.Background(), tt.companyID, tt.req)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	assert.Equal(t, core.OrderStatusPending, f.store.orders[104].Status)
	assert.Empty(t, f.events.events)
}

func TestDeliver_NegativeAmountIgnoredForDeferredPayment(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(105, 7, "300")

	res, err := f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{
		OrderID: 105, PaymentTypeID: accountPayment.ID, AmountCollected: decimal.NewFromInt(-1),
	})
	require.NoError(t, err)
	assert.Equal(t, "300", res.NewBalance.String())
}

func TestDeliver_NotFound(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(106, 7, "300")

	_, err := f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{OrderID: 999, PaymentTypeID: cashPayment.ID})
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "order", nf.Entity)

	_, err = f.svc.Deliver(context.Background(), 2, core.SettlementRequest{OrderID: 106, PaymentTypeID: cashPayment.ID})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "order", nf.Entity)

	_, err = f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{OrderID: 106, PaymentTypeID: 42})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "payment_type", nf.Entity)
	assert.Equal(t, 42, nf.ID)
}

func TestDeliver_PersistenceFailureIsRetryable(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(107, 7, "300")
	f.store.settleErr = &core.PersistenceError{Op: "commit", Cause: errors.New("connection reset")}

	_, err := f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{OrderID: 107, PaymentTypeID: accountPayment.ID})
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
	assert.Empty(t, f.events.events)
	assert.Equal(t, core.OrderStatusPending, f.store.orders[107].Status)
}

func TestPreview_DoesNotWrite(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "100", 2)
	f.store.addOrder(108, 7, "2000", jug(2), sachet(1))

	p, err := f.svc.Preview(context.Background(), testCompany, core.SettlementRequest{
		OrderID: 108, PaymentTypeID: cashPayment.ID, AmountCollected: decimal.NewFromInt(2200), ReturnablesReturned: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, p.TotalReturnableUnits)
	assert.True(t, p.Delta.BalanceDelta.IsZero())
	assert.Equal(t, 1, p.Delta.ReturnablesDelta)
	assert.Equal(t, "100", p.ProjectedBalance.String())
	assert.Equal(t, 3, p.ProjectedReturnables)
	assert.Equal(t, "200", p.CashVariance.String())
	assert.Equal(t, "2200", p.AmountCollected.String())

	assert.Equal(t, core.OrderStatusPending, f.store.orders[108].Status)
	assert.Equal(t, 2, f.store.clients[7].OutstandingReturnables)
	assert.Empty(t, f.store.settled)
	assert.Empty(t, f.events.events)
}

func TestPreview_DeferredPayment(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "100", 0)
	f.store.addOrder(109, 7, "2500", jug(2))

	p, err := f.svc.Preview(context.Background(), testCompany, core.SettlementRequest{
		OrderID: 109, PaymentTypeID: accountPayment.ID, AmountCollected: decimal.NewFromInt(999), ReturnablesReturned: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "2600", p.ProjectedBalance.String())
	assert.True(t, p.AmountCollected.IsZero())
	assert.True(t, p.CashVariance.IsZero())
}

func TestCancel(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(110, 7, "300")

	o, err := f.svc.Cancel(context.Background(), testCompany, 110)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusCancelled, o.Status)
	assert.NotNil(t, o.CancelledAt)

	_, err = f.svc.Cancel(context.Background(), testCompany, 110)
	var ce *core.ConflictError
	require.ErrorAs(t, err, &ce)

	_, err = f.svc.Cancel(context.Background(), testCompany, 0)
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "order_id", ve.Field)
}

func TestAdjustClient(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "500", 3)

	c, err := f.svc.AdjustClient(context.Background(), testCompany, 7, core.ClientAdjustment{
		BalanceDelta: decimal.NewFromInt(-200), ReturnablesDelta: -1, Reason: "  jug found in depot  ", ActorID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "300", c.Balance.String())
	assert.Equal(t, 2, c.OutstandingReturnables)
	require.Len(t, f.store.adjustments, 1)
	assert.Equal(t, "jug found in depot", f.store.adjustments[0].Reason)
}

func TestAdjustClient_Validation(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "500", 3)

	_, err := f.svc.AdjustClient(context.Background(), testCompany, 7, core.ClientAdjustment{BalanceDelta: decimal.NewFromInt(1)})
	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reason", ve.Field)

	_, err = f.svc.AdjustClient(context.Background(), testCompany, 7, core.ClientAdjustment{Reason: "noop"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "adjustment", ve.Field)

	_, err = f.svc.AdjustClient(context.Background(), testCompany, 99, core.ClientAdjustment{ReturnablesDelta: 1, Reason: "typo"})
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, f.store.adjustments)
}

func TestDeliver_ConcurrentAttemptsSettleOnce(t *testing.T) {
	f := newServiceFixture()
	f.store.addClient(7, "0", 0)
	f.store.addOrder(111, 7, "1000", jug(1))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Deliver(context.Background(), testCompany, core.SettlementRequest{OrderID: 111, PaymentTypeID: accountPayment.ID})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var ce *core.ConflictError
		assert.ErrorAs(t, err, &ce)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, "1000", f.store.clients[7].Balance.String())
	assert.Equal(t, 1, f.store.clients[7].OutstandingReturnables)
}

func (f *serviceFixture) metricsCounter(outcome string) float64 {
	mfs, err := f.metrics.Registry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range mfs {
		if mf.GetName() != "delivery_settlements_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
