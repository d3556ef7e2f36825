package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid returnables_returned: must not be negative",
		invalid("returnables_returned", "must not be negative").Error())
	assert.Equal(t, "payment_type 9 not found", (&NotFoundError{Entity: "payment_type", ID: 9}).Error())
	assert.Equal(t, "order 4 cannot transition: status is DELIVERED",
		(&ConflictError{OrderID: 4, CurrentStatus: OrderStatusDelivered}).Error())
}

func TestPersistenceDoesNotDoubleWrap(t *testing.T) {
	cause := errors.New("connection refused")
	inner := persistence("failed to commit", cause)
	outer := persistence("failed to settle", fmt.Errorf("ledger: %w", inner))

	var pe *PersistenceError
	assert.True(t, errors.As(outer, &pe))
	assert.Equal(t, "failed to commit", pe.Op)
	assert.True(t, errors.Is(outer, cause))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(persistence("begin", errors.New("pool closed"))))
	assert.False(t, IsRetryable(&ConflictError{OrderID: 1, CurrentStatus: OrderStatusDelivered}))
	assert.False(t, IsRetryable(invalid("order_id", "must be positive")))
	assert.False(t, IsRetryable(nil))
}

func TestIsAlreadySettled(t *testing.T) {
	assert.True(t, IsAlreadySettled(fmt.Errorf("deliver: %w", &ConflictError{OrderID: 1, CurrentStatus: OrderStatusDelivered})))
	assert.False(t, IsAlreadySettled(&ConflictError{OrderID: 1, CurrentStatus: OrderStatusCancelled}))
	assert.False(t, IsAlreadySettled(&NotFoundError{Entity: "order", ID: 1}))
}
