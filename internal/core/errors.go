package core

import (
	"errors"
	"fmt"
)

// ValidationError means the caller supplied malformed or out-of-range input.
// It is always returned before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError means a referenced entity does not exist in the acting company's scope.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError means the order is already in a terminal state. No state was changed.
type ConflictError struct {
	OrderID       int
	CurrentStatus OrderStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %d cannot transition: status is %s", e.OrderID, e.CurrentStatus)
}

// PersistenceError means the transaction failed and was rolled back. The order's
// status is unchanged, so the whole operation may be retried.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func persistence(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Cause: err}
}

// IsRetryable reports whether err guarantees that nothing was applied, so the
// caller may resubmit the same request.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsAlreadySettled reports whether err is a conflict against a delivered order.
// Such a request must not be retried.
func IsAlreadySettled(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.CurrentStatus == OrderStatusDelivered
}
