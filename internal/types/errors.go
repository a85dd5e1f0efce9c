package types

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned by indicators when the history window
// is shorter than the requested period. Strategies treat it as "no
// intent", never as a failure.
var ErrInsufficientData = errors.New("insufficient data")

// ErrUnknownReconciliation marks a status event for a broker order id
// this process does not track. Logged by the coordinator, not
// propagated.
var ErrUnknownReconciliation = errors.New("unknown broker order id")

// RiskRejectedError is returned when the risk gate declines an order.
// The order is never submitted.
type RiskRejectedError struct {
	Reason string
}

func (e *RiskRejectedError) Error() string {
	return "risk rejected: " + e.Reason
}

// SubmissionError wraps a broker adapter failure or timeout during
// order placement. The order is persisted as REJECTED.
type SubmissionError struct {
	OrderID string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order %s submission failed: %v", e.OrderID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// CancellationError is returned when a cancel is attempted on a
// non-OPEN order or the broker refuses the cancellation.
type CancellationError struct {
	OrderID string
	Status  OrderStatus
	Err     error
}

func (e *CancellationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cancel order %s failed: %v", e.OrderID, e.Err)
	}
	return fmt.Sprintf("cancel order %s not allowed in status %s", e.OrderID, e.Status)
}

func (e *CancellationError) Unwrap() error { return e.Err }
