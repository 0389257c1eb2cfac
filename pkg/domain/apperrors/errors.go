package apperrors

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrPlanNotFound indicates the referenced schedule plan no longer exists
	ErrPlanNotFound = errors.New("plancore: schedule plan not found")

	// ErrOrderNotFound indicates the referenced order no longer exists
	ErrOrderNotFound = errors.New("plancore: order not found")

	// ErrShipmentNotFound indicates the referenced shipment no longer exists
	ErrShipmentNotFound = errors.New("plancore: shipment not found")

	// ErrEventNotFound indicates the referenced schedule event no longer exists
	ErrEventNotFound = errors.New("plancore: schedule event not found")

	// ErrNoPlanProposed indicates no plan currently occupies the PROPOSED slot
	ErrNoPlanProposed = errors.New("plancore: no proposed plan exists")

	// ErrDuplicateTaskKey indicates two events in one plan share a task reference
	ErrDuplicateTaskKey = errors.New("plancore: duplicate task key within plan events")
)

// ValidationError reports input that violates a domain invariant. It is
// returned immediately to the caller and never auto-corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// QuantityExceededError is the Allocation Guard's rejection: the requested
// quantity is above what the current document may legally hold on the line.
type QuantityExceededError struct {
	LineID     string
	Requested  string
	MaxAllowed string
}

func (e *QuantityExceededError) Error() string {
	return fmt.Sprintf("validation: line %s: requested quantity %s exceeds maximum allowed %s",
		e.LineID, e.Requested, e.MaxAllowed)
}

// SplitRangeError reports a split offset outside the open interval
// (0, duration) or below the task's minimum part duration.
type SplitRangeError struct {
	OffsetMin   int
	DurationMin int
	Reason      string
}

func (e *SplitRangeError) Error() string {
	return fmt.Sprintf("validation: split offset %d out of range for %d-minute event: %s",
		e.OffsetMin, e.DurationMin, e.Reason)
}

// ConflictError reports a lifecycle transition attempted against a stale
// expected state. It is surfaced distinctly from validation so the caller can
// prompt a refresh-and-retry rather than correct its input.
type ConflictError struct {
	PlanID         int64
	ExpectedStatus string
	ActualStatus   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: plan %d expected status %s, found %s",
		e.PlanID, e.ExpectedStatus, e.ActualStatus)
}

// TransportError wraps a failed fetch/mutate against the backing store.
// Retry policy belongs to the I/O boundary, never to the pure computations.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is any of the validation error kinds.
func IsValidation(err error) bool {
	var ve *ValidationError
	var qe *QuantityExceededError
	var se *SplitRangeError
	return errors.As(err, &ve) || errors.As(err, &qe) || errors.As(err, &se) ||
		errors.Is(err, ErrDuplicateTaskKey)
}

// IsConflict reports whether err is a stale-state conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrShipmentNotFound) ||
		errors.Is(err, ErrEventNotFound)
}

// IsTransport reports whether err originated at the I/O boundary.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
