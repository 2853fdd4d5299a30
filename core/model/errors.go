package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrCapacity matches every CapacityError.
	ErrCapacity = errors.New("roster capacity exceeded")
)

// Reason is a machine-readable validation failure code.
type Reason string

const (
	ReasonEmptyMessage        Reason = "empty_message"
	ReasonMissingParticipants Reason = "missing_participants"
	ReasonTooManyParticipants Reason = "too_many_participants"
	ReasonInvalidTarget       Reason = "invalid_target"
	ReasonNoRecipients        Reason = "no_recipients"
	ReasonEmptyName           Reason = "empty_name"
	ReasonDuplicateID         Reason = "duplicate_id"
	ReasonMalformedBody       Reason = "malformed_body"
)

// ValidationError rejects a request or roster operation before any side
// effect happens.
type ValidationError struct {
	Reason Reason
	Msg    string
}

// NewValidationError builds a ValidationError.
func NewValidationError(reason Reason, msg string) *ValidationError {
	return &ValidationError{Reason: reason, Msg: msg}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Reason, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CapacityError is returned when a roster operation would exceed Max entries.
type CapacityError struct {
	Max int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("roster is full: maximum %d participants", e.Max)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// ReasonOf extracts the reason of a ValidationError or CapacityError. It
// returns "" for any other error.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ReasonTooManyParticipants
	}
	return ""
}
