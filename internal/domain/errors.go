package domain

import (
	"errors"
	"fmt"
)

// Domain error kinds. Callers branch with errors.Is; store failures never match these.
var (
	ErrGuestNotFound       = errors.New("guest not found")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrReservationConflict = errors.New("reservation conflict")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidTransition   = errors.New("invalid transition")

	ErrInvalidInput  = errors.New("invalid input")
	ErrUnitCodeTaken = errors.New("unit code already in use")
	ErrUnitInUse     = errors.New("unit has active reservations")
)

// TransitionError is a rejected state change. It names the status the record was in.
type TransitionError struct {
	Action  string
	Current string
	Reason  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s (current status %s): %s", e.Action, e.Current, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// DateRangeError explains why a stay was rejected.
type DateRangeError struct {
	Reason string
}

func (e *DateRangeError) Error() string {
	return "invalid date range: " + e.Reason
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// ConflictError carries the reservations that block a stay.
type ConflictError struct {
	UnitID      string
	Conflicting []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reservation conflict: unit %s already booked by %v", e.UnitID, e.Conflicting)
}

func (e *ConflictError) Unwrap() error { return ErrReservationConflict }
