package service

import (
	"context"
	"fmt"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/repository"
)

// DefaultMaxStayDays longest stay accepted when no policy is configured.
const DefaultMaxStayDays = 365

// BookingPolicy date rules shared by reservations and availability searches.
type BookingPolicy struct {
	Clock       calendar.Clock
	Location    *time.Location // "today" is evaluated here
	MaxStayDays int
}

func (p BookingPolicy) withDefaults() BookingPolicy {
	if p.Clock == nil {
		p.Clock = calendar.RealClock{}
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	if p.MaxStayDays <= 0 {
		p.MaxStayDays = DefaultMaxStayDays
	}
	return p
}

// Today in the policy's location.
func (p BookingPolicy) Today() time.Time {
	return calendar.Today(p.Clock, p.Location)
}

// ValidateStay rejects missing dates, empty or inverted ranges, past arrivals and
// stays longer than MaxStayDays. The returned range is day-truncated.
func (p BookingPolicy) ValidateStay(checkIn, checkOut time.Time) (calendar.Range, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return calendar.Range{}, &domain.DateRangeError{Reason: "check-in and check-out are required"}
	}
	stay := calendar.NewRange(checkIn, checkOut)
	if !stay.CheckIn.Before(stay.CheckOut) {
		return calendar.Range{}, &domain.DateRangeError{Reason: "check-out must be after check-in"}
	}
	if calendar.IsPast(stay.CheckIn, p.Today()) {
		return calendar.Range{}, &domain.DateRangeError{Reason: "check-in cannot be in the past"}
	}
	if n := stay.Nights(); n > p.MaxStayDays {
		return calendar.Range{}, &domain.DateRangeError{Reason: fmt.Sprintf("stay of %d nights exceeds the maximum of %d", n, p.MaxStayDays)}
	}
	return stay, nil
}

// AvailabilityChecker answers overlap questions from reservation status only;
// unit occupancy is never consulted.
type AvailabilityChecker struct {
	reservations repository.ReservationStore
}

func NewAvailabilityChecker(reservations repository.ReservationStore) *AvailabilityChecker {
	return &AvailabilityChecker{reservations: reservations}
}

// Conflicts blocking reservations of unitID overlapping [checkIn, checkOut), except excludeID.
// Pass the transaction that will perform the write so the read and the write are serialised.
func (a *AvailabilityChecker) Conflicts(ctx context.Context, tx repository.Tx, unitID string, checkIn, checkOut time.Time, excludeID string) ([]*domain.Reservation, error) {
	stay := calendar.NewRange(checkIn, checkOut)
	if !stay.CheckIn.Before(stay.CheckOut) {
		return nil, &domain.DateRangeError{Reason: "check-out must be after check-in"}
	}
	found, err := a.reservations.FindOverlapping(ctx, tx, unitID, stay.CheckIn, stay.CheckOut, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	return found, nil
}

// HasConflict reports whether any blocking reservation overlaps the stay.
func (a *AvailabilityChecker) HasConflict(ctx context.Context, tx repository.Tx, unitID string, checkIn, checkOut time.Time, excludeID string) (bool, error) {
	found, err := a.Conflicts(ctx, tx, unitID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// ensureFree turns a non-empty conflict set into a *domain.ConflictError.
func (a *AvailabilityChecker) ensureFree(ctx context.Context, tx repository.Tx, unitID string, stay calendar.Range, excludeID string) error {
	found, err := a.Conflicts(ctx, tx, unitID, stay.CheckIn, stay.CheckOut, excludeID)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}
	ids := make([]string, 0, len(found))
	for _, r := range found {
		ids = append(ids, r.ReservationID)
	}
	return &domain.ConflictError{UnitID: unitID, Conflicting: ids}
}
