package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lodgfy-booking/internal/calendar"
)

// ReservationStatus lifecycle state
//
//	PENDING --confirm--> CONFIRMED --complete--> COMPLETED
//	PENDING|CONFIRMED --cancel--> CANCELLED
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// BlockingStatuses take part in conflict detection.
var BlockingStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// ParseReservationStatus is case-insensitive.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch st := ReservationStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown reservation status %q", ErrInvalidInput, s)
}

// IsBlocking reports whether the status holds the unit's dates.
func (s ReservationStatus) IsBlocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// IsTerminal reports CANCELLED and COMPLETED.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Reservation a stay of a guest in a unit (reservations table)
type Reservation struct {
	ReservationID string            `db:"reservation_id"`
	UnitID        string            `db:"unit_id"`
	GuestID       string            `db:"guest_id"`
	CheckIn       time.Time         `db:"check_in"`
	CheckOut      time.Time         `db:"check_out"`
	TotalPrice    Money             `db:"total_price"`
	Status        ReservationStatus `db:"status"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

// Range is the stay as a half-open interval.
func (r *Reservation) Range() calendar.Range {
	return calendar.Range{CheckIn: r.CheckIn, CheckOut: r.CheckOut}
}

// Nights in the stay.
func (r *Reservation) Nights() int {
	return calendar.DaysBetween(r.CheckIn, r.CheckOut)
}

// Confirm PENDING -> CONFIRMED.
func (r *Reservation) Confirm() error {
	if r.Status != StatusPending {
		return &TransitionError{Action: "confirm", Current: string(r.Status), Reason: "only pending reservations can be confirmed"}
	}
	r.Status = StatusConfirmed
	return nil
}

// Cancel PENDING|CONFIRMED -> CANCELLED and returns the prior status.
func (r *Reservation) Cancel() (ReservationStatus, error) {
	prev := r.Status
	switch prev {
	case StatusCancelled:
		return prev, &TransitionError{Action: "cancel", Current: string(prev), Reason: "reservation already cancelled"}
	case StatusCompleted:
		return prev, &TransitionError{Action: "cancel", Current: string(prev), Reason: "reservation already completed"}
	}
	r.Status = StatusCancelled
	return prev, nil
}

// Complete CONFIRMED -> COMPLETED.
func (r *Reservation) Complete() error {
	if r.Status != StatusConfirmed {
		return &TransitionError{Action: "complete", Current: string(r.Status), Reason: "only confirmed reservations can be completed"}
	}
	r.Status = StatusCompleted
	return nil
}

// CheckEditable rejects edits of finished reservations.
func (r *Reservation) CheckEditable() error {
	if r.Status.IsTerminal() {
		return &TransitionError{Action: "update", Current: string(r.Status), Reason: "finished reservations cannot be changed"}
	}
	return nil
}

type reservationJSON struct {
	ReservationID string            `json:"reservation_id"`
	UnitID        string            `json:"unit_id"`
	GuestID       string            `json:"guest_id"`
	CheckIn       string            `json:"check_in"`
	CheckOut      string            `json:"check_out"`
	Nights        int               `json:"nights"`
	TotalPrice    Money             `json:"total_price"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// MarshalJSON renders dates as YYYY-MM-DD.
func (r Reservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(reservationJSON{
		ReservationID: r.ReservationID,
		UnitID:        r.UnitID,
		GuestID:       r.GuestID,
		CheckIn:       calendar.Format(r.CheckIn),
		CheckOut:      calendar.Format(r.CheckOut),
		Nights:        r.Nights(),
		TotalPrice:    r.TotalPrice,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON; nights is ignored.
func (r *Reservation) UnmarshalJSON(b []byte) error {
	var raw reservationJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in, err := calendar.ParseDate(raw.CheckIn)
	if err != nil {
		return err
	}
	out, err := calendar.ParseDate(raw.CheckOut)
	if err != nil {
		return err
	}
	*r = Reservation{
		ReservationID: raw.ReservationID,
		UnitID:        raw.UnitID,
		GuestID:       raw.GuestID,
		CheckIn:       in,
		CheckOut:      out,
		TotalPrice:    raw.TotalPrice,
		Status:        raw.Status,
		CreatedAt:     raw.CreatedAt,
		UpdatedAt:     raw.UpdatedAt,
	}
	return nil
}
