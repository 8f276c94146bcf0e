package domain

import (
	"fmt"
	"strings"
	"time"
)

// OccupancyStatus cached turnover state of a unit.
// It is set by reservation transitions and never consulted for conflict detection.
type OccupancyStatus string

const (
	OccupancyAvailable OccupancyStatus = "AVAILABLE"
	OccupancyOccupied  OccupancyStatus = "OCCUPIED"
	OccupancyCleaning  OccupancyStatus = "CLEANING"
)

// ParseOccupancyStatus is case-insensitive.
func ParseOccupancyStatus(s string) (OccupancyStatus, error) {
	switch st := OccupancyStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case OccupancyAvailable, OccupancyOccupied, OccupancyCleaning:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown occupancy status %q", ErrInvalidInput, s)
}

// Unit a bookable chalet (units table)
type Unit struct {
	UnitID      string          `db:"unit_id" json:"unit_id"`
	Name        string          `db:"name" json:"name"`
	Code        string          `db:"code" json:"code"`
	Kind        string          `db:"kind" json:"kind,omitempty"` // Standard, Luxury, Family, Suite
	Description string          `db:"description" json:"description,omitempty"`
	NightlyRate Money           `db:"nightly_rate" json:"nightly_rate"`
	Capacity    int             `db:"capacity" json:"capacity"`
	Occupancy   OccupancyStatus `db:"occupancy_status" json:"occupancy_status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Validate checks the editable attributes.
func (u *Unit) Validate() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case strings.TrimSpace(u.Code) == "":
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	case u.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	case u.NightlyRate < 0:
		return fmt.Errorf("%w: nightly rate must not be negative", ErrInvalidInput)
	case u.NightlyRate > MaxMoney:
		return fmt.Errorf("%w: nightly rate exceeds %s", ErrInvalidInput, MaxMoney)
	}
	return nil
}

// ReleaseCleaning flips CLEANING back to AVAILABLE after turnover.
func (u *Unit) ReleaseCleaning() error {
	if u.Occupancy != OccupancyCleaning {
		return &TransitionError{Action: "release unit", Current: string(u.Occupancy), Reason: "only units being cleaned can be released"}
	}
	u.Occupancy = OccupancyAvailable
	return nil
}
