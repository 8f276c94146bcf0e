package service

import (
	"context"
	"fmt"

	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/repository"
)

// occupancySync writes the cached occupancy flag of a unit. The latest lifecycle
// transition wins; conflict detection never reads the flag.
type occupancySync struct {
	units repository.UnitStore
}

func (o occupancySync) set(ctx context.Context, tx repository.Tx, unitID string, status domain.OccupancyStatus) error {
	unit, err := o.units.GetUnit(ctx, tx, unitID)
	if err != nil {
		return err
	}
	if unit.Occupancy == status {
		return nil
	}
	unit.Occupancy = status
	if err := o.units.SaveUnit(ctx, tx, unit); err != nil {
		return fmt.Errorf("failed to update unit occupancy: %w", err)
	}
	return nil
}

// afterTransition maps a reservation status change to the unit's new occupancy.
// ok is false when the change does not touch occupancy.
func afterTransition(prev, next domain.ReservationStatus) (status domain.OccupancyStatus, ok bool) {
	switch {
	case next == domain.StatusConfirmed:
		return domain.OccupancyOccupied, true
	case next == domain.StatusCancelled && prev == domain.StatusConfirmed:
		return domain.OccupancyAvailable, true
	case next == domain.StatusCompleted:
		return domain.OccupancyCleaning, true
	}
	return "", false
}
