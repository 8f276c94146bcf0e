package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/repository"

	"go.uber.org/zap"
)

// UnitService chalet management and availability search.
type UnitService interface {
	CreateUnit(ctx context.Context, req UnitRequest) (*domain.Unit, error)
	GetUnit(ctx context.Context, unitID string) (*domain.Unit, error)
	ListUnits(ctx context.Context) ([]*domain.Unit, error)
	UpdateUnit(ctx context.Context, unitID string, req UnitRequest) (*domain.Unit, error)
	DeleteUnit(ctx context.Context, unitID string) error
	SearchUnits(ctx context.Context, req SearchUnitsRequest) ([]*domain.Unit, error)

	// FindAvailableUnits units that fit the party and have no blocking reservation in the stay.
	FindAvailableUnits(ctx context.Context, req FindAvailableUnitsRequest) ([]*domain.Unit, error)
	CheckAvailability(ctx context.Context, unitID string, checkIn, checkOut time.Time) (*AvailabilityResponse, error)

	// ReleaseCleaning marks a CLEANING unit AVAILABLE after turnover.
	ReleaseCleaning(ctx context.Context, unitID string) (*domain.Unit, error)
}

type unitService struct {
	tx           repository.TxManager
	locker       repository.UnitLocker
	units        repository.UnitStore
	reservations repository.ReservationStore
	availability *AvailabilityChecker
	policy       BookingPolicy
	logger       *zap.Logger
}

func NewUnitService(
	tx repository.TxManager,
	locker repository.UnitLocker,
	units repository.UnitStore,
	reservations repository.ReservationStore,
	policy BookingPolicy,
	logger *zap.Logger,
) UnitService {
	return &unitService{
		tx:           tx,
		locker:       locker,
		units:        units,
		reservations: reservations,
		availability: NewAvailabilityChecker(reservations),
		policy:       policy.withDefaults(),
		logger:       logger,
	}
}

// UnitRequest editable unit attributes. Occupancy is not editable here.
type UnitRequest struct {
	Name        string
	Code        string
	Kind        string
	Description string
	NightlyRate domain.Money
	Capacity    int
}

// SearchUnitsRequest both criteria are optional.
type SearchUnitsRequest struct {
	MaxRate *domain.Money
	Query   string // name or code substring
}

type FindAvailableUnitsRequest struct {
	Guests   int
	CheckIn  time.Time
	CheckOut time.Time
}

type AvailabilityResponse struct {
	UnitID      string   `json:"unit_id"`
	CheckIn     string   `json:"check_in"`
	CheckOut    string   `json:"check_out"`
	Nights      int      `json:"nights"`
	Available   bool     `json:"available"`
	Conflicting []string `json:"conflicting,omitempty"`
}

func (s *unitService) CreateUnit(ctx context.Context, req UnitRequest) (*domain.Unit, error) {
	unit := &domain.Unit{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		Kind:        req.Kind,
		Description: req.Description,
		NightlyRate: req.NightlyRate,
		Capacity:    req.Capacity,
		Occupancy:   domain.OccupancyAvailable,
	}
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, unit.Code, ""); err != nil {
		return nil, err
	}
	if _, err := s.units.CreateUnit(ctx, nil, unit); err != nil {
		return nil, err
	}
	s.logger.Info("Unit created",
		zap.String("unit_id", unit.UnitID),
		zap.String("code", unit.Code),
	)
	return unit, nil
}

func (s *unitService) GetUnit(ctx context.Context, unitID string) (*domain.Unit, error) {
	return s.units.GetUnit(ctx, nil, unitID)
}

func (s *unitService) ListUnits(ctx context.Context) ([]*domain.Unit, error) {
	return s.units.ListUnits(ctx, nil, repository.UnitFilter{})
}

func (s *unitService) UpdateUnit(ctx context.Context, unitID string, req UnitRequest) (*domain.Unit, error) {
	var unit *domain.Unit
	err := repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		if err := s.locker.LockUnit(ctx, tx, unitID); err != nil {
			return err
		}
		u, err := s.units.GetUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		u.Name = strings.TrimSpace(req.Name)
		u.Code = strings.TrimSpace(req.Code)
		u.Kind = req.Kind
		u.Description = req.Description
		u.NightlyRate = req.NightlyRate
		u.Capacity = req.Capacity
		if err := u.Validate(); err != nil {
			return err
		}
		if err := s.ensureCodeFree(ctx, u.Code, u.UnitID); err != nil {
			return err
		}
		if err := s.units.SaveUnit(ctx, tx, u); err != nil {
			return err
		}
		unit = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit updated", zap.String("unit_id", unitID))
	return unit, nil
}

// DeleteUnit refuses while PENDING/CONFIRMED reservations exist. The store additionally
// refuses while any reservation row references the unit.
func (s *unitService) DeleteUnit(ctx context.Context, unitID string) error {
	err := repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		if err := s.locker.LockUnit(ctx, tx, unitID); err != nil {
			return err
		}
		exists, err := s.units.UnitExists(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("unit %s: %w", unitID, domain.ErrUnitNotFound)
		}
		active, err := s.reservations.CountActiveByUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("unit %s has %d active reservations: %w", unitID, active, domain.ErrUnitInUse)
		}
		return s.units.DeleteUnit(ctx, tx, unitID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Unit deleted", zap.String("unit_id", unitID))
	return nil
}

func (s *unitService) SearchUnits(ctx context.Context, req SearchUnitsRequest) ([]*domain.Unit, error) {
	if req.MaxRate != nil && *req.MaxRate < 0 {
		return nil, fmt.Errorf("%w: max rate must not be negative", domain.ErrInvalidInput)
	}
	return s.units.ListUnits(ctx, nil, repository.UnitFilter{
		MaxRate: req.MaxRate,
		Search:  req.Query,
	})
}

func (s *unitService) FindAvailableUnits(ctx context.Context, req FindAvailableUnitsRequest) ([]*domain.Unit, error) {
	if req.Guests <= 0 {
		return nil, fmt.Errorf("%w: guests must be positive", domain.ErrInvalidInput)
	}
	stay, err := s.policy.ValidateStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	candidates, err := s.units.ListUnits(ctx, nil, repository.UnitFilter{MinCapacity: req.Guests})
	if err != nil {
		return nil, err
	}
	out := []*domain.Unit{}
	for _, u := range candidates {
		busy, err := s.availability.HasConflict(ctx, nil, u.UnitID, stay.CheckIn, stay.CheckOut, "")
		if err != nil {
			return nil, err
		}
		if !busy {
			out = append(out, u)
		}
	}
	return out, nil
}

// CheckAvailability is advisory; CreateReservation repeats the check under the unit lock.
func (s *unitService) CheckAvailability(ctx context.Context, unitID string, checkIn, checkOut time.Time) (*AvailabilityResponse, error) {
	if _, err := s.units.GetUnit(ctx, nil, unitID); err != nil {
		return nil, err
	}
	stay, err := s.policy.ValidateStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	found, err := s.availability.Conflicts(ctx, nil, unitID, stay.CheckIn, stay.CheckOut, "")
	if err != nil {
		return nil, err
	}
	resp := &AvailabilityResponse{
		UnitID:    unitID,
		CheckIn:   calendar.Format(stay.CheckIn),
		CheckOut:  calendar.Format(stay.CheckOut),
		Nights:    stay.Nights(),
		Available: len(found) == 0,
	}
	for _, r := range found {
		resp.Conflicting = append(resp.Conflicting, r.ReservationID)
	}
	return resp, nil
}

func (s *unitService) ReleaseCleaning(ctx context.Context, unitID string) (*domain.Unit, error) {
	var unit *domain.Unit
	err := repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		if err := s.locker.LockUnit(ctx, tx, unitID); err != nil {
			return err
		}
		u, err := s.units.GetUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}
		if err := u.ReleaseCleaning(); err != nil {
			return err
		}
		if err := s.units.SaveUnit(ctx, tx, u); err != nil {
			return err
		}
		unit = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Unit released after cleaning", zap.String("unit_id", unitID))
	return unit, nil
}

func (s *unitService) ensureCodeFree(ctx context.Context, code, selfID string) error {
	existing, err := s.units.FindUnitByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrUnitNotFound) {
			return nil
		}
		return err
	}
	if existing.UnitID != selfID {
		return fmt.Errorf("code %s: %w", code, domain.ErrUnitCodeTaken)
	}
	return nil
}
