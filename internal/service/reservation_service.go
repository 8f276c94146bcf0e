package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/events"
	"lodgfy-booking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService reservation lifecycle: create, confirm, cancel, complete, edit, delete and queries.
type ReservationService interface {
	CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error)
	ConfirmReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	CompleteReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, req UpdateReservationRequest) (*domain.Reservation, error)
	DeleteReservation(ctx context.Context, reservationID string) error

	ListReservations(ctx context.Context) ([]*domain.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	ListByGuest(ctx context.Context, guestID string) ([]*domain.Reservation, error)
	ListByUnit(ctx context.Context, unitID string) ([]*domain.Reservation, error)
	ListByStatus(ctx context.Context, status string) ([]*domain.Reservation, error)
}

type reservationService struct {
	tx           repository.TxManager
	locker       repository.UnitLocker
	units        repository.UnitStore
	reservations repository.ReservationStore
	guests       repository.GuestDirectory
	availability *AvailabilityChecker
	occupancy    occupancySync
	policy       BookingPolicy
	publisher    events.Publisher
	logger       *zap.Logger
}

// NewReservationService wires the lifecycle engine. publisher may be nil.
func NewReservationService(
	tx repository.TxManager,
	locker repository.UnitLocker,
	units repository.UnitStore,
	reservations repository.ReservationStore,
	guests repository.GuestDirectory,
	policy BookingPolicy,
	publisher events.Publisher,
	logger *zap.Logger,
) ReservationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &reservationService{
		tx:           tx,
		locker:       locker,
		units:        units,
		reservations: reservations,
		guests:       guests,
		availability: NewAvailabilityChecker(reservations),
		occupancy:    occupancySync{units: units},
		policy:       policy.withDefaults(),
		publisher:    publisher,
		logger:       logger,
	}
}

// ============================================
// Request DTOs
// ============================================

// CreateReservationRequest dates are calendar days; time of day is ignored.
type CreateReservationRequest struct {
	UnitID   string
	GuestID  string
	CheckIn  time.Time
	CheckOut time.Time
}

// UpdateReservationRequest empty UnitID/GuestID keep the current value.
type UpdateReservationRequest struct {
	ReservationID string
	UnitID        string
	GuestID       string
	CheckIn       time.Time
	CheckOut      time.Time
}

// ============================================
// Lifecycle
// ============================================

func (s *reservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error) {
	s.logger.Info("Creating reservation",
		zap.String("unit_id", req.UnitID),
		zap.String("guest_id", req.GuestID),
	)

	if err := s.ensureGuest(ctx, req.GuestID); err != nil {
		return nil, err
	}
	if _, err := s.units.GetUnit(ctx, nil, req.UnitID); err != nil {
		return nil, err
	}
	stay, err := s.policy.ValidateStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	var res *domain.Reservation
	err = repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		if err := s.locker.LockUnit(ctx, tx, req.UnitID); err != nil {
			return err
		}
		// rate as of booking, read under the lock
		unit, err := s.units.GetUnit(ctx, tx, req.UnitID)
		if err != nil {
			return err
		}
		if err := s.availability.ensureFree(ctx, tx, unit.UnitID, stay, ""); err != nil {
			return err
		}
		total, err := stayPrice(unit, stay.Nights())
		if err != nil {
			return err
		}
		res = &domain.Reservation{
			UnitID:     unit.UnitID,
			GuestID:    req.GuestID,
			CheckIn:    stay.CheckIn,
			CheckOut:   stay.CheckOut,
			TotalPrice: total,
			Status:     domain.StatusPending,
		}
		return s.reservations.SaveReservation(ctx, tx, res)
	})
	if err != nil {
		s.logFailure("create", "", err)
		return nil, err
	}

	s.logger.Info("Reservation created",
		zap.String("reservation_id", res.ReservationID),
		zap.String("unit_id", res.UnitID),
		zap.Int("nights", res.Nights()),
		zap.String("total_price", res.TotalPrice.String()),
	)
	s.publish(domain.EventCreated, res, "")
	return res, nil
}

func (s *reservationService) ConfirmReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return s.transition(ctx, reservationID, domain.EventConfirmed, func(r *domain.Reservation) error {
		return r.Confirm()
	})
}

func (s *reservationService) CancelReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return s.transition(ctx, reservationID, domain.EventCancelled, func(r *domain.Reservation) error {
		_, err := r.Cancel()
		return err
	})
}

func (s *reservationService) CompleteReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return s.transition(ctx, reservationID, domain.EventCompleted, func(r *domain.Reservation) error {
		return r.Complete()
	})
}

// transition applies a status change and the matching occupancy write in one transaction.
// The unit lock makes concurrent transitions of the same reservation observe each other.
func (s *reservationService) transition(ctx context.Context, reservationID string, kind domain.EventKind, apply func(*domain.Reservation) error) (*domain.Reservation, error) {
	var res *domain.Reservation
	var prev domain.ReservationStatus
	err := repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		r, err := s.lockReservation(ctx, tx, reservationID, "")
		if err != nil {
			return err
		}
		prev = r.Status
		if err := apply(r); err != nil {
			return err
		}
		if err := s.reservations.SaveReservation(ctx, tx, r); err != nil {
			return err
		}
		if status, ok := afterTransition(prev, r.Status); ok {
			if err := s.occupancy.set(ctx, tx, r.UnitID, status); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		s.logFailure(string(kind), reservationID, err)
		return nil, err
	}

	s.logger.Info("Reservation status changed",
		zap.String("reservation_id", res.ReservationID),
		zap.String("from", string(prev)),
		zap.String("to", string(res.Status)),
	)
	s.publish(kind, res, prev)
	return res, nil
}

func (s *reservationService) UpdateReservation(ctx context.Context, req UpdateReservationRequest) (*domain.Reservation, error) {
	current, err := s.reservations.GetReservation(ctx, nil, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := current.CheckEditable(); err != nil {
		return nil, err
	}
	if req.GuestID != "" && req.GuestID != current.GuestID {
		if err := s.ensureGuest(ctx, req.GuestID); err != nil {
			return nil, err
		}
	}
	stay, err := s.policy.ValidateStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	targetID := req.UnitID
	if targetID == "" {
		targetID = current.UnitID
	}
	if _, err := s.units.GetUnit(ctx, nil, targetID); err != nil {
		return nil, err
	}

	var res *domain.Reservation
	err = repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		r, err := s.lockReservation(ctx, tx, req.ReservationID, targetID)
		if err != nil {
			return err
		}
		if err := r.CheckEditable(); err != nil {
			return err
		}
		target, err := s.units.GetUnit(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if err := s.availability.ensureFree(ctx, tx, target.UnitID, stay, r.ReservationID); err != nil {
			return err
		}

		total, err := stayPrice(target, stay.Nights())
		if err != nil {
			return err
		}

		previousUnit := r.UnitID
		r.UnitID = target.UnitID
		if req.GuestID != "" {
			r.GuestID = req.GuestID
		}
		r.CheckIn = stay.CheckIn
		r.CheckOut = stay.CheckOut
		r.TotalPrice = total
		if err := s.reservations.SaveReservation(ctx, tx, r); err != nil {
			return err
		}

		if r.Status == domain.StatusConfirmed && previousUnit != r.UnitID {
			if err := s.occupancy.set(ctx, tx, previousUnit, domain.OccupancyAvailable); err != nil {
				return err
			}
			if err := s.occupancy.set(ctx, tx, r.UnitID, domain.OccupancyOccupied); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		s.logFailure("update", req.ReservationID, err)
		return nil, err
	}

	s.logger.Info("Reservation updated",
		zap.String("reservation_id", res.ReservationID),
		zap.String("unit_id", res.UnitID),
		zap.String("total_price", res.TotalPrice.String()),
	)
	s.publish(domain.EventUpdated, res, "")
	return res, nil
}

func (s *reservationService) DeleteReservation(ctx context.Context, reservationID string) error {
	s.logger.Info("Deleting reservation", zap.String("reservation_id", reservationID))

	var deleted *domain.Reservation
	err := repository.WithinTx(ctx, s.tx, func(tx repository.Tx) error {
		r, err := s.lockReservation(ctx, tx, reservationID, "")
		if err != nil {
			return err
		}
		if err := s.reservations.DeleteReservation(ctx, tx, reservationID); err != nil {
			return err
		}
		deleted = r
		return nil
	})
	if err != nil {
		s.logFailure("delete", reservationID, err)
		return err
	}

	s.logger.Info("Reservation deleted", zap.String("reservation_id", reservationID))
	s.publish(domain.EventDeleted, deleted, "")
	return nil
}

// lockReservation locks the reservation's unit (and extraUnit, when set) in id order and
// returns the reservation as read under those locks. A concurrent move to another unit
// is caught by re-reading and retrying.
func (s *reservationService) lockReservation(ctx context.Context, tx repository.Tx, reservationID, extraUnit string) (*domain.Reservation, error) {
	locked := map[string]bool{}
	for attempt := 0; attempt < 3; attempt++ {
		r, err := s.reservations.GetReservation(ctx, tx, reservationID)
		if err != nil {
			return nil, err
		}
		if locked[r.UnitID] && (extraUnit == "" || locked[extraUnit]) {
			return r, nil
		}

		want := []string{r.UnitID}
		if extraUnit != "" && extraUnit != r.UnitID {
			want = append(want, extraUnit)
		}
		sort.Strings(want)
		for _, id := range want {
			if locked[id] {
				continue
			}
			if err := s.locker.LockUnit(ctx, tx, id); err != nil {
				return nil, err
			}
			locked[id] = true
		}
	}
	return nil, fmt.Errorf("reservation %s keeps moving between units", reservationID)
}

// ============================================
// Queries
// ============================================

func (s *reservationService) ListReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return s.reservations.ListReservations(ctx, nil)
}

func (s *reservationService) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return s.reservations.GetReservation(ctx, nil, reservationID)
}

func (s *reservationService) ListByGuest(ctx context.Context, guestID string) ([]*domain.Reservation, error) {
	return s.reservations.FindByGuest(ctx, nil, guestID)
}

func (s *reservationService) ListByUnit(ctx context.Context, unitID string) ([]*domain.Reservation, error) {
	return s.reservations.FindByUnit(ctx, nil, unitID)
}

func (s *reservationService) ListByStatus(ctx context.Context, status string) ([]*domain.Reservation, error) {
	st, err := domain.ParseReservationStatus(status)
	if err != nil {
		return nil, err
	}
	return s.reservations.FindByStatus(ctx, nil, st)
}

// ============================================
// helpers
// ============================================

// stayPrice is nightly rate times nights, bounded like the total_price column.
func stayPrice(unit *domain.Unit, nights int) (domain.Money, error) {
	if unit.NightlyRate < 0 || unit.NightlyRate > domain.MaxMoney {
		return 0, fmt.Errorf("%w: unit %s has nightly rate %s out of range", domain.ErrInvalidInput, unit.UnitID, unit.NightlyRate)
	}
	if nights > 0 && unit.NightlyRate > domain.MaxMoney/domain.Money(nights) {
		return 0, fmt.Errorf("%w: total for %d nights exceeds %s", domain.ErrInvalidInput, nights, domain.MaxMoney)
	}
	return unit.NightlyRate.Mul(nights), nil
}

func (s *reservationService) ensureGuest(ctx context.Context, guestID string) error {
	if guestID == "" {
		return fmt.Errorf("guest id is required: %w", domain.ErrGuestNotFound)
	}
	ok, err := s.guests.GuestExists(ctx, guestID)
	if err != nil {
		return fmt.Errorf("failed to look up guest: %w", err)
	}
	if !ok {
		return fmt.Errorf("guest %s: %w", guestID, domain.ErrGuestNotFound)
	}
	return nil
}

func (s *reservationService) publish(kind domain.EventKind, res *domain.Reservation, prev domain.ReservationStatus) {
	s.publisher.Publish(domain.ReservationEvent{
		EventID:        uuid.NewString(),
		Kind:           kind,
		Reservation:    *res,
		PreviousStatus: prev,
		OccurredAt:     s.policy.Clock.Now().UTC(),
	})
}

// logFailure domain rejections are routine; anything else is an infrastructure error.
func (s *reservationService) logFailure(op, reservationID string, err error) {
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if reservationID != "" {
		fields = append(fields, zap.String("reservation_id", reservationID))
	}
	if isDomainError(err) {
		s.logger.Info("Reservation request rejected", fields...)
		return
	}
	s.logger.Error("Reservation request failed", fields...)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrGuestNotFound,
		domain.ErrUnitNotFound,
		domain.ErrInvalidDateRange,
		domain.ErrReservationConflict,
		domain.ErrReservationNotFound,
		domain.ErrInvalidTransition,
		domain.ErrInvalidInput,
		domain.ErrUnitCodeTaken,
		domain.ErrUnitInUse,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
