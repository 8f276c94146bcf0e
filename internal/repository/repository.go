package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lodgfy-booking/internal/domain"
)

// ErrForeignTx a Tx from one backend was handed to another backend's store.
var ErrForeignTx = errors.New("transaction belongs to a different store backend")

// ErrTxDone the transaction was already committed or rolled back.
var ErrTxDone = errors.New("transaction already finished")

// Tx is the transaction scope threaded through store calls.
// A nil Tx means "no transaction": reads see committed state and each write commits on its own.
type Tx interface {
	Commit() error
	// Rollback is safe to call after Commit; it is then a no-op.
	Rollback() error
	// OnFinish registers fn to run once the transaction commits or rolls back.
	OnFinish(fn func())
}

// TxManager starts transactions.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// UnitLocker serialises check-then-write sequences per unit.
// The lock is held until tx finishes; units may be locked in any number per tx.
type UnitLocker interface {
	LockUnit(ctx context.Context, tx Tx, unitID string) error
}

// UnitFilter optional unit search criteria; zero values are ignored.
type UnitFilter struct {
	MaxRate     *domain.Money
	Search      string // substring of name or code, case-insensitive
	MinCapacity int
}

// UnitStore persists units.
type UnitStore interface {
	GetUnit(ctx context.Context, tx Tx, unitID string) (*domain.Unit, error)
	UnitExists(ctx context.Context, tx Tx, unitID string) (bool, error)
	// SaveUnit updates an existing unit (ErrUnitNotFound otherwise).
	SaveUnit(ctx context.Context, tx Tx, unit *domain.Unit) error
	// CreateUnit assigns UnitID when empty; duplicate codes fail with ErrUnitCodeTaken.
	CreateUnit(ctx context.Context, tx Tx, unit *domain.Unit) (string, error)
	ListUnits(ctx context.Context, tx Tx, filter UnitFilter) ([]*domain.Unit, error)
	FindUnitByCode(ctx context.Context, tx Tx, code string) (*domain.Unit, error)
	// DeleteUnit fails with ErrUnitInUse while any reservation references the unit.
	DeleteUnit(ctx context.Context, tx Tx, unitID string) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	GetReservation(ctx context.Context, tx Tx, reservationID string) (*domain.Reservation, error)
	ExistsReservation(ctx context.Context, tx Tx, reservationID string) (bool, error)
	// SaveReservation inserts when ReservationID is empty (and fills it in), updates otherwise.
	// A write that would overlap a blocking reservation fails with ErrReservationConflict.
	SaveReservation(ctx context.Context, tx Tx, r *domain.Reservation) error
	DeleteReservation(ctx context.Context, tx Tx, reservationID string) error
	// FindOverlapping returns PENDING/CONFIRMED reservations of unitID intersecting [checkIn, checkOut).
	// excludeID ("" for none) is left out of the result.
	FindOverlapping(ctx context.Context, tx Tx, unitID string, checkIn, checkOut time.Time, excludeID string) ([]*domain.Reservation, error)
	// FindByGuest orders by check_in, most recent first.
	FindByGuest(ctx context.Context, tx Tx, guestID string) ([]*domain.Reservation, error)
	FindByUnit(ctx context.Context, tx Tx, unitID string) ([]*domain.Reservation, error)
	FindByStatus(ctx context.Context, tx Tx, status domain.ReservationStatus) ([]*domain.Reservation, error)
	ListReservations(ctx context.Context, tx Tx) ([]*domain.Reservation, error)
	CountActiveByUnit(ctx context.Context, tx Tx, unitID string) (int, error)
}

// GuestDirectory resolves guests owned by another system.
type GuestDirectory interface {
	GuestExists(ctx context.Context, guestID string) (bool, error)
	// GetGuest fails with ErrGuestNotFound for unknown ids.
	GetGuest(ctx context.Context, guestID string) (*domain.Guest, error)
}

// WithinTx runs fn inside a transaction, committing when fn returns nil.
// Any error or panic rolls everything back.
func WithinTx(ctx context.Context, tm TxManager, fn func(tx Tx) error) error {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
