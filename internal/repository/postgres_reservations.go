package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/google/uuid"
)

// PostgresReservationsRepository ReservationStore backed by the reservations table.
// Overlap between blocking reservations is also rejected by the reservations_no_overlap
// exclusion constraint, so a racing writer that skipped the unit lock still cannot double-book.
type PostgresReservationsRepository struct {
	db *sql.DB
}

// NewPostgresReservationsRepository creates the reservations repository
func NewPostgresReservationsRepository(db *sql.DB) *PostgresReservationsRepository {
	return &PostgresReservationsRepository{db: db}
}

var _ ReservationStore = (*PostgresReservationsRepository)(nil)

const reservationColumns = `
	reservation_id,
	unit_id,
	guest_id,
	check_in,
	check_out,
	total_price,
	status,
	created_at,
	updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*domain.Reservation, error) {
	var r domain.Reservation
	var status string
	if err := row.Scan(
		&r.ReservationID,
		&r.UnitID,
		&r.GuestID,
		&r.CheckIn,
		&r.CheckOut,
		&r.TotalPrice,
		&status,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.CheckIn = calendar.Truncate(r.CheckIn)
	r.CheckOut = calendar.Truncate(r.CheckOut)
	r.Status = domain.ReservationStatus(status)
	return &r, nil
}

func (r *PostgresReservationsRepository) queryList(ctx context.Context, tx Tx, query string, args ...any) ([]*domain.Reservation, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	out := []*domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return out, nil
}

// GetReservation loads one reservation
func (r *PostgresReservationsRepository) GetReservation(ctx context.Context, tx Tx, reservationID string) (*domain.Reservation, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE reservation_id = $1`
	res, err := scanReservation(q.QueryRowContext(ctx, query, reservationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reservation %s: %w", reservationID, domain.ErrReservationNotFound)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

// ExistsReservation reports whether reservationID is present
func (r *PostgresReservationsRepository) ExistsReservation(ctx context.Context, tx Tx, reservationID string) (bool, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return false, err
	}
	var exists bool
	err = q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE reservation_id = $1)`, reservationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reservation: %w", err)
	}
	return exists, nil
}

// SaveReservation inserts (empty id) or updates a reservation
func (r *PostgresReservationsRepository) SaveReservation(ctx context.Context, tx Tx, res *domain.Reservation) error {
	q, err := pick(r.db, tx)
	if err != nil {
		return err
	}

	insert := res.ReservationID == ""
	var query string
	if insert {
		res.ReservationID = uuid.NewString()
		query = `
			INSERT INTO reservations (
				reservation_id, unit_id, guest_id, check_in, check_out,
				total_price, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, now(), now())
			RETURNING created_at, updated_at
		`
	} else {
		query = `
			UPDATE reservations
			SET unit_id = $2,
				guest_id = $3,
				check_in = $4::date,
				check_out = $5::date,
				total_price = $6,
				status = $7,
				updated_at = now()
			WHERE reservation_id = $1
			RETURNING created_at, updated_at
		`
	}

	err = q.QueryRowContext(ctx, query,
		res.ReservationID,
		res.UnitID,
		res.GuestID,
		calendar.Format(res.CheckIn),
		calendar.Format(res.CheckOut),
		res.TotalPrice,
		string(res.Status),
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if insert {
			res.ReservationID = ""
		}
		switch {
		case err == sql.ErrNoRows:
			return fmt.Errorf("reservation %s: %w", res.ReservationID, domain.ErrReservationNotFound)
		case pgCode(err) == pgExclusionViolation:
			return fmt.Errorf("unit %s %s: %w", res.UnitID, res.Range(), domain.ErrReservationConflict)
		case pgCode(err) == pgForeignKeyViolation:
			return fmt.Errorf("unit %s: %w", res.UnitID, domain.ErrUnitNotFound)
		}
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

// DeleteReservation hard-deletes a reservation
func (r *PostgresReservationsRepository) DeleteReservation(ctx context.Context, tx Tx, reservationID string) error {
	q, err := pick(r.db, tx)
	if err != nil {
		return err
	}
	result, err := q.ExecContext(ctx, `DELETE FROM reservations WHERE reservation_id = $1`, reservationID)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation %s: %w", reservationID, domain.ErrReservationNotFound)
	}
	return nil
}

// FindOverlapping half-open overlap: check_in < $3 AND $2 < check_out
func (r *PostgresReservationsRepository) FindOverlapping(ctx context.Context, tx Tx, unitID string, checkIn, checkOut time.Time, excludeID string) ([]*domain.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE unit_id = $1
		  AND status IN ('PENDING', 'CONFIRMED')
		  AND check_in < $3::date
		  AND $2::date < check_out
		  AND ($4 = '' OR reservation_id <> $4)
		ORDER BY check_in`
	return r.queryList(ctx, tx, query, unitID, calendar.Format(checkIn), calendar.Format(checkOut), excludeID)
}

// FindByGuest most recent stay first
func (r *PostgresReservationsRepository) FindByGuest(ctx context.Context, tx Tx, guestID string) ([]*domain.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE guest_id = $1
		ORDER BY check_in DESC, created_at DESC`
	return r.queryList(ctx, tx, query, guestID)
}

// FindByUnit ordered by check_in
func (r *PostgresReservationsRepository) FindByUnit(ctx context.Context, tx Tx, unitID string) ([]*domain.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE unit_id = $1
		ORDER BY check_in, created_at`
	return r.queryList(ctx, tx, query, unitID)
}

// FindByStatus ordered by check_in
func (r *PostgresReservationsRepository) FindByStatus(ctx context.Context, tx Tx, status domain.ReservationStatus) ([]*domain.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE status = $1
		ORDER BY check_in, created_at`
	return r.queryList(ctx, tx, query, string(status))
}

// ListReservations everything, ordered by check_in
func (r *PostgresReservationsRepository) ListReservations(ctx context.Context, tx Tx) ([]*domain.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		ORDER BY check_in, created_at`
	return r.queryList(ctx, tx, query)
}

// CountActiveByUnit counts PENDING/CONFIRMED reservations of a unit
func (r *PostgresReservationsRepository) CountActiveByUnit(ctx context.Context, tx Tx, unitID string) (int, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return 0, err
	}
	var n int
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE unit_id = $1 AND status IN ('PENDING', 'CONFIRMED')`,
		unitID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return n, nil
}
