package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"lodgfy-booking/internal/domain"

	"github.com/google/uuid"
)

// PostgresUnitsRepository UnitStore backed by the units table
type PostgresUnitsRepository struct {
	db *sql.DB
}

// NewPostgresUnitsRepository creates the units repository
func NewPostgresUnitsRepository(db *sql.DB) *PostgresUnitsRepository {
	return &PostgresUnitsRepository{db: db}
}

var _ UnitStore = (*PostgresUnitsRepository)(nil)

const unitColumns = `
	unit_id,
	name,
	code,
	kind,
	description,
	nightly_rate,
	capacity,
	occupancy_status,
	created_at,
	updated_at`

func scanUnit(row interface{ Scan(...any) error }) (*domain.Unit, error) {
	var u domain.Unit
	var occupancy string
	if err := row.Scan(
		&u.UnitID,
		&u.Name,
		&u.Code,
		&u.Kind,
		&u.Description,
		&u.NightlyRate,
		&u.Capacity,
		&occupancy,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Occupancy = domain.OccupancyStatus(occupancy)
	return &u, nil
}

// GetUnit loads one unit
func (r *PostgresUnitsRepository) GetUnit(ctx context.Context, tx Tx, unitID string) (*domain.Unit, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT` + unitColumns + `
		FROM units
		WHERE unit_id = $1`
	u, err := scanUnit(q.QueryRowContext(ctx, query, unitID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("unit %s: %w", unitID, domain.ErrUnitNotFound)
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return u, nil
}

// UnitExists reports whether unitID is present
func (r *PostgresUnitsRepository) UnitExists(ctx context.Context, tx Tx, unitID string) (bool, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM units WHERE unit_id = $1)`, unitID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check unit: %w", err)
	}
	return exists, nil
}

// SaveUnit writes every mutable column of an existing unit
func (r *PostgresUnitsRepository) SaveUnit(ctx context.Context, tx Tx, unit *domain.Unit) error {
	q, err := pick(r.db, tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE units
		SET name = $2,
			code = $3,
			kind = $4,
			description = $5,
			nightly_rate = $6,
			capacity = $7,
			occupancy_status = $8,
			updated_at = now()
		WHERE unit_id = $1
		RETURNING updated_at
	`
	err = q.QueryRowContext(ctx, query,
		unit.UnitID,
		unit.Name,
		unit.Code,
		unit.Kind,
		unit.Description,
		unit.NightlyRate,
		unit.Capacity,
		string(unit.Occupancy),
	).Scan(&unit.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("unit %s: %w", unit.UnitID, domain.ErrUnitNotFound)
		}
		if pgCode(err) == pgUniqueViolation {
			return fmt.Errorf("code %s: %w", unit.Code, domain.ErrUnitCodeTaken)
		}
		return fmt.Errorf("failed to save unit: %w", err)
	}
	return nil
}

// CreateUnit inserts a unit and returns its id
func (r *PostgresUnitsRepository) CreateUnit(ctx context.Context, tx Tx, unit *domain.Unit) (string, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return "", err
	}
	if unit.UnitID == "" {
		unit.UnitID = uuid.NewString()
	}
	if unit.Occupancy == "" {
		unit.Occupancy = domain.OccupancyAvailable
	}
	query := `
		INSERT INTO units (
			unit_id, name, code, kind, description,
			nightly_rate, capacity, occupancy_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`
	err = q.QueryRowContext(ctx, query,
		unit.UnitID,
		unit.Name,
		unit.Code,
		unit.Kind,
		unit.Description,
		unit.NightlyRate,
		unit.Capacity,
		string(unit.Occupancy),
	).Scan(&unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return "", fmt.Errorf("code %s: %w", unit.Code, domain.ErrUnitCodeTaken)
		}
		return "", fmt.Errorf("failed to create unit: %w", err)
	}
	return unit.UnitID, nil
}

// ListUnits returns units matching filter, ordered by code
func (r *PostgresUnitsRepository) ListUnits(ctx context.Context, tx Tx, filter UnitFilter) ([]*domain.Unit, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.MaxRate != nil {
		args = append(args, *filter.MaxRate)
		where = append(where, fmt.Sprintf("nightly_rate <= $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args), len(args)))
	}
	if filter.MinCapacity > 0 {
		args = append(args, filter.MinCapacity)
		where = append(where, fmt.Sprintf("capacity >= $%d", len(args)))
	}

	query := `SELECT` + unitColumns + `
		FROM units`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY code"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := []*domain.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units: %w", err)
	}
	return units, nil
}

// FindUnitByCode looks a unit up by its human-facing code
func (r *PostgresUnitsRepository) FindUnitByCode(ctx context.Context, tx Tx, code string) (*domain.Unit, error) {
	q, err := pick(r.db, tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT` + unitColumns + `
		FROM units
		WHERE lower(code) = lower($1)`
	u, err := scanUnit(q.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("unit code %s: %w", code, domain.ErrUnitNotFound)
		}
		return nil, fmt.Errorf("failed to find unit by code: %w", err)
	}
	return u, nil
}

// DeleteUnit removes a unit; the reservations FK is ON DELETE RESTRICT
func (r *PostgresUnitsRepository) DeleteUnit(ctx context.Context, tx Tx, unitID string) error {
	q, err := pick(r.db, tx)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM units WHERE unit_id = $1`, unitID)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("unit %s is referenced by reservations: %w", unitID, domain.ErrUnitInUse)
		}
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("unit %s: %w", unitID, domain.ErrUnitNotFound)
	}
	return nil
}
