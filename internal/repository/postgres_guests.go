package repository

import (
	"context"
	"database/sql"
	"fmt"

	"lodgfy-booking/internal/domain"
)

// PostgresGuestDirectory reads the guests table maintained by the guest registration service.
type PostgresGuestDirectory struct {
	db *sql.DB
}

func NewPostgresGuestDirectory(db *sql.DB) *PostgresGuestDirectory {
	return &PostgresGuestDirectory{db: db}
}

var _ GuestDirectory = (*PostgresGuestDirectory)(nil)

func (g *PostgresGuestDirectory) GuestExists(ctx context.Context, guestID string) (bool, error) {
	var exists bool
	err := g.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM guests WHERE guest_id = $1)`, guestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check guest: %w", err)
	}
	return exists, nil
}

func (g *PostgresGuestDirectory) GetGuest(ctx context.Context, guestID string) (*domain.Guest, error) {
	var guest domain.Guest
	err := g.db.QueryRowContext(ctx,
		`SELECT guest_id, name, email FROM guests WHERE guest_id = $1`,
		guestID,
	).Scan(&guest.GuestID, &guest.Name, &guest.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("guest %s: %w", guestID, domain.ErrGuestNotFound)
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return &guest, nil
}
