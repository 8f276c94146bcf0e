//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	commoncfg "lodgfy-booking/common/config"
	"lodgfy-booking/common/database"
	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/migrations"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openIntegrationDB connects with the DB_* environment and applies the schema.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := commoncfg.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres", Password: "postgres",
		Database: "lodgfy_test", SSLMode: "disable", MaxConns: 5, MaxIdle: 1,
	}
	cfg.LoadFromEnv("DB")
	db, err := database.NewPostgresDB(&cfg)
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, migrations.Apply(ctx, db))
	return db
}

func TestPostgres_ExclusionConstraintRejectsOverlap(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()
	units := NewPostgresUnitsRepository(db)
	reservations := NewPostgresReservationsRepository(db)

	unit := &domain.Unit{
		Name: "Integration", Code: "IT-" + uuid.NewString()[:8],
		NightlyRate: domain.MoneyFromCents(10000), Capacity: 2, Occupancy: domain.OccupancyAvailable,
	}
	unitID, err := units.CreateUnit(ctx, nil, unit)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM reservations WHERE unit_id = $1`, unitID)
		_, _ = db.Exec(`DELETE FROM units WHERE unit_id = $1`, unitID)
	})

	first := &domain.Reservation{
		UnitID: unitID, GuestID: "guest-it",
		CheckIn: calendar.Date(2030, 3, 10), CheckOut: calendar.Date(2030, 3, 14),
		TotalPrice: domain.MoneyFromCents(40000), Status: domain.StatusPending,
	}
	require.NoError(t, reservations.SaveReservation(ctx, nil, first))

	// no unit lock taken: the constraint alone must refuse it
	overlapping := &domain.Reservation{
		UnitID: unitID, GuestID: "guest-it",
		CheckIn: calendar.Date(2030, 3, 12), CheckOut: calendar.Date(2030, 3, 15),
		TotalPrice: domain.MoneyFromCents(30000), Status: domain.StatusPending,
	}
	err = reservations.SaveReservation(ctx, nil, overlapping)
	assert.ErrorIs(t, err, domain.ErrReservationConflict)

	adjacent := &domain.Reservation{
		UnitID: unitID, GuestID: "guest-it",
		CheckIn: calendar.Date(2030, 3, 14), CheckOut: calendar.Date(2030, 3, 16),
		TotalPrice: domain.MoneyFromCents(20000), Status: domain.StatusPending,
	}
	require.NoError(t, reservations.SaveReservation(ctx, nil, adjacent))

	found, err := reservations.FindOverlapping(ctx, nil, unitID, calendar.Date(2030, 3, 13), calendar.Date(2030, 3, 15), "")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	err = units.DeleteUnit(ctx, nil, unitID)
	assert.ErrorIs(t, err, domain.ErrUnitInUse)
}

func TestPostgres_WithinTxSerialisesOnUnit(t *testing.T) {
	db := openIntegrationDB(t)
	tm := NewPostgresTxManager(db)
	locker := NewPostgresUnitLocker()
	unitID := "lock-" + uuid.NewString()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- WithinTx(context.Background(), tm, func(tx Tx) error {
			if err := locker.LockUnit(context.Background(), tx, unitID); err != nil {
				return err
			}
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := WithinTx(ctx, tm, func(tx Tx) error {
		return locker.LockUnit(ctx, tx, unitID)
	})
	assert.Error(t, err)

	close(release)
	require.NoError(t, <-done)
}
