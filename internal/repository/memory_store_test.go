package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUnit(t *testing.T, s *MemoryStore, code string) string {
	t.Helper()
	id, err := s.CreateUnit(context.Background(), nil, &domain.Unit{
		Name:        "Chalet " + code,
		Code:        code,
		NightlyRate: domain.MoneyFromCents(30000),
		Capacity:    4,
	})
	require.NoError(t, err)
	return id
}

func pending(unitID string, in, out time.Time) *domain.Reservation {
	return &domain.Reservation{
		UnitID:   unitID,
		GuestID:  "guest-1",
		CheckIn:  in,
		CheckOut: out,
		Status:   domain.StatusPending,
	}
}

func TestMemoryStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	res := pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))
	require.NoError(t, s.SaveReservation(ctx, tx, res))

	// visible inside the tx only
	_, err = s.GetReservation(ctx, tx, res.ReservationID)
	require.NoError(t, err)
	_, err = s.GetReservation(ctx, nil, res.ReservationID)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	require.NoError(t, tx.Rollback())
	_, err = s.GetReservation(ctx, nil, res.ReservationID)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestMemoryStore_CommitRejectsOverlap(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()

	require.NoError(t, s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))))

	err := s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 14), calendar.Date(2025, 6, 16)))
	assert.ErrorIs(t, err, domain.ErrReservationConflict)

	// back-to-back is fine
	err = s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 15), calendar.Date(2025, 6, 20)))
	assert.NoError(t, err)

	all, err := s.ListReservations(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_CancelledDoesNotBlock(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()

	first := pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))
	require.NoError(t, s.SaveReservation(ctx, nil, first))
	first.Status = domain.StatusCancelled
	require.NoError(t, s.SaveReservation(ctx, nil, first))

	require.NoError(t, s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))))

	overlapping, err := s.FindOverlapping(ctx, nil, unitID, calendar.Date(2025, 6, 12), calendar.Date(2025, 6, 13), "")
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, domain.StatusPending, overlapping[0].Status)
}

func TestMemoryStore_CommitAfterCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx, cancel := context.WithCancel(context.Background())

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	res := pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))
	require.NoError(t, s.SaveReservation(ctx, tx, res))
	cancel()

	err = tx.Commit()
	assert.ErrorIs(t, err, context.Canceled)

	exists, err := s.ExistsReservation(context.Background(), nil, res.ReservationID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()

	u, err := s.GetUnit(ctx, nil, unitID)
	require.NoError(t, err)
	u.Occupancy = domain.OccupancyOccupied

	again, err := s.GetUnit(ctx, nil, unitID)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyAvailable, again.Occupancy)
}

func TestMemoryStore_UnitCodeUnique(t *testing.T) {
	s := NewMemoryStore()
	seedUnit(t, s, "CH-01")

	_, err := s.CreateUnit(context.Background(), nil, &domain.Unit{Name: "Other", Code: "ch-01", Capacity: 2})
	assert.ErrorIs(t, err, domain.ErrUnitCodeTaken)
}

func TestMemoryStore_DeleteReferencedUnit(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()
	require.NoError(t, s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))))

	err := s.DeleteUnit(ctx, nil, unitID)
	assert.ErrorIs(t, err, domain.ErrUnitInUse)

	err = s.DeleteUnit(ctx, nil, "nope")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestMemoryStore_ListUnitsFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.CreateUnit(ctx, nil, &domain.Unit{Name: "Pinheiro", Code: "CH-02", NightlyRate: domain.MoneyFromCents(25000), Capacity: 2})
	require.NoError(t, err)
	_, err = s.CreateUnit(ctx, nil, &domain.Unit{Name: "Araucária", Code: "CH-01", NightlyRate: domain.MoneyFromCents(45000), Capacity: 6})
	require.NoError(t, err)

	all, err := s.ListUnits(ctx, nil, UnitFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "CH-01", all[0].Code)

	max := domain.MoneyFromCents(30000)
	cheap, err := s.ListUnits(ctx, nil, UnitFilter{MaxRate: &max})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Pinheiro", cheap[0].Name)

	big, err := s.ListUnits(ctx, nil, UnitFilter{MinCapacity: 4, Search: "arau"})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, "CH-01", big[0].Code)
}

func TestMemoryStore_FindByGuestMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()
	require.NoError(t, s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15))))
	require.NoError(t, s.SaveReservation(ctx, nil, pending(unitID, calendar.Date(2025, 8, 1), calendar.Date(2025, 8, 3))))

	out, err := s.FindByGuest(ctx, nil, "guest-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, calendar.Date(2025, 8, 1), out[0].CheckIn)
}

func TestMemoryStore_LockUnitSerialises(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.LockUnit(ctx, first, "unit-1"))
	// reentrant within the same tx
	require.NoError(t, s.LockUnit(ctx, first, "unit-1"))

	second, err := s.Begin(ctx)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err = s.LockUnit(waitCtx, second, "unit-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, first.Commit())
	require.NoError(t, s.LockUnit(ctx, second, "unit-1"))
	require.NoError(t, second.Rollback())
}

func TestMemoryStore_ConcurrentWritersOneWins(t *testing.T) {
	s := NewMemoryStore()
	unitID := seedUnit(t, s, "CH-01")
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = WithinTx(ctx, s, func(tx Tx) error {
				if err := s.LockUnit(ctx, tx, unitID); err != nil {
					return err
				}
				found, err := s.FindOverlapping(ctx, tx, unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15), "")
				if err != nil {
					return err
				}
				if len(found) > 0 {
					return domain.ErrReservationConflict
				}
				return s.SaveReservation(ctx, tx, pending(unitID, calendar.Date(2025, 6, 10), calendar.Date(2025, 6, 15)))
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrReservationConflict)
	}
	assert.Equal(t, 1, ok)
}

func TestMemoryStore_ForeignTx(t *testing.T) {
	a, b := NewMemoryStore(), NewMemoryStore()
	tx, err := a.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = b.ListReservations(context.Background(), tx)
	assert.ErrorIs(t, err, ErrForeignTx)
}
