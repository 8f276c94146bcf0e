package service

import (
	"context"
	"testing"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitService_CreateRejectsDuplicateCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.units.CreateUnit(context.Background(), UnitRequest{Name: "Copy", Code: "CH-01", Capacity: 2})
	assert.ErrorIs(t, err, domain.ErrUnitCodeTaken)
}

func TestUnitService_CreateValidates(t *testing.T) {
	f := newFixture(t)

	_, err := f.units.CreateUnit(context.Background(), UnitRequest{Name: "", Code: "CH-09", Capacity: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.units.CreateUnit(context.Background(), UnitRequest{Name: "Zero", Code: "CH-09", Capacity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.units.CreateUnit(context.Background(), UnitRequest{Name: "Neg", Code: "CH-09", Capacity: 1, NightlyRate: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUnitService_RateBoundedAndTotalNeverWraps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.units.CreateUnit(ctx, UnitRequest{Name: "Huge", Code: "HG-01", Capacity: 2, NightlyRate: domain.MaxMoney + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// 50000000000000000.00 a night would wrap int64 cents over two nights
	big := domain.Money(5000000000000000000)
	_, err = f.units.UpdateUnit(ctx, f.unitID, UnitRequest{Name: "Huge", Code: "CH-01", Capacity: 2, NightlyRate: big})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	top := f.addUnit(t, "TOP-01", int64(domain.MaxMoney))
	_, err = f.create(top, calendar.Date(2025, 3, 1), calendar.Date(2025, 3, 3))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	items, err := f.svc.ListByUnit(ctx, top)
	require.NoError(t, err)
	assert.Empty(t, items)

	one, err := f.create(top, calendar.Date(2025, 3, 1), calendar.Date(2025, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, domain.MaxMoney, one.TotalPrice)
	assert.True(t, one.TotalPrice > 0)
}

func TestUnitService_UpdateKeepsOccupancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.create(f.unitID, calendar.Date(2025, 1, 5), calendar.Date(2025, 1, 7))
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, res.ReservationID)
	require.NoError(t, err)

	u, err := f.units.UpdateUnit(ctx, f.unitID, UnitRequest{
		Name: "Chalet Renamed", Code: "CH-01", NightlyRate: domain.MoneyFromCents(12000), Capacity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Chalet Renamed", u.Name)
	assert.Equal(t, domain.OccupancyOccupied, u.Occupancy)

	// existing reservation keeps the price it was booked at
	got, err := f.svc.GetReservation(ctx, res.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", got.TotalPrice.String())

	other := f.addUnit(t, "CH-02", 10000)
	_, err = f.units.UpdateUnit(ctx, other, UnitRequest{Name: "Dup", Code: "CH-01", Capacity: 2})
	assert.ErrorIs(t, err, domain.ErrUnitCodeTaken)
}

func TestUnitService_DeleteInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.create(f.unitID, calendar.Date(2025, 1, 5), calendar.Date(2025, 1, 7))
	require.NoError(t, err)

	err = f.units.DeleteUnit(ctx, f.unitID)
	assert.ErrorIs(t, err, domain.ErrUnitInUse)

	require.NoError(t, f.svc.DeleteReservation(ctx, res.ReservationID))
	require.NoError(t, f.units.DeleteUnit(ctx, f.unitID))

	_, err = f.units.GetUnit(ctx, f.unitID)
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
	assert.ErrorIs(t, f.units.DeleteUnit(ctx, f.unitID), domain.ErrUnitNotFound)
}

func TestUnitService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUnit(t, "LX-01", 40000)

	max := domain.MoneyFromCents(15000)
	cheap, err := f.units.SearchUnits(ctx, SearchUnitsRequest{MaxRate: &max})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "CH-01", cheap[0].Code)

	byName, err := f.units.SearchUnits(ctx, SearchUnitsRequest{Query: "lx"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "LX-01", byName[0].Code)

	all, err := f.units.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUnitService_FindAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addUnit(t, "CH-02", 15000)

	_, err := f.create(f.unitID, calendar.Date(2025, 2, 10), calendar.Date(2025, 2, 14))
	require.NoError(t, err)

	free, err := f.units.FindAvailableUnits(ctx, FindAvailableUnitsRequest{
		Guests: 2, CheckIn: calendar.Date(2025, 2, 12), CheckOut: calendar.Date(2025, 2, 13),
	})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, second, free[0].UnitID)

	// departure day is free for the next arrival
	free, err = f.units.FindAvailableUnits(ctx, FindAvailableUnitsRequest{
		Guests: 2, CheckIn: calendar.Date(2025, 2, 14), CheckOut: calendar.Date(2025, 2, 15),
	})
	require.NoError(t, err)
	assert.Len(t, free, 2)

	free, err = f.units.FindAvailableUnits(ctx, FindAvailableUnitsRequest{
		Guests: 10, CheckIn: calendar.Date(2025, 2, 14), CheckOut: calendar.Date(2025, 2, 15),
	})
	require.NoError(t, err)
	assert.Empty(t, free)

	_, err = f.units.FindAvailableUnits(ctx, FindAvailableUnitsRequest{
		Guests: 0, CheckIn: calendar.Date(2025, 2, 14), CheckOut: calendar.Date(2025, 2, 15),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUnitService_CheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.create(f.unitID, calendar.Date(2025, 2, 10), calendar.Date(2025, 2, 14))
	require.NoError(t, err)

	busy, err := f.units.CheckAvailability(ctx, f.unitID, calendar.Date(2025, 2, 1), calendar.Date(2025, 2, 20))
	require.NoError(t, err)
	assert.False(t, busy.Available)
	assert.Equal(t, []string{res.ReservationID}, busy.Conflicting)
	assert.Equal(t, 19, busy.Nights)

	free, err := f.units.CheckAvailability(ctx, f.unitID, calendar.Date(2025, 2, 1), calendar.Date(2025, 2, 10))
	require.NoError(t, err)
	assert.True(t, free.Available)

	_, err = f.units.CheckAvailability(ctx, "no-unit", calendar.Date(2025, 2, 1), calendar.Date(2025, 2, 10))
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestUnitService_ReleaseCleaning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.units.ReleaseCleaning(ctx, f.unitID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	res, err := f.create(f.unitID, calendar.Date(2025, 1, 1), calendar.Date(2025, 1, 2))
	require.NoError(t, err)
	_, err = f.svc.ConfirmReservation(ctx, res.ReservationID)
	require.NoError(t, err)
	_, err = f.svc.CompleteReservation(ctx, res.ReservationID)
	require.NoError(t, err)

	u, err := f.units.ReleaseCleaning(ctx, f.unitID)
	require.NoError(t, err)
	assert.Equal(t, domain.OccupancyAvailable, u.Occupancy)
}

func TestAvailabilityChecker_RejectsEmptyRange(t *testing.T) {
	f := newFixture(t)
	checker := NewAvailabilityChecker(f.store)

	_, err := checker.HasConflict(context.Background(), nil, f.unitID, calendar.Date(2025, 1, 3), calendar.Date(2025, 1, 3), "")
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}
