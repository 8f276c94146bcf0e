package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore keeps units and reservations in process memory. Used when DB is not
// available and in tests.
//
// Writes inside a Tx are staged and applied atomically by Commit, which also enforces
// the same rules Postgres does: no overlapping blocking reservations per unit,
// unique unit codes, and no deleting a unit that reservations still reference.
// LockUnit hands out per-unit locks held until the Tx finishes.
type MemoryStore struct {
	mu           sync.RWMutex
	units        map[string]*domain.Unit
	reservations map[string]*domain.Reservation

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		units:        make(map[string]*domain.Unit),
		reservations: make(map[string]*domain.Reservation),
		locks:        make(map[string]chan struct{}),
		now:          time.Now,
	}
}

var (
	_ TxManager        = (*MemoryStore)(nil)
	_ UnitLocker       = (*MemoryStore)(nil)
	_ UnitStore        = (*MemoryStore)(nil)
	_ ReservationStore = (*MemoryStore)(nil)
)

// ---- transactions ----

type memTx struct {
	store *MemoryStore
	ctx   context.Context

	units        map[string]*domain.Unit // nil value = deleted
	reservations map[string]*domain.Reservation

	mu    sync.Mutex
	hooks []func()
	held  map[string]bool
	done  bool
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.newTx(ctx), nil
}

func (s *MemoryStore) newTx(ctx context.Context) *memTx {
	return &memTx{
		store:        s,
		ctx:          ctx,
		units:        make(map[string]*domain.Unit),
		reservations: make(map[string]*domain.Reservation),
		held:         make(map[string]bool),
	}
}

func (t *memTx) OnFinish(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

func (t *memTx) finish() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	hooks := t.hooks
	t.hooks = nil
	t.mu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

func (t *memTx) isDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *memTx) Rollback() error {
	t.finish()
	return nil
}

// Commit applies staged writes unless the request context is gone.
func (t *memTx) Commit() error {
	if t.isDone() {
		return ErrTxDone
	}
	defer t.finish()
	if err := t.ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(t); err != nil {
		return err
	}
	for id, u := range t.units {
		if u == nil {
			delete(s.units, id)
			continue
		}
		s.units[id] = u
	}
	for id, r := range t.reservations {
		if r == nil {
			delete(s.reservations, id)
			continue
		}
		s.reservations[id] = r
	}
	return nil
}

// checkLocked validates the state t would produce. Caller holds s.mu.
func (s *MemoryStore) checkLocked(t *memTx) error {
	unit := func(id string) *domain.Unit {
		if u, ok := t.units[id]; ok {
			return u
		}
		return s.units[id]
	}

	for id, r := range t.reservations {
		if r == nil {
			continue
		}
		if unit(r.UnitID) == nil {
			return fmt.Errorf("unit %s: %w", r.UnitID, domain.ErrUnitNotFound)
		}
		if !r.Status.IsBlocking() {
			continue
		}
		for _, other := range s.mergedReservations(t) {
			if other.ReservationID == id || other.UnitID != r.UnitID || !other.Status.IsBlocking() {
				continue
			}
			if r.Range().Overlaps(other.Range()) {
				return &domain.ConflictError{UnitID: r.UnitID, Conflicting: []string{other.ReservationID}}
			}
		}
	}

	for id, u := range t.units {
		if u == nil {
			for _, r := range s.mergedReservations(t) {
				if r.UnitID == id {
					return fmt.Errorf("unit %s is referenced by reservations: %w", id, domain.ErrUnitInUse)
				}
			}
			continue
		}
		for otherID := range s.units {
			if otherID == id {
				continue
			}
			other := unit(otherID)
			if other != nil && strings.EqualFold(other.Code, u.Code) {
				return fmt.Errorf("code %s: %w", u.Code, domain.ErrUnitCodeTaken)
			}
		}
		for otherID, other := range t.units {
			if otherID != id && other != nil && strings.EqualFold(other.Code, u.Code) {
				return fmt.Errorf("code %s: %w", u.Code, domain.ErrUnitCodeTaken)
			}
		}
	}
	return nil
}

// mergedReservations committed state overlaid with t's staged writes. Caller holds s.mu.
func (s *MemoryStore) mergedReservations(t *memTx) []*domain.Reservation {
	out := make([]*domain.Reservation, 0, len(s.reservations)+len(t.reservations))
	for id, r := range s.reservations {
		if t != nil {
			if _, staged := t.reservations[id]; staged {
				continue
			}
		}
		out = append(out, r)
	}
	if t != nil {
		for _, r := range t.reservations {
			if r != nil {
				out = append(out, r)
			}
		}
	}
	return out
}

func (s *MemoryStore) mergedUnits(t *memTx) []*domain.Unit {
	out := make([]*domain.Unit, 0, len(s.units))
	for id, u := range s.units {
		if t != nil {
			if _, staged := t.units[id]; staged {
				continue
			}
		}
		out = append(out, u)
	}
	if t != nil {
		for _, u := range t.units {
			if u != nil {
				out = append(out, u)
			}
		}
	}
	return out
}

func (s *MemoryStore) txOf(tx Tx) (*memTx, error) {
	if tx == nil {
		return nil, nil
	}
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, ErrForeignTx
	}
	if mt.isDone() {
		return nil, ErrTxDone
	}
	return mt, nil
}

// write runs fn inside tx, or inside a private transaction committed right away.
func (s *MemoryStore) write(ctx context.Context, tx Tx, fn func(t *memTx) error) error {
	mt, err := s.txOf(tx)
	if err != nil {
		return err
	}
	if mt != nil {
		return fn(mt)
	}
	own := s.newTx(ctx)
	if err := fn(own); err != nil {
		own.Rollback()
		return err
	}
	return own.Commit()
}

// ---- locking ----

// LockUnit blocks until the unit's lock is free or ctx is done. Re-locking within the
// same Tx is a no-op.
func (s *MemoryStore) LockUnit(ctx context.Context, tx Tx, unitID string) error {
	mt, err := s.txOf(tx)
	if err != nil {
		return err
	}
	if mt == nil {
		return fmt.Errorf("lock unit %s: a transaction is required", unitID)
	}
	mt.mu.Lock()
	already := mt.held[unitID]
	mt.mu.Unlock()
	if already {
		return nil
	}

	s.locksMu.Lock()
	ch, ok := s.locks[unitID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[unitID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock unit %s: %w", unitID, ctx.Err())
	}

	mt.mu.Lock()
	mt.held[unitID] = true
	mt.mu.Unlock()
	mt.OnFinish(func() { <-ch })
	return nil
}

// ---- units ----

func cloneUnit(u *domain.Unit) *domain.Unit {
	c := *u
	return &c
}

func (s *MemoryStore) lookupUnit(t *memTx, unitID string) *domain.Unit {
	if t != nil {
		if u, ok := t.units[unitID]; ok {
			return u
		}
	}
	return s.units[unitID]
}

func (s *MemoryStore) GetUnit(_ context.Context, tx Tx, unitID string) (*domain.Unit, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.lookupUnit(mt, unitID)
	if u == nil {
		return nil, fmt.Errorf("unit %s: %w", unitID, domain.ErrUnitNotFound)
	}
	return cloneUnit(u), nil
}

func (s *MemoryStore) UnitExists(ctx context.Context, tx Tx, unitID string) (bool, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupUnit(mt, unitID) != nil, nil
}

func (s *MemoryStore) SaveUnit(ctx context.Context, tx Tx, unit *domain.Unit) error {
	return s.write(ctx, tx, func(t *memTx) error {
		s.mu.RLock()
		existing := s.lookupUnit(t, unit.UnitID)
		s.mu.RUnlock()
		if existing == nil {
			return fmt.Errorf("unit %s: %w", unit.UnitID, domain.ErrUnitNotFound)
		}
		unit.CreatedAt = existing.CreatedAt
		unit.UpdatedAt = s.now().UTC()
		t.units[unit.UnitID] = cloneUnit(unit)
		return nil
	})
}

func (s *MemoryStore) CreateUnit(ctx context.Context, tx Tx, unit *domain.Unit) (string, error) {
	err := s.write(ctx, tx, func(t *memTx) error {
		if unit.UnitID == "" {
			unit.UnitID = uuid.NewString()
		}
		if unit.Occupancy == "" {
			unit.Occupancy = domain.OccupancyAvailable
		}
		s.mu.RLock()
		dup := s.lookupUnit(t, unit.UnitID) != nil
		s.mu.RUnlock()
		if dup {
			return fmt.Errorf("unit %s already exists: %w", unit.UnitID, domain.ErrInvalidInput)
		}
		now := s.now().UTC()
		unit.CreatedAt, unit.UpdatedAt = now, now
		t.units[unit.UnitID] = cloneUnit(unit)
		return nil
	})
	if err != nil {
		return "", err
	}
	return unit.UnitID, nil
}

func (s *MemoryStore) ListUnits(_ context.Context, tx Tx, filter UnitFilter) ([]*domain.Unit, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Unit{}
	for _, u := range s.mergedUnits(mt) {
		if filter.MaxRate != nil && u.NightlyRate > *filter.MaxRate {
			continue
		}
		if filter.MinCapacity > 0 && u.Capacity < filter.MinCapacity {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Code), search) {
			continue
		}
		out = append(out, cloneUnit(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) FindUnitByCode(_ context.Context, tx Tx, code string) (*domain.Unit, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.mergedUnits(mt) {
		if strings.EqualFold(u.Code, code) {
			return cloneUnit(u), nil
		}
	}
	return nil, fmt.Errorf("unit code %s: %w", code, domain.ErrUnitNotFound)
}

func (s *MemoryStore) DeleteUnit(ctx context.Context, tx Tx, unitID string) error {
	return s.write(ctx, tx, func(t *memTx) error {
		s.mu.RLock()
		existing := s.lookupUnit(t, unitID)
		s.mu.RUnlock()
		if existing == nil {
			return fmt.Errorf("unit %s: %w", unitID, domain.ErrUnitNotFound)
		}
		t.units[unitID] = nil
		return nil
	})
}

// ---- reservations ----

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	return &c
}

func (s *MemoryStore) lookupReservation(t *memTx, id string) *domain.Reservation {
	if t != nil {
		if r, ok := t.reservations[id]; ok {
			return r
		}
	}
	return s.reservations[id]
}

func (s *MemoryStore) GetReservation(_ context.Context, tx Tx, reservationID string) (*domain.Reservation, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.lookupReservation(mt, reservationID)
	if r == nil {
		return nil, fmt.Errorf("reservation %s: %w", reservationID, domain.ErrReservationNotFound)
	}
	return cloneReservation(r), nil
}

func (s *MemoryStore) ExistsReservation(_ context.Context, tx Tx, reservationID string) (bool, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupReservation(mt, reservationID) != nil, nil
}

func (s *MemoryStore) SaveReservation(ctx context.Context, tx Tx, res *domain.Reservation) error {
	return s.write(ctx, tx, func(t *memTx) error {
		now := s.now().UTC()
		res.CheckIn = calendar.Truncate(res.CheckIn)
		res.CheckOut = calendar.Truncate(res.CheckOut)
		if res.ReservationID == "" {
			res.ReservationID = uuid.NewString()
			res.CreatedAt = now
		} else {
			s.mu.RLock()
			existing := s.lookupReservation(t, res.ReservationID)
			s.mu.RUnlock()
			if existing == nil {
				return fmt.Errorf("reservation %s: %w", res.ReservationID, domain.ErrReservationNotFound)
			}
			res.CreatedAt = existing.CreatedAt
		}
		res.UpdatedAt = now
		t.reservations[res.ReservationID] = cloneReservation(res)
		return nil
	})
}

func (s *MemoryStore) DeleteReservation(ctx context.Context, tx Tx, reservationID string) error {
	return s.write(ctx, tx, func(t *memTx) error {
		s.mu.RLock()
		existing := s.lookupReservation(t, reservationID)
		s.mu.RUnlock()
		if existing == nil {
			return fmt.Errorf("reservation %s: %w", reservationID, domain.ErrReservationNotFound)
		}
		t.reservations[reservationID] = nil
		return nil
	})
}

func (s *MemoryStore) filterReservations(tx Tx, keep func(r *domain.Reservation) bool, less func(a, b *domain.Reservation) bool) ([]*domain.Reservation, error) {
	mt, err := s.txOf(tx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Reservation{}
	for _, r := range s.mergedReservations(mt) {
		if keep(r) {
			out = append(out, cloneReservation(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func byCheckInAsc(a, b *domain.Reservation) bool {
	if !a.CheckIn.Equal(b.CheckIn) {
		return a.CheckIn.Before(b.CheckIn)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func byCheckInDesc(a, b *domain.Reservation) bool {
	if !a.CheckIn.Equal(b.CheckIn) {
		return a.CheckIn.After(b.CheckIn)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (s *MemoryStore) FindOverlapping(_ context.Context, tx Tx, unitID string, checkIn, checkOut time.Time, excludeID string) ([]*domain.Reservation, error) {
	stay := calendar.NewRange(checkIn, checkOut)
	return s.filterReservations(tx, func(r *domain.Reservation) bool {
		return r.UnitID == unitID &&
			r.Status.IsBlocking() &&
			(excludeID == "" || r.ReservationID != excludeID) &&
			r.Range().Overlaps(stay)
	}, byCheckInAsc)
}

func (s *MemoryStore) FindByGuest(_ context.Context, tx Tx, guestID string) ([]*domain.Reservation, error) {
	return s.filterReservations(tx, func(r *domain.Reservation) bool { return r.GuestID == guestID }, byCheckInDesc)
}

func (s *MemoryStore) FindByUnit(_ context.Context, tx Tx, unitID string) ([]*domain.Reservation, error) {
	return s.filterReservations(tx, func(r *domain.Reservation) bool { return r.UnitID == unitID }, byCheckInAsc)
}

func (s *MemoryStore) FindByStatus(_ context.Context, tx Tx, status domain.ReservationStatus) ([]*domain.Reservation, error) {
	return s.filterReservations(tx, func(r *domain.Reservation) bool { return r.Status == status }, byCheckInAsc)
}

func (s *MemoryStore) ListReservations(_ context.Context, tx Tx) ([]*domain.Reservation, error) {
	return s.filterReservations(tx, func(*domain.Reservation) bool { return true }, byCheckInAsc)
}

func (s *MemoryStore) CountActiveByUnit(ctx context.Context, tx Tx, unitID string) (int, error) {
	active, err := s.filterReservations(tx, func(r *domain.Reservation) bool {
		return r.UnitID == unitID && r.Status.IsBlocking()
	}, byCheckInAsc)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}
