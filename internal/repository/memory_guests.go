package repository

import (
	"context"
	"fmt"
	"sync"

	"lodgfy-booking/internal/domain"
)

// MemoryGuestDirectory in-process directory for local runs and tests.
type MemoryGuestDirectory struct {
	mu     sync.RWMutex
	guests map[string]domain.Guest
}

func NewMemoryGuestDirectory(guests ...domain.Guest) *MemoryGuestDirectory {
	d := &MemoryGuestDirectory{guests: make(map[string]domain.Guest)}
	for _, g := range guests {
		d.guests[g.GuestID] = g
	}
	return d
}

var _ GuestDirectory = (*MemoryGuestDirectory)(nil)

// Put adds or replaces a guest.
func (d *MemoryGuestDirectory) Put(g domain.Guest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.guests[g.GuestID] = g
}

func (d *MemoryGuestDirectory) GuestExists(_ context.Context, guestID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.guests[guestID]
	return ok, nil
}

func (d *MemoryGuestDirectory) GetGuest(_ context.Context, guestID string) (*domain.Guest, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.guests[guestID]
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", guestID, domain.ErrGuestNotFound)
	}
	return &g, nil
}
