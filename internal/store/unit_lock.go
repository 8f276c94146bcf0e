package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lodgfy-booking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const unitLockPrefix = "lodgfy:lock:unit:"

// RedisUnitLocker takes a per-unit lease in Redis so several booking instances
// serialise writes to the same unit. The lease is released when the transaction
// finishes; TTL bounds how long a crashed holder can block others.
// When next is set its lock is taken after the lease.
type RedisUnitLocker struct {
	kv     KV
	ttl    time.Duration
	retry  time.Duration
	next   repository.UnitLocker
	logger *zap.Logger

	mu   sync.Mutex
	held map[repository.Tx]map[string]bool
}

func NewRedisUnitLocker(kv KV, ttl time.Duration, next repository.UnitLocker, logger *zap.Logger) *RedisUnitLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisUnitLocker{
		kv:     kv,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		next:   next,
		logger: logger,
		held:   make(map[repository.Tx]map[string]bool),
	}
}

var _ repository.UnitLocker = (*RedisUnitLocker)(nil)

func (l *RedisUnitLocker) LockUnit(ctx context.Context, tx repository.Tx, unitID string) error {
	if tx == nil {
		return fmt.Errorf("lock unit %s: a transaction is required", unitID)
	}
	if l.holds(tx, unitID) {
		return nil
	}

	key := unitLockPrefix + unitID
	token := uuid.NewString()
	for {
		ok, err := l.kv.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return fmt.Errorf("failed to lock unit %s: %w", unitID, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("lock unit %s: %w", unitID, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	l.mu.Lock()
	units := l.held[tx]
	if units == nil {
		units = make(map[string]bool)
		l.held[tx] = units
		tx.OnFinish(func() { l.forget(tx) })
	}
	units[unitID] = true
	l.mu.Unlock()

	tx.OnFinish(func() { l.release(key, token) })

	if l.next != nil {
		return l.next.LockUnit(ctx, tx, unitID)
	}
	return nil
}

func (l *RedisUnitLocker) holds(tx repository.Tx, unitID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[tx][unitID]
}

func (l *RedisUnitLocker) forget(tx repository.Tx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, tx)
}

// release runs after the request context may be gone.
func (l *RedisUnitLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok, err := l.kv.DeleteIfEquals(ctx, key, token)
	if err != nil {
		l.logger.Warn("Failed to release unit lock", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok {
		l.logger.Warn("Unit lock expired before release", zap.String("key", key))
	}
}
