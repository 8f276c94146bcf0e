package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresTxManager begins *sql.Tx transactions.
type PostgresTxManager struct {
	db *sql.DB
}

func NewPostgresTxManager(db *sql.DB) *PostgresTxManager {
	return &PostgresTxManager{db: db}
}

var _ TxManager = (*PostgresTxManager)(nil)

func (m *PostgresTxManager) Begin(ctx context.Context) (Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

type pgTx struct {
	tx    *sql.Tx
	mu    sync.Mutex
	hooks []func()
	done  bool
}

func (t *pgTx) Commit() error {
	err := t.tx.Commit()
	t.finish()
	return err
}

func (t *pgTx) Rollback() error {
	err := t.tx.Rollback()
	t.finish()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *pgTx) OnFinish(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

func (t *pgTx) finish() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	hooks := t.hooks
	t.hooks = nil
	t.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// pick returns the tx's connection, or db when tx is nil.
func pick(db *sql.DB, tx Tx) (querier, error) {
	if tx == nil {
		return db, nil
	}
	pt, ok := tx.(*pgTx)
	if !ok {
		return nil, ErrForeignTx
	}
	return pt.tx, nil
}

// PostgresUnitLocker takes a transaction-scoped advisory lock per unit.
// Postgres releases it on commit or rollback.
type PostgresUnitLocker struct{}

func NewPostgresUnitLocker() *PostgresUnitLocker { return &PostgresUnitLocker{} }

var _ UnitLocker = (*PostgresUnitLocker)(nil)

func (PostgresUnitLocker) LockUnit(ctx context.Context, tx Tx, unitID string) error {
	if tx == nil {
		return fmt.Errorf("lock unit %s: a transaction is required", unitID)
	}
	pt, ok := tx.(*pgTx)
	if !ok {
		return ErrForeignTx
	}
	if _, err := pt.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "unit:"+unitID); err != nil {
		return fmt.Errorf("failed to lock unit %s: %w", unitID, err)
	}
	return nil
}

// Postgres SQLSTATEs we translate.
const (
	pgExclusionViolation  = "23P01"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
