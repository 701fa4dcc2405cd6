package pgsql

import (
	"context"
	"fmt"

	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lockTimeout bounds how long a unit waits for a row lock before giving up
// with a retryable conflict.
const lockTimeout = "5s"

// pgxLedgerTx implements portsrepo.LedgerTx on one pgx transaction.
type pgxLedgerTx struct {
	*accountRepository
	*categoryRepository
	*entryRepository
	*operationRepository
}

func newLedgerTx(db dbtx) *pgxLedgerTx {
	return &pgxLedgerTx{
		accountRepository:   &accountRepository{db: db},
		categoryRepository:  &categoryRepository{db: db},
		entryRepository:     &entryRepository{db: db},
		operationRepository: &operationRepository{db: db},
	}
}

var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

// PgxLedgerStore is the PostgreSQL LedgerStore. Reads outside a unit go
// straight to the pool.
type PgxLedgerStore struct {
	BaseRepository
	*pgxLedgerTx
}

// NewLedgerStore creates a LedgerStore backed by pool.
func NewLedgerStore(pool *pgxpool.Pool) *PgxLedgerStore {
	return &PgxLedgerStore{
		BaseRepository: BaseRepository{Pool: pool},
		pgxLedgerTx:    newLedgerTx(pool),
	}
}

var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// WithinTx runs fn inside one READ COMMITTED transaction. Account rows are
// locked explicitly by fn, so a stronger isolation level is not needed.
func (s *PgxLedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockTimeout)); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	if err := fn(ctx, newLedgerTx(tx)); err != nil {
		return mapPgError(err)
	}
	return s.Commit(ctx, tx)
}
