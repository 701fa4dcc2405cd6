package repositories

import (
	"context"
)

// LedgerTx is the view of the stores inside one atomic unit. Every read sees the
// unit's own writes; nothing is visible to other units until the unit commits.
type LedgerTx interface {
	AccountReader
	CategoryReader
	EntryReader
	OperationReader
	AccountTransactionSupport
	EntryWriter
	OperationWriter
}

// UnitOfWork runs fn as one atomic unit. If fn returns an error every change made
// through tx is discarded. Serialization conflicts surface as
// apperrors.ErrConcurrentModification.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerStore combines the unit of work with non-transactional reads.
type LedgerStore interface {
	UnitOfWork
	AccountReader
	CategoryReader
	EntryReader
	OperationReader
}
