package repositories

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// OperationReader looks up operations that were already applied.
type OperationReader interface {
	// FindAppliedOperation returns apperrors.ErrNotFound when the id is unused.
	FindAppliedOperation(ctx context.Context, operationID string) (*domain.AppliedOperation, error)
}

// OperationWriter records an applied operation in the same unit as its effects.
type OperationWriter interface {
	// RecordOperation fails with apperrors.ErrDuplicate when the id was already recorded.
	RecordOperation(ctx context.Context, op domain.AppliedOperation) error
}

// IdempotencyCache is an optional fast path in front of the operations table.
// A miss is never an error; the store stays authoritative.
type IdempotencyCache interface {
	Get(ctx context.Context, ownerID, operationID string) (*domain.AppliedOperation, bool, error)
	Put(ctx context.Context, op domain.AppliedOperation) error
}
