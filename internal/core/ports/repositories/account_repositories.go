package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// AccountReader defines read operations for account data.
// Accounts and categories are maintained by other collaborators; the engine only reads them
// and owns the balance column.
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccountsByOwner retrieves every account of an owner ordered by id.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
}

// CategoryReader defines read operations for categories.
type CategoryReader interface {
	FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error)
}

// AccountTransactionSupport defines account operations that are only valid inside an atomic unit.
type AccountTransactionSupport interface {
	// LockAccounts selects accounts and locks them for the rest of the unit.
	// Locks are taken in ascending id order. A missing id yields apperrors.ErrNotFound.
	LockAccounts(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// AdjustAccountBalances adds the given deltas to the locked accounts' balances.
	AdjustAccountBalances(ctx context.Context, deltas map[string]int64, userID string, now time.Time) error

	// SetAccountBalance overwrites a locked account's balance.
	SetAccountBalance(ctx context.Context, accountID string, balance int64, userID string, now time.Time) error
}
