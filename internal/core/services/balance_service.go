package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
)

// balanceService implements the balance reconciler.
type balanceService struct {
	*ledgerEngine
}

// NewBalanceService creates the balance reconciler.
func NewBalanceService(store portsrepo.LedgerStore, options ...EngineOption) portssvc.BalanceSvcFacade {
	return &balanceService{ledgerEngine: newLedgerEngine(store, options...)}
}

// RecomputeBalance locks the account, sums its completed non-provisioned entries and
// overwrites the stored balance. Running it twice in a row changes nothing the second time.
func (s *balanceService) RecomputeBalance(ctx context.Context, ownerID, accountID string) (int64, error) {
	var balance int64
	err := s.withinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := s.AuthorizeOwner(ctx, ownerID); err != nil {
			return err
		}
		accounts, err := s.lockOwnedAccounts(ctx, tx, ownerID, accountID)
		if err != nil {
			return err
		}
		balance, err = s.recomputeInTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if stored := accounts[accountID].Balance; stored != balance {
			s.LogWarn(ctx, "Balance drift corrected",
				slog.String("account_id", accountID),
				slog.Int64("stored", stored),
				slog.Int64("computed", balance))
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to recompute balance", slog.String("account_id", accountID))
		return 0, err
	}
	return balance, nil
}

// ListBalances reads the stored balances of ownerID's accounts without locking them.
func (s *balanceService) ListBalances(ctx context.Context, ownerID string) (map[string]int64, error) {
	if err := s.AuthorizeOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list account balances")
		return nil, err
	}
	balances := make(map[string]int64, len(accounts))
	for _, acc := range accounts {
		balances[acc.AccountID] = acc.Balance
	}
	return balances, nil
}

// VerifyBalances reports every account of ownerID whose stored balance disagrees with its entries.
// It never writes.
func (s *balanceService) VerifyBalances(ctx context.Context, ownerID string) ([]domain.BalanceDrift, error) {
	if err := s.AuthorizeOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	accounts, err := s.store.ListAccountsByOwner(ctx, ownerID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts for balance verification")
		return nil, err
	}
	drifts := []domain.BalanceDrift{}
	for _, acc := range accounts {
		sum, err := s.store.SumRealizedByAccount(ctx, acc.AccountID)
		if err != nil {
			return nil, err
		}
		if sum != acc.Balance {
			drifts = append(drifts, domain.BalanceDrift{AccountID: acc.AccountID, Stored: acc.Balance, Computed: sum})
		}
	}
	return drifts, nil
}
