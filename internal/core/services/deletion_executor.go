package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// planDeletion loads the target's series and asks the domain planner what to remove.
func (e *ledgerEngine) planDeletion(ctx context.Context, tx portsrepo.LedgerTx, ownerID, entryID string, scope domain.DeletionScope) (*domain.Entry, domain.DeletionPlan, error) {
	target, err := loadOwnedEntry(ctx, tx, ownerID, entryID)
	if err != nil {
		return nil, domain.DeletionPlan{}, err
	}

	rootID := target.SeriesRootID()
	if rootID == "" {
		// A stopped recurring root no longer looks like a root on its own.
		members, err := tx.FindSeriesMembers(ctx, target.EntryID)
		if err != nil {
			return nil, domain.DeletionPlan{}, err
		}
		if len(members) > 1 {
			rootID = target.EntryID
		}
	}

	var members []domain.Entry
	if rootID != "" {
		members, err = tx.FindSeriesMembers(ctx, rootID)
		if err != nil {
			return nil, domain.DeletionPlan{}, err
		}
		for _, m := range members {
			if m.OwnerID != ownerID {
				return nil, domain.DeletionPlan{}, fmt.Errorf("%w: series %s", apperrors.ErrNotFound, rootID)
			}
		}
	}

	plan, err := domain.PlanDeletion(*target, members, scope)
	if err != nil {
		return nil, domain.DeletionPlan{}, err
	}
	return target, plan, nil
}

// deleteInTx executes a scoped delete: plan, lock every affected account, re-plan
// under the locks, apply the plan and recompute each affected account.
func (e *ledgerEngine) deleteInTx(ctx context.Context, tx portsrepo.LedgerTx, ownerID, entryID string, scope domain.DeletionScope) (*dto.DeleteResult, error) {
	_, plan, err := e.planDeletion(ctx, tx, ownerID, entryID, scope)
	if err != nil {
		return nil, err
	}
	accounts, err := e.lockOwnedAccounts(ctx, tx, ownerID, plan.AffectedAccountIDs...)
	if err != nil {
		return nil, err
	}

	// Entries only change under their account's lock, so this view is stable.
	_, locked, err := e.planDeletion(ctx, tx, ownerID, entryID, scope)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(locked.AffectedAccountIDs, plan.AffectedAccountIDs) {
		return nil, fmt.Errorf("%w: entry %s changed while planning its deletion", apperrors.ErrConcurrentModification, entryID)
	}
	plan = locked

	// Re-link survivors before their old root disappears.
	if plan.PromoteRootID != "" {
		if err := e.relink(ctx, tx, plan.PromoteRootID, ""); err != nil {
			return nil, err
		}
		for _, id := range plan.ReparentIDs {
			if err := e.relink(ctx, tx, id, plan.PromoteRootID); err != nil {
				return nil, err
			}
		}
	}
	if plan.ClearTemplateID != "" {
		root, err := tx.FindEntryByID(ctx, plan.ClearTemplateID)
		if err != nil {
			return nil, err
		}
		root.IsTemplate = false
		e.stamp(ctx, root, false)
		if err := tx.UpdateEntry(ctx, *root); err != nil {
			return nil, err
		}
	}
	if err := tx.DeleteEntries(ctx, plan.DeleteEntryIDs); err != nil {
		return nil, err
	}

	balances := make(map[string]int64, len(plan.AffectedAccountIDs))
	for _, accountID := range plan.AffectedAccountIDs {
		balance, err := e.recomputeCheckedInTx(ctx, tx, accounts[accountID])
		if err != nil {
			return nil, err
		}
		balances[accountID] = balance
	}

	e.LogInfo(ctx, "Entries deleted",
		slog.String("entry_id", entryID),
		slog.String("scope", string(plan.Scope)),
		slog.Int("deleted", len(plan.DeleteEntryIDs)))

	return &dto.DeleteResult{
		Scope:             plan.Scope,
		DeletedEntryIDs:   plan.DeleteEntryIDs,
		ClearedTemplateID: plan.ClearTemplateID,
		ReclaimedRootID:   plan.ReclaimedRootID,
		PromotedRootID:    plan.PromoteRootID,
		Balances:          balances,
	}, nil
}

// recomputeCheckedInTx recomputes a locked account but refuses a result that the
// account rules would reject for an ordinary outflow of the same size.
func (e *ledgerEngine) recomputeCheckedInTx(ctx context.Context, tx portsrepo.LedgerTx, acc domain.Account) (int64, error) {
	sum, err := tx.SumRealizedByAccount(ctx, acc.AccountID)
	if err != nil {
		return 0, err
	}
	if err := acc.CheckBalanceChange(sum-acc.Balance, e.policy.AllowOverdraft); err != nil {
		return 0, err
	}
	if err := tx.SetAccountBalance(ctx, acc.AccountID, sum, callerID(ctx), e.now()); err != nil {
		return 0, err
	}
	return sum, nil
}

func (e *ledgerEngine) relink(ctx context.Context, tx portsrepo.LedgerTx, entryID, parentID string) error {
	entry, err := tx.FindEntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	entry.SeriesParentID = parentID
	e.stamp(ctx, entry, false)
	return tx.UpdateEntry(ctx, *entry)
}
