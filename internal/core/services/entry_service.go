package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/utils/pagination"
)

// entryService implements the single-entry engine.
type entryService struct {
	*ledgerEngine
}

// NewEntryService creates the single-entry engine.
func NewEntryService(store portsrepo.LedgerStore, options ...EngineOption) portssvc.EntrySvcFacade {
	return &entryService{ledgerEngine: newLedgerEngine(store, options...)}
}

// GetEntry returns an entry of ownerID.
func (s *entryService) GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	if err := s.AuthorizeOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	return loadOwnedEntry(ctx, s.store, ownerID, entryID)
}

const defaultPageSize = 50

// ListAccountEntries returns the page of entries after params.NextToken.
func (s *entryService) ListAccountEntries(ctx context.Context, ownerID, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	if err := s.AuthorizeOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	acc, err := s.store.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		return nil, err
	}
	if acc.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	var after *portsrepo.EntryCursor
	if params.NextToken != "" {
		cursorDate, cursorID, err := pagination.DecodeToken(params.NextToken)
		if err != nil {
			return nil, err
		}
		after = &portsrepo.EntryCursor{OccurredOn: cursorDate, EntryID: cursorID}
	}

	// One extra row tells whether another page follows.
	page, err := s.store.ListEntriesByAccount(ctx, accountID, after, limit+1)
	if err != nil {
		return nil, err
	}
	more := len(page) > limit
	if more {
		page = page[:limit]
	}

	res := &dto.ListEntriesResponse{Entries: dto.ToEntryResponses(page)}
	if more {
		last := page[len(page)-1]
		res.NextToken = pagination.EncodeToken(last.OccurredOn, last.EntryID)
	}
	return res, nil
}

// CreateEntry posts one income or expense. A completed entry moves the account
// balance in the same unit; a pending one only records the intent.
func (s *entryService) CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	entry, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpCreateEntry,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*domain.Entry, error) {
			return s.createEntryInTx(ctx, tx, req)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to create entry", slog.String("account_id", req.AccountID))
		return nil, err
	}
	s.LogInfo(ctx, "Entry created", slog.String("entry_id", entry.EntryID), slog.String("account_id", entry.AccountID))
	return entry, nil
}

func (s *entryService) createEntryInTx(ctx context.Context, tx portsrepo.LedgerTx, req dto.CreateEntryRequest) (*domain.Entry, error) {
	accounts, err := s.lockOwnedAccounts(ctx, tx, req.OwnerID, req.AccountID)
	if err != nil {
		return nil, err
	}
	acc := accounts[req.AccountID]
	if err := s.checkCategory(ctx, tx, req.OwnerID, req.CategoryID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	entryID := req.EntryID
	if entryID == "" {
		entryID = s.newID()
	}
	occurredOn := domain.DateOnly(req.OccurredOn)
	period, err := invoicePeriodFor(acc, occurredOn, req.InvoicePeriod)
	if err != nil {
		return nil, err
	}

	entry := domain.Entry{
		EntryID:       entryID,
		OwnerID:       req.OwnerID,
		Description:   req.Description,
		Amount:        domain.SignedAmount(req.Kind, req.Amount),
		OccurredOn:    occurredOn,
		Status:        status,
		Kind:          req.Kind,
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		IsProvisioned: req.IsProvisioned,
		InvoicePeriod: period,
	}
	s.stamp(ctx, &entry, true)

	if err := s.applyDeltas(ctx, tx, accounts, map[string]int64{acc.AccountID: entry.BalanceContribution()}); err != nil {
		return nil, err
	}
	if err := tx.InsertEntries(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// EditEntry applies a partial update. The old balance contribution is reversed and
// the new one applied in the same unit; changes to a transfer leg are mirrored onto its peer.
func (s *entryService) EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	entry, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpEditEntry,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*domain.Entry, error) {
			return s.editEntryInTx(ctx, tx, req)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to edit entry", slog.String("entry_id", req.EntryID))
		return nil, err
	}
	s.LogInfo(ctx, "Entry edited", slog.String("entry_id", entry.EntryID))
	return entry, nil
}

func (s *entryService) editEntryInTx(ctx context.Context, tx portsrepo.LedgerTx, req dto.EditEntryRequest) (*domain.Entry, error) {
	current, err := loadOwnedEntry(ctx, tx, req.OwnerID, req.EntryID)
	if err != nil {
		return nil, err
	}
	targetAccountID := current.AccountID
	if req.AccountID != nil {
		targetAccountID = *req.AccountID
	}
	accounts, err := s.lockOwnedAccounts(ctx, tx, req.OwnerID, current.AccountID, targetAccountID, current.CounterAccountID)
	if err != nil {
		return nil, err
	}

	// Re-read under the account locks.
	old, err := loadOwnedEntry(ctx, tx, req.OwnerID, req.EntryID)
	if err != nil {
		return nil, err
	}
	if old.AccountID != current.AccountID || old.CounterAccountID != current.CounterAccountID {
		return nil, fmt.Errorf("%w: entry %s moved while being edited", apperrors.ErrConcurrentModification, req.EntryID)
	}

	updated := *old
	if req.AccountID != nil && *req.AccountID != old.AccountID {
		if old.IsTransferLeg() {
			return nil, fmt.Errorf("%w: a transfer leg cannot change account", apperrors.ErrValidation)
		}
		if old.SeriesParentID != "" || old.IsTemplate {
			return nil, fmt.Errorf("%w: a series member cannot change account", apperrors.ErrValidation)
		}
		updated.AccountID = *req.AccountID
	}
	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, tx, req.OwnerID, *req.CategoryID); err != nil {
			return nil, err
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.Amount != nil {
		updated.Amount = domain.SignedAmount(old.Kind, *req.Amount)
	}
	if req.OccurredOn != nil {
		updated.OccurredOn = domain.DateOnly(*req.OccurredOn)
	}
	if req.Status != nil {
		if old.IsTemplate && *req.Status == domain.StatusCompleted {
			return nil, fmt.Errorf("%w: a recurring template never moves money", apperrors.ErrValidation)
		}
		updated.Status = *req.Status
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.IsProvisioned != nil {
		updated.IsProvisioned = *req.IsProvisioned
	}

	explicitPeriod := ""
	if req.InvoicePeriod != nil {
		explicitPeriod = *req.InvoicePeriod
	}
	if explicitPeriod != "" || req.OccurredOn != nil || updated.AccountID != old.AccountID {
		updated.InvoicePeriod, err = invoicePeriodFor(accounts[updated.AccountID], updated.OccurredOn, explicitPeriod)
		if err != nil {
			return nil, err
		}
	}
	s.stamp(ctx, &updated, false)

	deltas := map[string]int64{}
	deltas[old.AccountID] -= old.BalanceContribution()
	deltas[updated.AccountID] += updated.BalanceContribution()

	var peerUpdated *domain.Entry
	if old.IsTransferLeg() {
		peer, err := loadOwnedEntry(ctx, tx, req.OwnerID, old.PeerEntryID)
		if err != nil {
			return nil, err
		}
		mirrored := *peer
		mirrored.Amount = -updated.Amount
		mirrored.Status = updated.Status
		mirrored.OccurredOn = updated.OccurredOn
		mirrored.Description = updated.Description
		mirrored.IsProvisioned = updated.IsProvisioned
		if req.OccurredOn != nil {
			mirrored.InvoicePeriod, err = invoicePeriodFor(accounts[mirrored.AccountID], mirrored.OccurredOn, "")
			if err != nil {
				return nil, err
			}
		}
		s.stamp(ctx, &mirrored, false)
		deltas[peer.AccountID] -= peer.BalanceContribution()
		deltas[mirrored.AccountID] += mirrored.BalanceContribution()
		peerUpdated = &mirrored
	}

	if err := s.applyDeltas(ctx, tx, accounts, deltas); err != nil {
		return nil, err
	}
	if err := tx.UpdateEntry(ctx, updated); err != nil {
		return nil, err
	}
	if peerUpdated != nil {
		if err := tx.UpdateEntry(ctx, *peerUpdated); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// DeleteEntry removes an entry with the requested scope. See domain.PlanDeletion.
func (s *entryService) DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	scope, err := domain.ParseDeletionScope(string(req.Scope))
	if err != nil {
		return nil, err
	}
	result, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpDeleteEntry,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*dto.DeleteResult, error) {
			return s.deleteInTx(ctx, tx, req.OwnerID, req.EntryID, scope)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete entry", slog.String("entry_id", req.EntryID), slog.String("scope", string(scope)))
		return nil, err
	}
	return result, nil
}
