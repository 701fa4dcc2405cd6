package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// bulkService applies batches item by item on top of the entry and transfer engines.
type bulkService struct {
	BaseService
	entries   portssvc.EntryWriterSvc
	transfers portssvc.TransferSvcFacade
	balances  portssvc.BalanceSvcFacade
}

// NewBulkService creates the bulk batch engine.
func NewBulkService(entries portssvc.EntryWriterSvc, transfers portssvc.TransferSvcFacade, balances portssvc.BalanceSvcFacade) portssvc.BulkSvcFacade {
	return &bulkService{entries: entries, transfers: transfers, balances: balances}
}

// BulkApply runs each item in its own unit. A failed item is recorded at its index and
// never rolls back or blocks the others. Every account an item touched is recomputed
// once the items are done.
func (s *bulkService) BulkApply(ctx context.Context, req dto.BulkApplyRequest) (*dto.BulkApplyResult, error) {
	if err := s.AuthorizeOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	result := &dto.BulkApplyResult{
		EntryResults:    make([]dto.BulkItemResult, len(req.Entries)),
		TransferResults: make([]dto.BulkItemResult, len(req.Transfers)),
		Balances:        map[string]int64{},
	}
	touched := map[string]bool{}

	for i, item := range req.Entries {
		if item.OwnerID == "" {
			item.OwnerID = req.OwnerID
		}
		res := dto.BulkItemResult{Index: i}
		entry, err := s.entries.CreateEntry(ctx, item)
		if err != nil {
			res.Error, res.Code = err.Error(), apperrors.Code(err)
		} else {
			res.Entry = entry
			touched[entry.AccountID] = true
		}
		result.EntryResults[i] = res
	}

	for i, item := range req.Transfers {
		if item.OwnerID == "" {
			item.OwnerID = req.OwnerID
		}
		res := dto.BulkItemResult{Index: i}
		pair, err := s.transfers.CreateTransfer(ctx, item)
		if err != nil {
			res.Error, res.Code = err.Error(), apperrors.Code(err)
		} else {
			res.Transfer = pair
			touched[pair.Out.AccountID] = true
			touched[pair.In.AccountID] = true
		}
		result.TransferResults[i] = res
	}

	for _, accountID := range sortedKeys(touched) {
		balance, err := s.balances.RecomputeBalance(ctx, req.OwnerID, accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				return nil, err
			}
			s.LogError(ctx, err, "Failed to recompute balance after bulk apply", slog.String("account_id", accountID))
			continue
		}
		result.Balances[accountID] = balance
	}

	succeeded, failed := result.Counts()
	s.LogInfo(ctx, "Bulk apply finished", slog.Int("succeeded", succeeded), slog.Int("failed", failed))
	return result, nil
}
