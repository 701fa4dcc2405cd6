package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// transferService implements the transfer engine.
type transferService struct {
	*ledgerEngine
}

// NewTransferService creates the transfer engine.
func NewTransferService(store portsrepo.LedgerStore, options ...EngineOption) portssvc.TransferSvcFacade {
	return &transferService{ledgerEngine: newLedgerEngine(store, options...)}
}

// CreateTransfer creates both legs of a transfer and, when completed, moves both
// balances in the same unit. Both accounts are locked in ascending id order.
func (s *transferService) CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error) {
	if req.FromAccountID != "" && req.FromAccountID == req.ToAccountID {
		return nil, fmt.Errorf("%w: a transfer needs two different accounts", apperrors.ErrValidation)
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	pair, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpCreateTransfer,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*domain.TransferPair, error) {
			return s.createTransferInTx(ctx, tx, req)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to create transfer",
			slog.String("from_account_id", req.FromAccountID),
			slog.String("to_account_id", req.ToAccountID))
		return nil, err
	}
	s.LogInfo(ctx, "Transfer created", slog.String("out_entry_id", pair.Out.EntryID), slog.String("in_entry_id", pair.In.EntryID))
	return pair, nil
}

func (s *transferService) createTransferInTx(ctx context.Context, tx portsrepo.LedgerTx, req dto.CreateTransferRequest) (*domain.TransferPair, error) {
	accounts, err := s.lockOwnedAccounts(ctx, tx, req.OwnerID, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.StatusCompleted
	}
	outID, inID := req.OutEntryID, req.InEntryID
	if outID == "" {
		outID = s.newID()
	}
	if inID == "" {
		inID = s.newID()
	}
	occurredOn := domain.DateOnly(req.OccurredOn)

	out := domain.Entry{
		EntryID:          outID,
		OwnerID:          req.OwnerID,
		Description:      req.Description,
		Amount:           domain.SignedAmount(domain.KindTransferOut, req.Amount),
		OccurredOn:       occurredOn,
		Status:           status,
		Kind:             domain.KindTransferOut,
		AccountID:        req.FromAccountID,
		CounterAccountID: req.ToAccountID,
		PeerEntryID:      inID,
	}
	in := domain.Entry{
		EntryID:          inID,
		OwnerID:          req.OwnerID,
		Description:      req.Description,
		Amount:           domain.SignedAmount(domain.KindIncome, req.Amount),
		OccurredOn:       occurredOn,
		Status:           status,
		Kind:             domain.KindIncome,
		AccountID:        req.ToAccountID,
		CounterAccountID: req.FromAccountID,
		PeerEntryID:      outID,
	}
	if out.InvoicePeriod, err = invoicePeriodFor(accounts[out.AccountID], occurredOn, ""); err != nil {
		return nil, err
	}
	if in.InvoicePeriod, err = invoicePeriodFor(accounts[in.AccountID], occurredOn, ""); err != nil {
		return nil, err
	}
	s.stamp(ctx, &out, true)
	s.stamp(ctx, &in, true)

	deltas := map[string]int64{
		out.AccountID: out.BalanceContribution(),
		in.AccountID:  in.BalanceContribution(),
	}
	if err := s.applyDeltas(ctx, tx, accounts, deltas); err != nil {
		return nil, err
	}
	if err := tx.InsertEntries(ctx, out, in); err != nil {
		return nil, err
	}
	return &domain.TransferPair{Out: out, In: in}, nil
}

// DeleteTransfer removes both legs of the transfer EntryID belongs to and
// recomputes both accounts.
func (s *transferService) DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	result, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpDeleteTransfer,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*dto.DeleteResult, error) {
			leg, err := loadOwnedEntry(ctx, tx, req.OwnerID, req.EntryID)
			if err != nil {
				return nil, err
			}
			if !leg.IsTransferLeg() {
				return nil, fmt.Errorf("%w: entry %s is not part of a transfer", apperrors.ErrValidation, req.EntryID)
			}
			return s.deleteInTx(ctx, tx, req.OwnerID, req.EntryID, domain.ScopeCurrent)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to delete transfer", slog.String("entry_id", req.EntryID))
		return nil, err
	}
	return result, nil
}
