package services_test

import (
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

func (s *LedgerEngineTestSuite) TestCreateTransfer_MovesBothBalances() {
	s.fund(checkingID, 500000)
	s.fund(savingsID, 1000000)

	pair, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID:       ownerID,
		FromAccountID: checkingID,
		ToAccountID:   savingsID,
		Amount:        100000,
		OccurredOn:    day(2025, time.March, 2),
	})

	s.Require().NoError(err)
	s.Equal(int64(400000), s.balance(checkingID))
	s.Equal(int64(1100000), s.balance(savingsID))
	s.Equal(pair.In.EntryID, pair.Out.PeerEntryID)
	s.Equal(pair.Out.EntryID, pair.In.PeerEntryID)
	s.Equal(domain.KindTransferOut, pair.Out.Kind)
	s.Equal(int64(-100000), pair.Out.Amount)
	s.Equal(int64(100000), pair.In.Amount)
	s.Equal(savingsID, pair.Out.CounterAccountID)
	s.Equal(checkingID, pair.In.CounterAccountID)
	s.assertTransferLinks()
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestCreateTransfer_AllOrNothing() {
	s.fund(checkingID, 1000)

	_, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: savingsID, Amount: 5000, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrInsufficientFunds))

	_, err = s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: cardID, ToAccountID: savingsID, Amount: 200001, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))

	_, err = s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: foreignID, Amount: 10, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrNotFound))

	s.Len(s.store.AllEntries(), 1, "only the funding entry")
	s.Equal(int64(1000), s.balance(checkingID))
	s.Equal(int64(0), s.balance(savingsID))
	s.Equal(int64(0), s.balance(cardID))
	s.Equal(int64(0), s.balance(foreignID))
}

func (s *LedgerEngineTestSuite) TestCreateTransfer_SameAccountRejected() {
	_, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: checkingID, Amount: 10, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrValidation))
}

func (s *LedgerEngineTestSuite) TestCreateTransfer_PendingMovesNothing() {
	pair, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: savingsID, Amount: 700,
		OccurredOn: day(2025, time.March, 2), Status: domain.StatusPending,
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, pair.In.Status)
	s.Equal(int64(0), s.balance(checkingID))

	completed := domain.StatusCompleted
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: pair.In.EntryID, Status: &completed})
	s.True(errors.Is(err, apperrors.ErrInsufficientFunds), "completing the pair debits checking")

	s.fund(checkingID, 700)
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: pair.In.EntryID, Status: &completed})
	s.Require().NoError(err)
	s.Equal(int64(0), s.balance(checkingID))
	s.Equal(int64(700), s.balance(savingsID))
	s.assertTransferLinks()
}

func (s *LedgerEngineTestSuite) TestEditTransferLeg_MirrorsPeer() {
	s.fund(checkingID, 10000)
	pair, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: savingsID, Amount: 3000, OccurredOn: day(2025, time.March, 2),
	})
	s.Require().NoError(err)

	amount := int64(4500)
	description := "Rent split"
	on := day(2025, time.March, 9)
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{
		OwnerID: ownerID, EntryID: pair.Out.EntryID, Amount: &amount, Description: &description, OccurredOn: &on,
	})
	s.Require().NoError(err)

	peer, err := s.store.FindEntryByID(s.ctx, pair.In.EntryID)
	s.Require().NoError(err)
	s.Equal(int64(4500), peer.Amount)
	s.Equal(description, peer.Description)
	s.True(peer.OccurredOn.Equal(on))
	s.Equal(int64(5500), s.balance(checkingID))
	s.Equal(int64(4500), s.balance(savingsID))

	target := cardID
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: pair.Out.EntryID, AccountID: &target})
	s.True(errors.Is(err, apperrors.ErrValidation))
	s.assertTransferLinks()
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteTransfer_RemovesBothLegs() {
	s.fund(checkingID, 10000)
	pair, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: savingsID, Amount: 3000, OccurredOn: day(2025, time.March, 2),
	})
	s.Require().NoError(err)

	res, err := s.svc.Transfer.DeleteTransfer(s.ctx, dto.DeleteTransferRequest{OwnerID: ownerID, EntryID: pair.In.EntryID})

	s.Require().NoError(err)
	s.ElementsMatch([]string{pair.In.EntryID, pair.Out.EntryID}, res.DeletedEntryIDs)
	s.False(s.entryExists(pair.Out.EntryID))
	s.False(s.entryExists(pair.In.EntryID))
	s.Equal(int64(10000), res.Balances[checkingID])
	s.Equal(int64(0), res.Balances[savingsID])
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteTransfer_RejectsPlainEntry() {
	entry, err := s.expense(cardID, 100, day(2025, time.March, 2))
	s.Require().NoError(err)

	_, err = s.svc.Transfer.DeleteTransfer(s.ctx, dto.DeleteTransferRequest{OwnerID: ownerID, EntryID: entry.EntryID})

	s.True(errors.Is(err, apperrors.ErrValidation))
	s.True(s.entryExists(entry.EntryID))
}
