package services_test

import (
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

func (s *LedgerEngineTestSuite) TestBulkApply_PartialFailureKeepsSuccesses() {
	on := day(2025, time.March, 2)
	req := dto.BulkApplyRequest{
		OwnerID: ownerID,
		Entries: []dto.CreateEntryRequest{
			{AccountID: checkingID, Kind: domain.KindIncome, Amount: 5000, OccurredOn: on},
			{AccountID: foreignID, Kind: domain.KindIncome, Amount: 5000, OccurredOn: on},
			{AccountID: cardID, Kind: domain.KindExpense, Amount: 999999, OccurredOn: on},
			{AccountID: cardID, Kind: domain.KindExpense, Amount: 1200, OccurredOn: on},
		},
		Transfers: []dto.CreateTransferRequest{
			{FromAccountID: checkingID, ToAccountID: savingsID, Amount: 2000, OccurredOn: on},
			{FromAccountID: savingsID, ToAccountID: checkingID, Amount: 50000, OccurredOn: on},
		},
	}

	res, err := s.svc.Bulk.BulkApply(s.ctx, req)

	s.Require().NoError(err)
	s.Require().Len(res.EntryResults, 4)
	s.Require().Len(res.TransferResults, 2)

	s.False(res.EntryResults[0].Failed())
	s.Equal("NOT_FOUND", res.EntryResults[1].Code)
	s.Equal("CREDIT_LIMIT_EXCEEDED", res.EntryResults[2].Code)
	s.False(res.EntryResults[3].Failed())
	s.Equal(3, res.EntryResults[3].Index)
	s.False(res.TransferResults[0].Failed())
	s.Equal("INSUFFICIENT_FUNDS", res.TransferResults[1].Code)

	succeeded, failed := res.Counts()
	s.Equal(3, succeeded)
	s.Equal(3, failed)
	s.True(errors.Is(res.Err(), apperrors.ErrPartialBatchFailure))

	s.Equal(int64(3000), res.Balances[checkingID])
	s.Equal(int64(2000), res.Balances[savingsID])
	s.Equal(int64(-1200), res.Balances[cardID])
	s.NotContains(res.Balances, foreignID)
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestBulkApply_AllFailedReportsKind() {
	on := day(2025, time.March, 2)
	res, err := s.svc.Bulk.BulkApply(s.ctx, dto.BulkApplyRequest{
		OwnerID: ownerID,
		Entries: []dto.CreateEntryRequest{
			{AccountID: checkingID, Kind: domain.KindExpense, Amount: 10, OccurredOn: on},
			{AccountID: savingsID, Kind: domain.KindExpense, Amount: 10, OccurredOn: on},
		},
	})

	s.Require().NoError(err)
	s.True(errors.Is(res.Err(), apperrors.ErrInsufficientFunds))
	s.False(errors.Is(res.Err(), apperrors.ErrPartialBatchFailure))
	s.Empty(res.Balances)
}

func (s *LedgerEngineTestSuite) TestBulkApply_ItemForAnotherOwnerIsRejected() {
	on := day(2025, time.March, 2)
	res, err := s.svc.Bulk.BulkApply(s.ctx, dto.BulkApplyRequest{
		OwnerID: ownerID,
		Entries: []dto.CreateEntryRequest{
			{OwnerID: strangerID, AccountID: foreignID, Kind: domain.KindIncome, Amount: 10, OccurredOn: on},
			{AccountID: checkingID, Kind: domain.KindIncome, Amount: 10, OccurredOn: on},
		},
	})

	s.Require().NoError(err)
	s.Equal("UNAUTHORIZED", res.EntryResults[0].Code)
	s.False(res.EntryResults[1].Failed())
	s.Equal(int64(0), s.balance(foreignID))
}

func (s *LedgerEngineTestSuite) TestBulkApply_RequiresMatchingCaller() {
	_, err := s.svc.Bulk.BulkApply(s.ctx, dto.BulkApplyRequest{OwnerID: strangerID})
	s.True(errors.Is(err, apperrors.ErrUnauthorized))
}

func (s *LedgerEngineTestSuite) TestBulkApply_ReplayedItemsDoNotDoubleApply() {
	on := day(2025, time.March, 2)
	req := dto.BulkApplyRequest{
		OwnerID: ownerID,
		Entries: []dto.CreateEntryRequest{
			{OperationID: "op-bulk-1", AccountID: checkingID, Kind: domain.KindIncome, Amount: 700, OccurredOn: on},
		},
	}

	first, err := s.svc.Bulk.BulkApply(s.ctx, req)
	s.Require().NoError(err)
	second, err := s.svc.Bulk.BulkApply(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first.EntryResults[0].Entry.EntryID, second.EntryResults[0].Entry.EntryID)
	s.Equal(int64(700), s.balance(checkingID))
	s.Len(s.store.AllEntries(), 1)
}
