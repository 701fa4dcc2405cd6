package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/stretchr/testify/mock"
)

// --- Mock IdempotencyCache ---
type MockIdempotencyCache struct {
	mock.Mock
}

func (m *MockIdempotencyCache) Get(ctx context.Context, ownerID, operationID string) (*domain.AppliedOperation, bool, error) {
	args := m.Called(ctx, ownerID, operationID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.AppliedOperation), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyCache) Put(ctx context.Context, op domain.AppliedOperation) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

var _ portsrepo.IdempotencyCache = (*MockIdempotencyCache)(nil)

func (s *LedgerEngineTestSuite) TestCreateEntry_OperationReplayAppliesOnce() {
	s.fund(checkingID, 10000)
	req := dto.CreateEntryRequest{
		OperationID: "op-1", OwnerID: ownerID, AccountID: checkingID,
		Kind: domain.KindExpense, Amount: 2500, OccurredOn: day(2025, time.March, 2),
	}

	first, err := s.svc.Entry.CreateEntry(s.ctx, req)
	s.Require().NoError(err)
	second, err := s.svc.Entry.CreateEntry(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first.EntryID, second.EntryID)
	s.Equal(first.Amount, second.Amount)
	s.Equal(int64(7500), s.balance(checkingID))
	s.Len(s.store.AllEntries(), 2)
}

func (s *LedgerEngineTestSuite) TestOperationIDReuseForAnotherOperationIsDuplicate() {
	s.fund(checkingID, 10000)
	entry, err := s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OperationID: "op-2", OwnerID: ownerID, AccountID: checkingID,
		Kind: domain.KindExpense, Amount: 2500, OccurredOn: day(2025, time.March, 2),
	})
	s.Require().NoError(err)

	_, err = s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OperationID: "op-2", OwnerID: ownerID, EntryID: entry.EntryID})
	s.True(errors.Is(err, apperrors.ErrDuplicate))
	s.True(s.entryExists(entry.EntryID))

	s.store.PutAccount(domain.Account{AccountID: "acc-stranger", OwnerID: strangerID, Type: domain.Savings})
	strangerCtx := middleware.WithUserID(context.Background(), strangerID)
	_, err = s.svc.Entry.CreateEntry(strangerCtx, dto.CreateEntryRequest{
		OperationID: "op-2", OwnerID: strangerID, AccountID: "acc-stranger",
		Kind: domain.KindIncome, Amount: 1, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrDuplicate))
	s.Equal(int64(0), s.balance("acc-stranger"))
}

func (s *LedgerEngineTestSuite) TestDeleteEntry_ReplayReturnsFirstResult() {
	s.fund(checkingID, 10000)
	entry, err := s.expense(checkingID, 1000, day(2025, time.March, 2))
	s.Require().NoError(err)
	req := dto.DeleteEntryRequest{OperationID: "op-del", OwnerID: ownerID, EntryID: entry.EntryID}

	first, err := s.svc.Entry.DeleteEntry(s.ctx, req)
	s.Require().NoError(err)
	second, err := s.svc.Entry.DeleteEntry(s.ctx, req)

	s.Require().NoError(err, "a replay does not look for the deleted entry again")
	s.Equal(first.DeletedEntryIDs, second.DeletedEntryIDs)
	s.Equal(int64(10000), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestIdempotencyCache_StoresAppliedOperation() {
	cache := new(MockIdempotencyCache)
	entries := services.NewEntryService(s.store, services.WithIdempotencyCache(cache))

	cache.On("Get", mock.Anything, ownerID, "op-cache").Return(nil, false, nil).Once()
	cache.On("Put", mock.Anything, mock.MatchedBy(func(op domain.AppliedOperation) bool {
		return op.OperationID == "op-cache" && op.OwnerID == ownerID && op.Kind == domain.OpCreateEntry
	})).Return(nil).Once()

	_, err := entries.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OperationID: "op-cache", OwnerID: ownerID, AccountID: cardID,
		Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})

	s.Require().NoError(err)
	cache.AssertExpectations(s.T())
}

func (s *LedgerEngineTestSuite) TestIdempotencyCache_HitSkipsTheStore() {
	cached := domain.Entry{EntryID: "entry-from-cache", OwnerID: ownerID, AccountID: cardID, Amount: -100}
	raw, err := json.Marshal(&cached)
	s.Require().NoError(err)

	cache := new(MockIdempotencyCache)
	cache.On("Get", mock.Anything, ownerID, "op-hit").Return(&domain.AppliedOperation{
		OperationID: "op-hit", OwnerID: ownerID, Kind: domain.OpCreateEntry, Result: raw,
	}, true, nil).Once()
	entries := services.NewEntryService(s.store, services.WithIdempotencyCache(cache))

	got, err := entries.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OperationID: "op-hit", OwnerID: ownerID, AccountID: cardID,
		Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})

	s.Require().NoError(err)
	s.Equal("entry-from-cache", got.EntryID)
	s.Empty(s.store.AllEntries())
	s.Equal(int64(0), s.balance(cardID))
	cache.AssertExpectations(s.T())
}

func (s *LedgerEngineTestSuite) TestIdempotencyCache_FailuresFallBackToStore() {
	cache := new(MockIdempotencyCache)
	cache.On("Get", mock.Anything, ownerID, "op-down").Return(nil, false, errors.New("connection refused"))
	cache.On("Put", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	entries := services.NewEntryService(s.store, services.WithIdempotencyCache(cache))
	req := dto.CreateEntryRequest{
		OperationID: "op-down", OwnerID: ownerID, AccountID: cardID,
		Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	}

	first, err := entries.CreateEntry(s.ctx, req)
	s.Require().NoError(err)
	second, err := entries.CreateEntry(s.ctx, req)
	s.Require().NoError(err)

	s.Equal(first.EntryID, second.EntryID)
	s.Equal(int64(-100), s.balance(cardID))
}
