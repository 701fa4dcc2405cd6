package handlers_test

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock EntryService ---
type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	args := m.Called(ctx, ownerID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) ListAccountEntries(ctx context.Context, ownerID, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, ownerID, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}

func (m *MockEntryService) CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockEntryService) DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DeleteResult), args.Error(1)
}

// --- Mock BulkService ---
type MockBulkService struct {
	mock.Mock
}

func (m *MockBulkService) BulkApply(ctx context.Context, req dto.BulkApplyRequest) (*dto.BulkApplyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BulkApplyResult), args.Error(1)
}

// --- Mock BalanceService ---
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) RecomputeBalance(ctx context.Context, ownerID, accountID string) (int64, error) {
	args := m.Called(ctx, ownerID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceService) VerifyBalances(ctx context.Context, ownerID string) ([]domain.BalanceDrift, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalanceDrift), args.Error(1)
}

func (m *MockBalanceService) ListBalances(ctx context.Context, ownerID string) (map[string]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// Ensure mocks implement the interfaces
var (
	_ portssvc.EntrySvcFacade   = (*MockEntryService)(nil)
	_ portssvc.BulkSvcFacade    = (*MockBulkService)(nil)
	_ portssvc.BalanceSvcFacade = (*MockBalanceService)(nil)
)
