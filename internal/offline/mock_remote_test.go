package offline_test

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/offline"
	"github.com/stretchr/testify/mock"
)

// --- Mock Remote ---
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	args := m.Called(ctx, ownerID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockRemote) CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockRemote) EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Entry), args.Error(1)
}

func (m *MockRemote) DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DeleteResult), args.Error(1)
}

func (m *MockRemote) CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferPair), args.Error(1)
}

func (m *MockRemote) DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DeleteResult), args.Error(1)
}

func (m *MockRemote) CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Series), args.Error(1)
}

var _ offline.Remote = (*MockRemote)(nil)
