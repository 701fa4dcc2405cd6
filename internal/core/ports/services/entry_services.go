package services

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// EntryReaderSvc defines read operations on entries.
type EntryReaderSvc interface {
	// GetEntry returns an entry of ownerID; entries of other owners are reported as not found.
	GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error)
	// ListAccountEntries pages through the entries posted to one account of ownerID.
	ListAccountEntries(ctx context.Context, ownerID, accountID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
}

// EntryWriterSvc defines the single-entry mutations. The caller identity is read
// from ctx and must match the request's OwnerID.
type EntryWriterSvc interface {
	CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error)
	EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error)
}

// EntrySvcFacade combines all entry operations.
type EntrySvcFacade interface {
	EntryReaderSvc
	EntryWriterSvc
}

// TransferSvcFacade defines transfer operations.
type TransferSvcFacade interface {
	CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error)
	DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error)
}

// SeriesSvcFacade defines installment and recurring series operations.
type SeriesSvcFacade interface {
	CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error)
	ExtendSeries(ctx context.Context, req dto.ExtendSeriesRequest) (*domain.Series, error)
}

// BulkSvcFacade applies batches with per-item isolation.
type BulkSvcFacade interface {
	// BulkApply returns a result even when items fail; inspect result.Err().
	// The returned error is only set when the batch as a whole was rejected.
	BulkApply(ctx context.Context, req dto.BulkApplyRequest) (*dto.BulkApplyResult, error)
}

// BalanceSvcFacade defines balance reconciliation.
type BalanceSvcFacade interface {
	RecomputeBalance(ctx context.Context, ownerID, accountID string) (int64, error)
	VerifyBalances(ctx context.Context, ownerID string) ([]domain.BalanceDrift, error)
	// ListBalances returns the stored balance of every account of ownerID.
	ListBalances(ctx context.Context, ownerID string) (map[string]int64, error)
}
