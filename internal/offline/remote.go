package offline

import (
	"context"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
)

// Remote is the server side of a sync: the reconciler replays queued
// operations through it. Implementations return the engine's error kinds.
type Remote interface {
	GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error)
	CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error)
	EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error)
	DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error)
	CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error)
	DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error)
	CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error)
}

// BalanceReader is implemented by remotes that can report stored account
// balances. The reconciler uses it to keep the balance mirror current.
type BalanceReader interface {
	ListBalances(ctx context.Context, ownerID string) (map[string]int64, error)
}

// EngineRemote calls the ledger services in process, acting as callerID.
type EngineRemote struct {
	services *portssvc.ServiceContainer
	callerID string
}

// NewEngineRemote creates a Remote over an in-process service container.
func NewEngineRemote(services *portssvc.ServiceContainer, callerID string) *EngineRemote {
	return &EngineRemote{services: services, callerID: callerID}
}

func (r *EngineRemote) caller(ctx context.Context) context.Context {
	return middleware.WithUserID(ctx, r.callerID)
}

func (r *EngineRemote) GetEntry(ctx context.Context, ownerID, entryID string) (*domain.Entry, error) {
	return r.services.Entry.GetEntry(r.caller(ctx), ownerID, entryID)
}

func (r *EngineRemote) CreateEntry(ctx context.Context, req dto.CreateEntryRequest) (*domain.Entry, error) {
	return r.services.Entry.CreateEntry(r.caller(ctx), req)
}

func (r *EngineRemote) EditEntry(ctx context.Context, req dto.EditEntryRequest) (*domain.Entry, error) {
	return r.services.Entry.EditEntry(r.caller(ctx), req)
}

func (r *EngineRemote) DeleteEntry(ctx context.Context, req dto.DeleteEntryRequest) (*dto.DeleteResult, error) {
	return r.services.Entry.DeleteEntry(r.caller(ctx), req)
}

func (r *EngineRemote) CreateTransfer(ctx context.Context, req dto.CreateTransferRequest) (*domain.TransferPair, error) {
	return r.services.Transfer.CreateTransfer(r.caller(ctx), req)
}

func (r *EngineRemote) DeleteTransfer(ctx context.Context, req dto.DeleteTransferRequest) (*dto.DeleteResult, error) {
	return r.services.Transfer.DeleteTransfer(r.caller(ctx), req)
}

func (r *EngineRemote) CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error) {
	return r.services.Series.CreateSeries(r.caller(ctx), req)
}

func (r *EngineRemote) ListBalances(ctx context.Context, ownerID string) (map[string]int64, error) {
	return r.services.Balance.ListBalances(r.caller(ctx), ownerID)
}

var (
	_ Remote        = (*EngineRemote)(nil)
	_ BalanceReader = (*EngineRemote)(nil)
)
