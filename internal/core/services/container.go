package services

import (
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	options := []EngineOption{
		WithPolicy(Policy{AllowOverdraft: cfg.AllowOverdraft, MaxRetries: cfg.TxMaxRetries}),
	}
	if repos.Idempotency != nil {
		options = append(options, WithIdempotencyCache(repos.Idempotency))
	}

	container := &portssvc.ServiceContainer{
		Entry:    NewEntryService(repos.Ledger, options...),
		Transfer: NewTransferService(repos.Ledger, options...),
		Series:   NewSeriesService(repos.Ledger, options...),
		Balance:  NewBalanceService(repos.Ledger, options...),
	}
	// Bulk composes the engines above.
	container.Bulk = NewBulkService(container.Entry, container.Transfer, container.Balance)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.EntrySvcFacade    = (*entryService)(nil)
	_ portssvc.TransferSvcFacade = (*transferService)(nil)
	_ portssvc.SeriesSvcFacade   = (*seriesService)(nil)
	_ portssvc.BulkSvcFacade     = (*bulkService)(nil)
	_ portssvc.BalanceSvcFacade  = (*balanceService)(nil)
)
