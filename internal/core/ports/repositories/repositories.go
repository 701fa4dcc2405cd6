package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	Ledger LedgerStore
	// Idempotency may be nil when no cache is configured.
	Idempotency IdempotencyCache
}
