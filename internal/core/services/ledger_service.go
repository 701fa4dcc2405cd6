package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Policy holds the ledger rules that are configurable per deployment.
type Policy struct {
	// AllowOverdraft lets non-credit accounts go below zero.
	AllowOverdraft bool
	// MaxRetries bounds automatic retries of a unit that hit a serialization conflict.
	MaxRetries int
}

// ledgerEngine holds what every engine service shares: the store, the optional
// idempotency cache, the policy and the request validator.
type ledgerEngine struct {
	BaseService
	store    portsrepo.LedgerStore
	cache    portsrepo.IdempotencyCache
	policy   Policy
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// EngineOption is a functional option for configuring the ledger engine
type EngineOption func(*ledgerEngine)

// WithIdempotencyCache adds a cache consulted before a unit is opened.
func WithIdempotencyCache(cache portsrepo.IdempotencyCache) EngineOption {
	return func(e *ledgerEngine) {
		e.cache = cache
	}
}

// WithPolicy overrides the default ledger policy.
func WithPolicy(p Policy) EngineOption {
	return func(e *ledgerEngine) {
		e.policy = p
	}
}

// WithClock overrides the time source used for audit fields.
func WithClock(now func() time.Time) EngineOption {
	return func(e *ledgerEngine) {
		e.now = now
	}
}

func newLedgerEngine(store portsrepo.LedgerStore, options ...EngineOption) *ledgerEngine {
	v := validator.New()
	// Share gin's tag so one set of rules serves HTTP binding and direct calls.
	v.SetTagName("binding")
	e := &ledgerEngine{
		store:    store,
		policy:   Policy{MaxRetries: 3},
		validate: v,
		// Postgres keeps microseconds; stamps must survive a round trip unchanged.
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:    uuid.NewString,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

func (e *ledgerEngine) validateRequest(req any) error {
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	return nil
}

// withinTx runs fn as one unit and retries it on serialization conflicts.
func (e *ledgerEngine) withinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	var err error
	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		err = e.store.WithinTx(ctx, fn)
		if !errors.Is(err, apperrors.ErrConcurrentModification) {
			return err
		}
		if ctx.Err() != nil || attempt == e.policy.MaxRetries {
			return err
		}
		e.LogWarn(ctx, "Retrying unit after concurrent modification", slog.Int("attempt", attempt+1))
	}
	return err
}

// runOperation executes a mutation as one guarded unit. When operationID is set the
// result is recorded in the same unit and a replay returns the recorded result
// without applying anything.
func runOperation[T any](
	ctx context.Context,
	e *ledgerEngine,
	ownerID, operationID string,
	kind domain.OperationKind,
	fn func(ctx context.Context, tx portsrepo.LedgerTx) (T, error),
) (T, error) {
	var result T

	if err := e.AuthorizeOwner(ctx, ownerID); err != nil {
		return result, err
	}

	if operationID != "" && e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, ownerID, operationID)
		if err != nil {
			e.LogWarn(ctx, "Idempotency cache lookup failed", slog.String("operation_id", operationID), slog.String("error", err.Error()))
		} else if ok {
			if err := decodeReplay(cached, kind, &result); err != nil {
				return result, err
			}
			e.LogDebug(ctx, "Operation replayed from cache", slog.String("operation_id", operationID))
			return result, nil
		}
	}

	var recorded *domain.AppliedOperation
	err := e.withinTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		var zero T
		result = zero
		recorded = nil

		// Guard first, inside the unit.
		if err := e.AuthorizeOwner(ctx, ownerID); err != nil {
			return err
		}

		if operationID != "" {
			applied, err := tx.FindAppliedOperation(ctx, operationID)
			switch {
			case err == nil:
				if applied.OwnerID != ownerID {
					return fmt.Errorf("%w: operation id %s belongs to another owner", apperrors.ErrDuplicate, operationID)
				}
				return decodeReplay(applied, kind, &result)
			case !errors.Is(err, apperrors.ErrNotFound):
				return err
			}
		}

		out, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = out

		if operationID == "" {
			return nil
		}
		raw, err := json.Marshal(out)
		if err != nil {
			return apperrors.NewAppError(500, "failed to encode operation result", err)
		}
		op := domain.AppliedOperation{
			OperationID: operationID,
			OwnerID:     ownerID,
			Kind:        kind,
			Result:      raw,
			AppliedAt:   e.now(),
		}
		if err := tx.RecordOperation(ctx, op); err != nil {
			return err
		}
		recorded = &op
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	if recorded != nil && e.cache != nil {
		if err := e.cache.Put(ctx, *recorded); err != nil {
			e.LogWarn(ctx, "Failed to cache applied operation", slog.String("operation_id", operationID), slog.String("error", err.Error()))
		}
	}
	return result, nil
}

func decodeReplay[T any](applied *domain.AppliedOperation, kind domain.OperationKind, out *T) error {
	if applied.Kind != kind {
		return fmt.Errorf("%w: operation id %s was already used for %s", apperrors.ErrDuplicate, applied.OperationID, applied.Kind)
	}
	if err := json.Unmarshal(applied.Result, out); err != nil {
		return apperrors.NewAppError(500, "failed to decode recorded operation result", err)
	}
	return nil
}

// callerID returns the authenticated caller used for audit fields.
func callerID(ctx context.Context) string {
	return middleware.GetUserIDFromCtx(ctx)
}

// lockOwnedAccounts locks the distinct accounts in ascending id order and checks
// that each belongs to ownerID. Foreign accounts are reported as not found.
func (e *ledgerEngine) lockOwnedAccounts(ctx context.Context, tx portsrepo.LedgerTx, ownerID string, accountIDs ...string) (map[string]domain.Account, error) {
	ids := sortedUnique(accountIDs)
	accounts, err := tx.LockAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		acc, ok := accounts[id]
		if !ok || acc.OwnerID != ownerID {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}
	return accounts, nil
}

func (e *ledgerEngine) checkCategory(ctx context.Context, tx portsrepo.LedgerTx, ownerID, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	cat, err := tx.FindCategoryByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: category %s", apperrors.ErrNotFound, categoryID)
		}
		return err
	}
	if cat.OwnerID != ownerID {
		return fmt.Errorf("%w: category %s", apperrors.ErrNotFound, categoryID)
	}
	return nil
}

type entryFinder interface {
	FindEntryByID(ctx context.Context, entryID string) (*domain.Entry, error)
}

func loadOwnedEntry(ctx context.Context, r entryFinder, ownerID, entryID string) (*domain.Entry, error) {
	entry, err := r.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, entryID)
		}
		return nil, err
	}
	if entry.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, entryID)
	}
	return entry, nil
}

// applyDeltas checks each non-zero balance change against the account rules and then
// applies them. Accounts must already be locked.
func (e *ledgerEngine) applyDeltas(ctx context.Context, tx portsrepo.LedgerTx, accounts map[string]domain.Account, deltas map[string]int64) error {
	changed := make(map[string]int64, len(deltas))
	for _, id := range sortedKeys(deltas) {
		delta := deltas[id]
		if delta == 0 {
			continue
		}
		acc, ok := accounts[id]
		if !ok {
			return fmt.Errorf("%w: account %s is not locked", apperrors.ErrInternal, id)
		}
		if err := acc.CheckBalanceChange(delta, e.policy.AllowOverdraft); err != nil {
			return err
		}
		changed[id] = delta
	}
	if len(changed) == 0 {
		return nil
	}
	return tx.AdjustAccountBalances(ctx, changed, callerID(ctx), e.now())
}

// recomputeInTx overwrites a locked account's balance with the sum of its realized entries.
func (e *ledgerEngine) recomputeInTx(ctx context.Context, tx portsrepo.LedgerTx, accountID string) (int64, error) {
	sum, err := tx.SumRealizedByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if err := tx.SetAccountBalance(ctx, accountID, sum, callerID(ctx), e.now()); err != nil {
		return 0, err
	}
	return sum, nil
}

// invoicePeriodFor resolves the invoice period of an entry on acc. An explicit
// period wins; otherwise credit accounts with a billing cycle get a computed one.
func invoicePeriodFor(acc domain.Account, occurredOn time.Time, explicit string) (*domain.InvoicePeriod, error) {
	if explicit != "" {
		p, err := domain.ParseInvoicePeriod(explicit)
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	if !acc.HasBillingCycle() {
		return nil, nil
	}
	p, err := domain.InvoicePeriodFor(occurredOn, acc.ClosingDay, acc.DueDay)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *ledgerEngine) stamp(ctx context.Context, entry *domain.Entry, created bool) {
	now := e.now()
	user := callerID(ctx)
	if created {
		entry.CreatedAt = now
		entry.CreatedBy = user
	}
	entry.LastUpdatedAt = now
	entry.LastUpdatedBy = user
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
