// Package memory is an in-process ledger store. A unit of work holds the store
// mutex for its whole duration and works on a copy of the state that replaces
// the live state only when the unit succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/utils/pagination"
)

type state struct {
	accounts   map[string]domain.Account
	categories map[string]domain.Category
	entries    map[string]domain.Entry
	operations map[string]domain.AppliedOperation
}

func newState() *state {
	return &state{
		accounts:   map[string]domain.Account{},
		categories: map[string]domain.Category{},
		entries:    map[string]domain.Entry{},
		operations: map[string]domain.AppliedOperation{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = copyEntry(v)
	}
	for k, v := range s.operations {
		c.operations[k] = v
	}
	return c
}

func copyEntry(e domain.Entry) domain.Entry {
	if e.InvoicePeriod != nil {
		p := *e.InvoicePeriod
		e.InvoicePeriod = &p
	}
	return e
}

// Store is the in-memory LedgerStore.
type Store struct {
	mu        sync.Mutex
	live      *state
	conflicts int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{live: newState()}
}

var _ portsrepo.LedgerStore = (*Store)(nil)

// PutAccount creates or replaces an account. Accounts are owned by other
// collaborators; this is the seeding hook for tests and dev mode.
func (s *Store) PutAccount(acc domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.accounts[acc.AccountID] = acc
}

// PutCategory creates or replaces a category.
func (s *Store) PutCategory(cat domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live.categories[cat.CategoryID] = cat
}

// InjectConflicts makes the next n units fail with ErrConcurrentModification
// after running, discarding their changes.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// WithinTx runs fn as one atomic unit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.live.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return fmt.Errorf("%w: injected conflict", apperrors.ErrConcurrentModification)
	}
	if err := work.checkReferences(); err != nil {
		return err
	}
	s.live = work
	return nil
}

func (s *Store) read() *memTx {
	return &memTx{st: s.live}
}

// FindAccountByID implements portsrepo.AccountReader.
func (s *Store) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindAccountByID(ctx, accountID)
}

// ListAccountsByOwner implements portsrepo.AccountReader.
func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListAccountsByOwner(ctx, ownerID)
}

// FindCategoryByID implements portsrepo.CategoryReader.
func (s *Store) FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindCategoryByID(ctx, categoryID)
}

// FindEntryByID implements portsrepo.EntryReader.
func (s *Store) FindEntryByID(ctx context.Context, entryID string) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindEntryByID(ctx, entryID)
}

// FindSeriesMembers implements portsrepo.EntryReader.
func (s *Store) FindSeriesMembers(ctx context.Context, rootID string) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindSeriesMembers(ctx, rootID)
}

// ListEntriesByAccount implements portsrepo.EntryReader.
func (s *Store) ListEntriesByAccount(ctx context.Context, accountID string, after *portsrepo.EntryCursor, limit int) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ListEntriesByAccount(ctx, accountID, after, limit)
}

// SumRealizedByAccount implements portsrepo.EntryReader.
func (s *Store) SumRealizedByAccount(ctx context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().SumRealizedByAccount(ctx, accountID)
}

// FindAppliedOperation implements portsrepo.OperationReader.
func (s *Store) FindAppliedOperation(ctx context.Context, operationID string) (*domain.AppliedOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().FindAppliedOperation(ctx, operationID)
}

// AllEntries returns every stored entry ordered by id.
func (s *Store) AllEntries() []domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Entry, 0, len(s.live.entries))
	for _, e := range s.live.entries {
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out
}

// checkReferences enforces what foreign keys enforce in the SQL store.
func (s *state) checkReferences() error {
	for _, e := range s.entries {
		if e.SeriesParentID != "" {
			if _, ok := s.entries[e.SeriesParentID]; !ok {
				return fmt.Errorf("%w: entry %s references missing series root %s", apperrors.ErrInternal, e.EntryID, e.SeriesParentID)
			}
		}
		if e.PeerEntryID != "" {
			peer, ok := s.entries[e.PeerEntryID]
			if !ok || peer.PeerEntryID != e.EntryID {
				return fmt.Errorf("%w: transfer leg %s has no matching peer", apperrors.ErrInternal, e.EntryID)
			}
		}
	}
	return nil
}

// memTx implements portsrepo.LedgerTx over one state snapshot.
type memTx struct {
	st *state
}

var _ portsrepo.LedgerTx = (*memTx)(nil)

func (t *memTx) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	acc, ok := t.st.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

func (t *memTx) ListAccountsByOwner(_ context.Context, ownerID string) ([]domain.Account, error) {
	out := []domain.Account{}
	for _, acc := range t.st.accounts {
		if acc.OwnerID == ownerID {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (t *memTx) FindCategoryByID(_ context.Context, categoryID string) (*domain.Category, error) {
	cat, ok := t.st.categories[categoryID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &cat, nil
}

func (t *memTx) FindEntryByID(_ context.Context, entryID string) (*domain.Entry, error) {
	e, ok := t.st.entries[entryID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	e = copyEntry(e)
	return &e, nil
}

func sortByDate(entries []domain.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].OccurredOn.Equal(entries[j].OccurredOn) {
			return entries[i].OccurredOn.Before(entries[j].OccurredOn)
		}
		return entries[i].EntryID < entries[j].EntryID
	})
}

func (t *memTx) FindSeriesMembers(_ context.Context, rootID string) ([]domain.Entry, error) {
	root, ok := t.st.entries[rootID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	var children []domain.Entry
	for _, e := range t.st.entries {
		if e.SeriesParentID == rootID {
			children = append(children, copyEntry(e))
		}
	}
	sortByDate(children)
	return append([]domain.Entry{copyEntry(root)}, children...), nil
}

func (t *memTx) ListEntriesByAccount(_ context.Context, accountID string, after *portsrepo.EntryCursor, limit int) ([]domain.Entry, error) {
	out := []domain.Entry{}
	for _, e := range t.st.entries {
		if e.AccountID != accountID {
			continue
		}
		if after != nil && !pagination.After(e.OccurredOn, e.EntryID, after.OccurredOn, after.EntryID) {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sortByDate(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) SumRealizedByAccount(_ context.Context, accountID string) (int64, error) {
	var sum int64
	for _, e := range t.st.entries {
		if e.AccountID == accountID {
			sum += e.BalanceContribution()
		}
	}
	return sum, nil
}

func (t *memTx) FindAppliedOperation(_ context.Context, operationID string) (*domain.AppliedOperation, error) {
	op, ok := t.st.operations[operationID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &op, nil
}

func (t *memTx) LockAccounts(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		acc, ok := t.st.accounts[id]
		if !ok {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
		out[id] = acc
	}
	return out, nil
}

func (t *memTx) AdjustAccountBalances(_ context.Context, deltas map[string]int64, userID string, now time.Time) error {
	for id, delta := range deltas {
		acc, ok := t.st.accounts[id]
		if !ok {
			return fmt.Errorf("%w: account %s not found during balance update", apperrors.ErrNotFound, id)
		}
		acc.Balance += delta
		acc.LastUpdatedAt, acc.LastUpdatedBy = now, userID
		t.st.accounts[id] = acc
	}
	return nil
}

func (t *memTx) SetAccountBalance(_ context.Context, accountID string, balance int64, userID string, now time.Time) error {
	acc, ok := t.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	acc.Balance = balance
	acc.LastUpdatedAt, acc.LastUpdatedBy = now, userID
	t.st.accounts[accountID] = acc
	return nil
}

func (t *memTx) InsertEntries(_ context.Context, entries ...domain.Entry) error {
	for _, e := range entries {
		if _, exists := t.st.entries[e.EntryID]; exists {
			return fmt.Errorf("%w: entry with ID %s already exists", apperrors.ErrDuplicate, e.EntryID)
		}
		t.st.entries[e.EntryID] = copyEntry(e)
	}
	return nil
}

func (t *memTx) UpdateEntry(_ context.Context, entry domain.Entry) error {
	if _, ok := t.st.entries[entry.EntryID]; !ok {
		return fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, entry.EntryID)
	}
	t.st.entries[entry.EntryID] = copyEntry(entry)
	return nil
}

func (t *memTx) DeleteEntries(_ context.Context, entryIDs []string) error {
	for _, id := range entryIDs {
		delete(t.st.entries, id)
	}
	return nil
}

func (t *memTx) RecordOperation(_ context.Context, op domain.AppliedOperation) error {
	if _, exists := t.st.operations[op.OperationID]; exists {
		return fmt.Errorf("%w: operation %s already applied", apperrors.ErrDuplicate, op.OperationID)
	}
	t.st.operations[op.OperationID] = op
	return nil
}
