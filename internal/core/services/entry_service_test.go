package services_test

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/adapters/database/memory"
	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/SscSPs/ledger_engine/internal/platform/config"
)

func (s *LedgerEngineTestSuite) TestCreateEntry_CompletedExpenseMovesBalance() {
	s.fund(checkingID, 500000)

	entry, err := s.expense(checkingID, 15000, day(2025, time.March, 2))

	s.Require().NoError(err)
	s.Equal(int64(-15000), entry.Amount)
	s.Equal(domain.StatusCompleted, entry.Status)
	s.Equal(ownerID, entry.CreatedBy)
	s.Equal(int64(485000), s.balance(checkingID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestCreateEntry_PendingAndProvisionedDoNotMoveBalance() {
	s.fund(checkingID, 1000)

	_, err := s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindExpense, Amount: 400,
		OccurredOn: day(2025, time.March, 2), Status: domain.StatusPending,
	})
	s.Require().NoError(err)
	_, err = s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindExpense, Amount: 5000,
		OccurredOn: day(2025, time.March, 2), IsProvisioned: true,
	})
	s.Require().NoError(err, "provisioned entries never hit limits")

	s.Equal(int64(1000), s.balance(checkingID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestCreateEntry_CreditLimitExceeded() {
	_, err := s.expense(cardID, 250000, day(2025, time.March, 2))

	s.Require().Error(err)
	s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))
	var limitErr *apperrors.LimitError
	s.Require().True(errors.As(err, &limitErr))
	s.Equal(int64(200000), limitErr.Available)
	s.Equal(int64(250000), limitErr.Requested)
	s.Equal(int64(0), s.balance(cardID))
	s.Empty(s.store.AllEntries())
}

func (s *LedgerEngineTestSuite) TestCreateEntry_CreditDebtNeverExceedsLimit() {
	amounts := []int64{90000, 60000, 70000, 50000, 1, 20000}
	for _, amount := range amounts {
		_, err := s.expense(cardID, amount, day(2025, time.March, 2))
		if err != nil {
			s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))
		}
		s.LessOrEqual(-s.balance(cardID), int64(200000))
	}
	// 90000 + 60000 + 50000 fits exactly; everything after is rejected.
	s.Equal(int64(-200000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestCreateEntry_InvoicePeriodOnCreditAccount() {
	before, err := s.expense(cardID, 1000, day(2025, time.March, 3))
	s.Require().NoError(err)
	after, err := s.expense(cardID, 1000, day(2025, time.March, 5))
	s.Require().NoError(err)

	s.Require().NotNil(before.InvoicePeriod)
	s.Equal("2025-03", before.InvoicePeriod.String())
	s.Require().NotNil(after.InvoicePeriod)
	s.Equal("2025-04", after.InvoicePeriod.String())

	onChecking, err := s.expense(checkingID, 1, day(2025, time.March, 5))
	s.Require().Error(err, "checking is empty")
	s.Nil(onChecking)
}

func (s *LedgerEngineTestSuite) TestCreateEntry_InsufficientFunds() {
	_, err := s.expense(checkingID, 100, day(2025, time.March, 2))
	s.True(errors.Is(err, apperrors.ErrInsufficientFunds))
	s.Equal(int64(0), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestCreateEntry_OverdraftPolicy() {
	entries := services.NewEntryService(s.store, services.WithPolicy(services.Policy{AllowOverdraft: true}))

	_, err := entries.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})

	s.Require().NoError(err)
	s.Equal(int64(-100), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestCreateEntry_ForeignResourcesLookMissing() {
	_, err := s.expense(foreignID, 100, day(2025, time.March, 2))
	s.True(errors.Is(err, apperrors.ErrNotFound))

	s.fund(checkingID, 1000)
	_, err = s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, CategoryID: foreignCategoryID,
		Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrNotFound))
	s.Equal(int64(1000), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestCreateEntry_Validation() {
	_, err := s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindTransferOut, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrValidation))

	_, err = s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindIncome, Amount: 0, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrValidation))
}

func (s *LedgerEngineTestSuite) TestUnauthorizedCallerLeavesNoTrace() {
	s.fund(checkingID, 1000)
	before := len(s.store.AllEntries())

	cases := map[string]context.Context{
		"anonymous":     context.Background(),
		"another user":  middleware.WithUserID(context.Background(), strangerID),
		"empty user id": middleware.WithUserID(context.Background(), ""),
	}
	for name, ctx := range cases {
		_, err := s.svc.Entry.CreateEntry(ctx, dto.CreateEntryRequest{
			OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
		})
		s.True(errors.Is(err, apperrors.ErrUnauthorized), name)

		_, err = s.svc.Transfer.CreateTransfer(ctx, dto.CreateTransferRequest{
			OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: savingsID, Amount: 100, OccurredOn: day(2025, time.March, 2),
		})
		s.True(errors.Is(err, apperrors.ErrUnauthorized), name)

		_, err = s.svc.Balance.RecomputeBalance(ctx, ownerID, checkingID)
		s.True(errors.Is(err, apperrors.ErrUnauthorized), name)
	}

	s.Len(s.store.AllEntries(), before)
	s.Equal(int64(1000), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestGetEntry() {
	entry, err := s.expense(cardID, 1000, day(2025, time.March, 2))
	s.Require().NoError(err)

	got, err := s.svc.Entry.GetEntry(s.ctx, ownerID, entry.EntryID)
	s.Require().NoError(err)
	s.Equal(entry.EntryID, got.EntryID)

	strangerCtx := middleware.WithUserID(context.Background(), strangerID)
	_, err = s.svc.Entry.GetEntry(strangerCtx, strangerID, entry.EntryID)
	s.True(errors.Is(err, apperrors.ErrNotFound))
}

func (s *LedgerEngineTestSuite) TestEditEntry_ReversesOldContribution() {
	s.fund(checkingID, 500000)
	entry, err := s.expense(checkingID, 15000, day(2025, time.March, 2))
	s.Require().NoError(err)

	amount := int64(20000)
	edited, err := s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: entry.EntryID, Amount: &amount})
	s.Require().NoError(err)
	s.Equal(int64(-20000), edited.Amount)
	s.Equal(int64(480000), s.balance(checkingID))

	pending := domain.StatusPending
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: entry.EntryID, Status: &pending})
	s.Require().NoError(err)
	s.Equal(int64(500000), s.balance(checkingID))

	target := savingsID
	completed := domain.StatusCompleted
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: entry.EntryID, AccountID: &target, Status: &completed})
	s.True(errors.Is(err, apperrors.ErrInsufficientFunds), "savings is empty")

	target = cardID
	moved, err := s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: entry.EntryID, AccountID: &target, Status: &completed})
	s.Require().NoError(err)
	s.Equal(cardID, moved.AccountID)
	s.Require().NotNil(moved.InvoicePeriod)
	s.Equal("2025-03", moved.InvoicePeriod.String())
	s.Equal(int64(500000), s.balance(checkingID))
	s.Equal(int64(-20000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestEditEntry_CreditLimitOnIncrease() {
	entry, err := s.expense(cardID, 150000, day(2025, time.March, 2))
	s.Require().NoError(err)

	amount := int64(250000)
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: entry.EntryID, Amount: &amount})

	s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))
	s.Equal(int64(-150000), s.balance(cardID))
}

func (s *LedgerEngineTestSuite) TestDeleteEntry_PaymentRemovalCannotBreachCreditLimit() {
	payment, err := s.svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: cardID, Kind: domain.KindIncome, Amount: 100000, OccurredOn: day(2025, time.March, 1),
	})
	s.Require().NoError(err)
	_, err = s.expense(cardID, 250000, day(2025, time.March, 2))
	s.Require().NoError(err)
	s.Equal(int64(-150000), s.balance(cardID))

	_, err = s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: payment.EntryID})

	s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))
	s.True(s.entryExists(payment.EntryID))
	s.Equal(int64(-150000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteEntry_IncomeRemovalCannotOverdraw() {
	s.fund(checkingID, 10000)
	_, err := s.expense(checkingID, 8000, day(2025, time.March, 2))
	s.Require().NoError(err)
	var funding domain.Entry
	for _, e := range s.store.AllEntries() {
		if e.Kind == domain.KindIncome {
			funding = e
		}
	}
	s.Require().NotEmpty(funding.EntryID)

	_, err = s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: funding.EntryID})

	s.True(errors.Is(err, apperrors.ErrInsufficientFunds))
	s.True(s.entryExists(funding.EntryID))
	s.Equal(int64(2000), s.balance(checkingID))
}

func (s *LedgerEngineTestSuite) TestRetriesOnConcurrentModification() {
	s.fund(checkingID, 1000)

	s.store.InjectConflicts(2)
	_, err := s.expense(checkingID, 100, day(2025, time.March, 2))
	s.Require().NoError(err)
	s.Equal(int64(900), s.balance(checkingID))

	entries := services.NewEntryService(s.store, services.WithPolicy(services.Policy{MaxRetries: 1}))
	s.store.InjectConflicts(5)
	_, err = entries.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: checkingID, Kind: domain.KindExpense, Amount: 100, OccurredOn: day(2025, time.March, 2),
	})
	s.True(errors.Is(err, apperrors.ErrConcurrentModification))
	s.True(apperrors.IsRetryable(err))
	s.Equal(int64(900), s.balance(checkingID))
	s.store.InjectConflicts(0)
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestBalanceInvariantAcrossMixedOperations() {
	s.fund(checkingID, 300000)
	s.fund(savingsID, 50000)

	e1, err := s.expense(checkingID, 12000, day(2025, time.February, 1))
	s.Require().NoError(err)
	_, err = s.expense(cardID, 40000, day(2025, time.February, 4))
	s.Require().NoError(err)
	pair, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
		OwnerID: ownerID, FromAccountID: checkingID, ToAccountID: cardID, Amount: 40000, OccurredOn: day(2025, time.February, 10),
	})
	s.Require().NoError(err)
	_, err = s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID: ownerID, Mode: domain.SeriesInstallment, AccountID: cardID, Kind: domain.KindExpense,
		TotalAmount: 30001, StartDate: day(2025, time.February, 15), Count: 3,
		Statuses: []domain.EntryStatus{domain.StatusCompleted},
	})
	s.Require().NoError(err)

	amount := int64(500)
	_, err = s.svc.Entry.EditEntry(s.ctx, dto.EditEntryRequest{OwnerID: ownerID, EntryID: pair.In.EntryID, Amount: &amount})
	s.Require().NoError(err)
	_, err = s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: e1.EntryID})
	s.Require().NoError(err)

	s.assertBalancesMatchEntries()
	s.assertTransferLinks()
	drifts, err := s.svc.Balance.VerifyBalances(s.ctx, ownerID)
	s.Require().NoError(err)
	s.Empty(drifts)
}

func (s *LedgerEngineTestSuite) TestContainerWiresPolicyFromConfig() {
	svc := services.NewServiceContainer(&config.Config{AllowOverdraft: true}, portsrepo.RepositoryProvider{Ledger: s.store})

	_, err := svc.Entry.CreateEntry(s.ctx, dto.CreateEntryRequest{
		OwnerID: ownerID, AccountID: savingsID, Kind: domain.KindExpense, Amount: 10, OccurredOn: day(2025, time.March, 2),
	})

	s.Require().NoError(err)
	s.Equal(int64(-10), s.balance(savingsID))
}

func (s *LedgerEngineTestSuite) TestListAccountEntries_PagesInDateOrder() {
	s.fund(checkingID, 100000)
	for d := 5; d >= 2; d-- {
		_, err := s.expense(checkingID, 100, day(2025, time.March, d))
		s.Require().NoError(err)
	}

	var (
		seen  []string
		token string
		pages int
	)
	for {
		page, err := s.svc.Entry.ListAccountEntries(s.ctx, ownerID, checkingID, dto.ListEntriesParams{Limit: 2, NextToken: token})
		s.Require().NoError(err)
		pages++
		for _, e := range page.Entries {
			seen = append(seen, e.OccurredOn)
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	s.Equal(3, pages)
	s.Equal([]string{"2025-01-01", "2025-03-02", "2025-03-03", "2025-03-04", "2025-03-05"}, seen)
}

// pagingStore records the page requests the entry service makes.
type pagingStore struct {
	*memory.Store
	afters []*portsrepo.EntryCursor
	limits []int
	rows   []int
}

func (p *pagingStore) ListEntriesByAccount(ctx context.Context, accountID string, after *portsrepo.EntryCursor, limit int) ([]domain.Entry, error) {
	entries, err := p.Store.ListEntriesByAccount(ctx, accountID, after, limit)
	p.afters = append(p.afters, after)
	p.limits = append(p.limits, limit)
	p.rows = append(p.rows, len(entries))
	return entries, err
}

func (s *LedgerEngineTestSuite) TestListAccountEntries_ReadsOnlyOnePageFromStore() {
	s.fund(checkingID, 100000)
	for d := 2; d <= 9; d++ {
		_, err := s.expense(checkingID, 100, day(2025, time.March, d))
		s.Require().NoError(err)
	}
	store := &pagingStore{Store: s.store}
	entries := services.NewEntryService(store)

	first, err := entries.ListAccountEntries(s.ctx, ownerID, checkingID, dto.ListEntriesParams{Limit: 3})
	s.Require().NoError(err)
	s.Require().Len(first.Entries, 3)
	second, err := entries.ListAccountEntries(s.ctx, ownerID, checkingID, dto.ListEntriesParams{Limit: 3, NextToken: first.NextToken})
	s.Require().NoError(err)
	s.Require().Len(second.Entries, 3)

	s.Equal([]int{4, 4}, store.limits)
	s.Equal([]int{4, 4}, store.rows, "never more than one page plus one row")
	s.Nil(store.afters[0])
	s.Require().NotNil(store.afters[1])
	s.Equal(first.Entries[2].EntryID, store.afters[1].EntryID)
	s.Equal("2025-03-04", second.Entries[0].OccurredOn)
}

func (s *LedgerEngineTestSuite) TestListAccountEntries_Rejections() {
	_, err := s.svc.Entry.ListAccountEntries(s.ctx, ownerID, foreignID, dto.ListEntriesParams{})
	s.True(errors.Is(err, apperrors.ErrNotFound), "another owner's account is invisible")

	_, err = s.svc.Entry.ListAccountEntries(s.ctx, strangerID, foreignID, dto.ListEntriesParams{})
	s.True(errors.Is(err, apperrors.ErrUnauthorized))

	_, err = s.svc.Entry.ListAccountEntries(s.ctx, ownerID, checkingID, dto.ListEntriesParams{NextToken: "%%%"})
	s.True(errors.Is(err, apperrors.ErrValidation))
}
