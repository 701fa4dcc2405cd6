package services_test

import (
	"errors"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

func (s *LedgerEngineTestSuite) installmentPlan(statuses ...domain.EntryStatus) *domain.Series {
	series, err := s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID:    ownerID,
		Mode:       domain.SeriesInstallment,
		AccountID:  cardID,
		CategoryID: categoryID,
		Kind:       domain.KindExpense,
		Amount:     10000,
		StartDate:  day(2025, time.January, 20),
		Count:      3,
		Statuses:   statuses,
	})
	s.Require().NoError(err)
	return series
}

func (s *LedgerEngineTestSuite) recurringTemplate(count int, statuses ...domain.EntryStatus) *domain.Series {
	series, err := s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID:   ownerID,
		Mode:      domain.SeriesRecurring,
		Frequency: domain.FrequencyMonthly,
		AccountID: cardID,
		Kind:      domain.KindExpense,
		Amount:    5000,
		StartDate: day(2025, time.January, 31),
		Count:     count,
		Statuses:  statuses,
	})
	s.Require().NoError(err)
	return series
}

func (s *LedgerEngineTestSuite) TestCreateSeries_Installments() {
	series := s.installmentPlan(domain.StatusCompleted)

	s.Require().Len(series.Members, 3)
	root := series.Root
	s.Equal(series.Members[0].EntryID, root.EntryID)
	s.Equal(1, root.SequenceIndex)
	s.Empty(root.SeriesParentID)
	for i, m := range series.Members {
		s.Equal(i+1, m.SequenceIndex)
		s.Equal(3, m.SequenceLength)
		if i > 0 {
			s.Equal(root.EntryID, m.SeriesParentID)
			s.Equal(domain.StatusPending, m.Status)
		}
	}
	s.True(series.Members[1].OccurredOn.Equal(day(2025, time.February, 20)))
	s.Equal("2025-02", series.Members[0].InvoicePeriod.String())
	s.Equal(int64(-10000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestCreateSeries_TotalAmountSplit() {
	series, err := s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID: ownerID, Mode: domain.SeriesInstallment, AccountID: cardID, Kind: domain.KindExpense,
		TotalAmount: 10000, StartDate: day(2025, time.January, 20), Count: 3,
	})
	s.Require().NoError(err)

	var total int64
	for _, m := range series.Members {
		total += m.Amount
	}
	s.Equal(int64(-10000), total)
	s.Equal(int64(-3334), series.Members[0].Amount)
	s.Equal(int64(0), s.balance(cardID), "members default to pending")
}

func (s *LedgerEngineTestSuite) TestCreateSeries_RejectsBadShapes() {
	base := dto.CreateSeriesRequest{
		OwnerID: ownerID, Mode: domain.SeriesInstallment, AccountID: cardID, Kind: domain.KindExpense,
		StartDate: day(2025, time.January, 20), Count: 3,
	}

	both := base
	both.Amount, both.TotalAmount = 10, 30
	_, err := s.svc.Series.CreateSeries(s.ctx, both)
	s.True(errors.Is(err, apperrors.ErrValidation))

	neither := base
	_, err = s.svc.Series.CreateSeries(s.ctx, neither)
	s.True(errors.Is(err, apperrors.ErrValidation))

	empty := base
	empty.Amount, empty.Count = 10, 0
	_, err = s.svc.Series.CreateSeries(s.ctx, empty)
	s.True(errors.Is(err, apperrors.ErrValidation))

	tooManyStatuses := base
	tooManyStatuses.Amount = 10
	tooManyStatuses.Statuses = []domain.EntryStatus{domain.StatusPending, domain.StatusPending, domain.StatusPending, domain.StatusPending}
	_, err = s.svc.Series.CreateSeries(s.ctx, tooManyStatuses)
	s.True(errors.Is(err, apperrors.ErrValidation))

	s.Empty(s.store.AllEntries())
}

func (s *LedgerEngineTestSuite) TestCreateSeries_CreditLimitCoversCompletedMembers() {
	_, err := s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID: ownerID, Mode: domain.SeriesInstallment, AccountID: cardID, Kind: domain.KindExpense,
		Amount: 80000, StartDate: day(2025, time.January, 20), Count: 3,
		Statuses: []domain.EntryStatus{domain.StatusCompleted, domain.StatusCompleted, domain.StatusCompleted},
	})

	s.True(errors.Is(err, apperrors.ErrCreditLimitExceeded))
	s.Empty(s.store.AllEntries())
	s.Equal(int64(0), s.balance(cardID))
}

func (s *LedgerEngineTestSuite) TestCreateSeries_RecurringHeader() {
	series := s.recurringTemplate(3)

	header := series.Root
	s.True(header.IsTemplate)
	s.True(header.IsSeriesHeader())
	s.Equal(domain.StatusPending, header.Status)
	s.Require().Len(series.Members, 3)
	s.True(series.Members[1].OccurredOn.Equal(day(2025, time.February, 28)))
	s.True(series.Members[2].OccurredOn.Equal(day(2025, time.March, 31)))
	for _, m := range series.Members {
		s.Equal(header.EntryID, m.SeriesParentID)
		s.False(m.IsTemplate)
	}
}

func (s *LedgerEngineTestSuite) TestExtendSeries_ContinuesSchedule() {
	series := s.recurringTemplate(2)

	extended, err := s.svc.Series.ExtendSeries(s.ctx, dto.ExtendSeriesRequest{
		OwnerID: ownerID, RootEntryID: series.Root.EntryID, Count: 2,
	})

	s.Require().NoError(err)
	s.Require().Len(extended.Members, 2)
	s.True(extended.Members[0].OccurredOn.Equal(day(2025, time.March, 31)))
	s.True(extended.Members[1].OccurredOn.Equal(day(2025, time.April, 30)))
	for _, m := range extended.Members {
		s.Equal(domain.StatusPending, m.Status)
		s.Equal(int64(-5000), m.Amount)
	}
	members, err := s.store.FindSeriesMembers(s.ctx, series.Root.EntryID)
	s.Require().NoError(err)
	s.Len(members, 5)
}

func (s *LedgerEngineTestSuite) TestExtendSeries_FollowsStoredFrequency() {
	weekly, err := s.svc.Series.CreateSeries(s.ctx, dto.CreateSeriesRequest{
		OwnerID: ownerID, Mode: domain.SeriesRecurring, Frequency: domain.FrequencyWeekly,
		AccountID: checkingID, Kind: domain.KindExpense, Amount: 1500, StartDate: day(2025, time.January, 1), Count: 2,
	})
	s.Require().NoError(err)
	s.Equal(domain.FrequencyWeekly, weekly.Root.Frequency)
	stored, err := s.store.FindEntryByID(s.ctx, weekly.Root.EntryID)
	s.Require().NoError(err)
	s.Equal(domain.FrequencyWeekly, stored.Frequency)

	extended, err := s.svc.Series.ExtendSeries(s.ctx, dto.ExtendSeriesRequest{
		OwnerID: ownerID, RootEntryID: weekly.Root.EntryID, Count: 1,
	})
	s.Require().NoError(err)
	s.Equal(domain.FrequencyWeekly, extended.Frequency)
	s.Require().Len(extended.Members, 1)
	s.True(extended.Members[0].OccurredOn.Equal(day(2025, time.January, 15)))

	_, err = s.svc.Series.ExtendSeries(s.ctx, dto.ExtendSeriesRequest{
		OwnerID: ownerID, RootEntryID: weekly.Root.EntryID, Frequency: domain.FrequencyMonthly, Count: 1,
	})
	s.True(errors.Is(err, apperrors.ErrValidation))
	members, err := s.store.FindSeriesMembers(s.ctx, weekly.Root.EntryID)
	s.Require().NoError(err)
	s.Len(members, 4)
}

func (s *LedgerEngineTestSuite) TestExtendSeries_RequiresActiveTemplate() {
	plan := s.installmentPlan()

	_, err := s.svc.Series.ExtendSeries(s.ctx, dto.ExtendSeriesRequest{OwnerID: ownerID, RootEntryID: plan.Root.EntryID, Count: 1})

	s.True(errors.Is(err, apperrors.ErrValidation))
}

func (s *LedgerEngineTestSuite) TestDeleteInstallment_CurrentAndRemaining() {
	series := s.installmentPlan(domain.StatusCompleted)
	first, second, third := series.Members[0], series.Members[1], series.Members[2]

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{
		OwnerID: ownerID, EntryID: second.EntryID, Scope: domain.ScopeCurrentAndRemaining,
	})

	s.Require().NoError(err)
	s.ElementsMatch([]string{second.EntryID, third.EntryID}, res.DeletedEntryIDs)
	s.True(s.entryExists(first.EntryID))
	s.False(s.entryExists(second.EntryID))
	s.False(s.entryExists(third.EntryID))
	kept, err := s.store.FindEntryByID(s.ctx, first.EntryID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCompleted, kept.Status)
	s.Equal(int64(-10000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteInstallment_RootHandsOver() {
	series := s.installmentPlan()
	first, second, third := series.Members[0], series.Members[1], series.Members[2]

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: first.EntryID})

	s.Require().NoError(err)
	s.Equal(second.EntryID, res.PromotedRootID)
	promoted, err := s.store.FindEntryByID(s.ctx, second.EntryID)
	s.Require().NoError(err)
	s.Empty(promoted.SeriesParentID)
	last, err := s.store.FindEntryByID(s.ctx, third.EntryID)
	s.Require().NoError(err)
	s.Equal(second.EntryID, last.SeriesParentID)
}

func (s *LedgerEngineTestSuite) TestDeleteInstallment_AllKeepsCompleted() {
	series := s.installmentPlan(domain.StatusCompleted, domain.StatusCompleted)

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{
		OwnerID: ownerID, EntryID: series.Members[2].EntryID, Scope: domain.ScopeAll,
	})

	s.Require().NoError(err)
	s.Equal([]string{series.Members[2].EntryID}, res.DeletedEntryIDs)
	s.True(s.entryExists(series.Members[0].EntryID))
	s.True(s.entryExists(series.Members[1].EntryID))
	s.Equal(int64(-20000), s.balance(cardID))
}

func (s *LedgerEngineTestSuite) TestDeleteInstallment_AllKeepsPendingRootWithHistory() {
	series := s.installmentPlan(domain.StatusPending, domain.StatusCompleted, domain.StatusPending)
	root := series.Members[0]

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{
		OwnerID: ownerID, EntryID: series.Members[2].EntryID, Scope: domain.ScopeAll,
	})

	s.Require().NoError(err)
	s.Equal([]string{series.Members[2].EntryID}, res.DeletedEntryIDs)
	s.Empty(res.PromotedRootID)
	s.True(s.entryExists(root.EntryID))
	completed, err := s.store.FindEntryByID(s.ctx, series.Members[1].EntryID)
	s.Require().NoError(err)
	s.Equal(root.EntryID, completed.SeriesParentID)
	s.Equal(int64(-10000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteCompletedMember_RestoresBalance() {
	series := s.installmentPlan(domain.StatusCompleted, domain.StatusCompleted)

	_, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: series.Members[1].EntryID})

	s.Require().NoError(err)
	s.Equal(int64(-10000), s.balance(cardID))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestDeleteRecurring_AllKeepsCompletedHistory() {
	series := s.recurringTemplate(3, domain.StatusCompleted, domain.StatusCompleted, domain.StatusPending)
	header := series.Root
	pending := series.Members[2]

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{
		OwnerID: ownerID, EntryID: pending.EntryID, Scope: domain.ScopeAll,
	})

	s.Require().NoError(err)
	s.Equal([]string{pending.EntryID}, res.DeletedEntryIDs)
	s.Equal(header.EntryID, res.ClearedTemplateID)
	s.True(s.entryExists(series.Members[0].EntryID))
	s.True(s.entryExists(series.Members[1].EntryID))
	root, err := s.store.FindEntryByID(s.ctx, header.EntryID)
	s.Require().NoError(err)
	s.False(root.IsTemplate)
	s.Equal(int64(-10000), s.balance(cardID))
	s.assertBalancesMatchEntries()

	// A stopped template can no longer be extended.
	_, err = s.svc.Series.ExtendSeries(s.ctx, dto.ExtendSeriesRequest{OwnerID: ownerID, RootEntryID: header.EntryID, Count: 1})
	s.True(errors.Is(err, apperrors.ErrValidation))
}

func (s *LedgerEngineTestSuite) TestDeleteRecurring_StoppedHeaderIsReclaimed() {
	series := s.recurringTemplate(2, domain.StatusCompleted, domain.StatusCompleted)
	header := series.Root

	_, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: header.EntryID})
	s.Require().NoError(err)

	_, err = s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: series.Members[0].EntryID})
	s.Require().NoError(err)
	s.True(s.entryExists(header.EntryID))

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{OwnerID: ownerID, EntryID: series.Members[1].EntryID})
	s.Require().NoError(err)
	s.Equal(header.EntryID, res.ReclaimedRootID)
	s.Empty(s.store.AllEntries())
	s.Equal(int64(0), s.balance(cardID))
}

func (s *LedgerEngineTestSuite) TestDeleteRecurring_HeaderWithoutHistoryGoesEntirely() {
	series := s.recurringTemplate(2)

	res, err := s.svc.Entry.DeleteEntry(s.ctx, dto.DeleteEntryRequest{
		OwnerID: ownerID, EntryID: series.Root.EntryID, Scope: domain.ScopeCurrent,
	})

	s.Require().NoError(err)
	s.Equal(domain.ScopeAll, res.Scope)
	s.Len(res.DeletedEntryIDs, 3)
	s.Empty(s.store.AllEntries())
}
