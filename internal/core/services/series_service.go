package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// seriesService implements the series generator.
type seriesService struct {
	*ledgerEngine
}

// NewSeriesService creates the series generator.
func NewSeriesService(store portsrepo.LedgerStore, options ...EngineOption) portssvc.SeriesSvcFacade {
	return &seriesService{ledgerEngine: newLedgerEngine(store, options...)}
}

func checkSeriesRequest(req dto.CreateSeriesRequest) error {
	if (req.Amount > 0) == (req.TotalAmount > 0) {
		return fmt.Errorf("%w: exactly one of amount and totalAmount must be set", apperrors.ErrValidation)
	}
	if req.Mode == domain.SeriesInstallment && req.Count < 1 {
		return fmt.Errorf("%w: an installment series needs at least one member", apperrors.ErrValidation)
	}
	if req.TotalAmount > 0 && req.Count < 1 {
		return fmt.Errorf("%w: totalAmount needs at least one member to split across", apperrors.ErrValidation)
	}
	if len(req.Statuses) > req.Count {
		return fmt.Errorf("%w: %d statuses given for %d members", apperrors.ErrValidation, len(req.Statuses), req.Count)
	}
	return nil
}

// CreateSeries builds an installment plan (member 1 is the root) or a recurring
// template (a non-spending header root plus materialized occurrences).
func (s *seriesService) CreateSeries(ctx context.Context, req dto.CreateSeriesRequest) (*domain.Series, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if err := checkSeriesRequest(req); err != nil {
		return nil, err
	}
	if req.Frequency == "" {
		req.Frequency = domain.FrequencyMonthly
	}
	series, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpCreateSeries,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*domain.Series, error) {
			return s.createSeriesInTx(ctx, tx, req)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to create series", slog.String("account_id", req.AccountID), slog.String("mode", string(req.Mode)))
		return nil, err
	}
	s.LogInfo(ctx, "Series created", slog.String("root_id", series.Root.EntryID), slog.Int("members", len(series.Members)))
	return series, nil
}

func (s *seriesService) createSeriesInTx(ctx context.Context, tx portsrepo.LedgerTx, req dto.CreateSeriesRequest) (*domain.Series, error) {
	accounts, err := s.lockOwnedAccounts(ctx, tx, req.OwnerID, req.AccountID)
	if err != nil {
		return nil, err
	}
	acc := accounts[req.AccountID]
	if err := s.checkCategory(ctx, tx, req.OwnerID, req.CategoryID); err != nil {
		return nil, err
	}

	amounts := make([]int64, req.Count)
	if req.TotalAmount > 0 {
		if amounts, err = domain.SplitAmount(req.TotalAmount, req.Count); err != nil {
			return nil, err
		}
	} else {
		for i := range amounts {
			amounts[i] = req.Amount
		}
	}

	rootID := req.RootEntryID
	if rootID == "" {
		rootID = s.newID()
	}
	start := domain.DateOnly(req.StartDate)

	member := func(i int, id string) (domain.Entry, error) {
		status := domain.StatusPending
		if i < len(req.Statuses) {
			status = req.Statuses[i]
		}
		e := domain.Entry{
			EntryID:       id,
			OwnerID:       req.OwnerID,
			Description:   req.Description,
			Amount:        domain.SignedAmount(req.Kind, amounts[i]),
			OccurredOn:    req.Frequency.Advance(start, i),
			Status:        status,
			Kind:          req.Kind,
			AccountID:     req.AccountID,
			CategoryID:    req.CategoryID,
			IsProvisioned: req.IsProvisioned,
		}
		period, err := invoicePeriodFor(acc, e.OccurredOn, "")
		if err != nil {
			return domain.Entry{}, err
		}
		e.InvoicePeriod = period
		s.stamp(ctx, &e, true)
		return e, nil
	}

	series := &domain.Series{Mode: req.Mode, Frequency: req.Frequency}
	var rows []domain.Entry

	switch req.Mode {
	case domain.SeriesInstallment:
		for i := 0; i < req.Count; i++ {
			id := rootID
			if i > 0 {
				id = s.newID()
			}
			m, err := member(i, id)
			if err != nil {
				return nil, err
			}
			m.SequenceIndex = i + 1
			m.SequenceLength = req.Count
			if i > 0 {
				m.SeriesParentID = rootID
			}
			series.Members = append(series.Members, m)
		}
		series.Members[0].Frequency = req.Frequency
		series.Root = series.Members[0]
		rows = series.Members
	case domain.SeriesRecurring:
		magnitude := req.Amount
		if magnitude == 0 {
			magnitude = amounts[len(amounts)-1]
		}
		header := domain.Entry{
			EntryID:       rootID,
			OwnerID:       req.OwnerID,
			Description:   req.Description,
			Amount:        domain.SignedAmount(req.Kind, magnitude),
			OccurredOn:    start,
			Status:        domain.StatusPending,
			Kind:          req.Kind,
			AccountID:     req.AccountID,
			CategoryID:    req.CategoryID,
			IsTemplate:    true,
			IsProvisioned: req.IsProvisioned,
			Frequency:     req.Frequency,
		}
		s.stamp(ctx, &header, true)
		series.Root = header
		rows = append(rows, header)
		for i := 0; i < req.Count; i++ {
			m, err := member(i, s.newID())
			if err != nil {
				return nil, err
			}
			m.SeriesParentID = rootID
			series.Members = append(series.Members, m)
		}
		rows = append(rows, series.Members...)
	default:
		return nil, fmt.Errorf("%w: unknown series mode %q", apperrors.ErrValidation, req.Mode)
	}

	var delta int64
	for _, r := range rows {
		delta += r.BalanceContribution()
	}
	if err := s.applyDeltas(ctx, tx, accounts, map[string]int64{acc.AccountID: delta}); err != nil {
		return nil, err
	}
	if err := tx.InsertEntries(ctx, rows...); err != nil {
		return nil, err
	}
	return series, nil
}

// ExtendSeries materializes further pending occurrences of a recurring template,
// continuing the template's schedule after its latest occurrence. The schedule
// is the one stored on the template; a request naming another frequency is rejected.
func (s *seriesService) ExtendSeries(ctx context.Context, req dto.ExtendSeriesRequest) (*domain.Series, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	series, err := runOperation(ctx, s.ledgerEngine, req.OwnerID, req.OperationID, domain.OpExtendSeries,
		func(ctx context.Context, tx portsrepo.LedgerTx) (*domain.Series, error) {
			return s.extendSeriesInTx(ctx, tx, req)
		})
	if err != nil {
		s.LogError(ctx, err, "Failed to extend series", slog.String("root_id", req.RootEntryID))
		return nil, err
	}
	return series, nil
}

func (s *seriesService) extendSeriesInTx(ctx context.Context, tx portsrepo.LedgerTx, req dto.ExtendSeriesRequest) (*domain.Series, error) {
	root, err := loadOwnedEntry(ctx, tx, req.OwnerID, req.RootEntryID)
	if err != nil {
		return nil, err
	}
	if !root.IsSeriesHeader() {
		return nil, fmt.Errorf("%w: entry %s is not an active recurring template", apperrors.ErrValidation, req.RootEntryID)
	}
	accounts, err := s.lockOwnedAccounts(ctx, tx, req.OwnerID, root.AccountID)
	if err != nil {
		return nil, err
	}
	acc := accounts[root.AccountID]

	freq := root.Frequency
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	if req.Frequency != "" && req.Frequency != freq {
		return nil, fmt.Errorf("%w: template %s repeats %s, not %s", apperrors.ErrValidation, root.EntryID, freq, req.Frequency)
	}

	members, err := tx.FindSeriesMembers(ctx, root.EntryID)
	if err != nil {
		return nil, err
	}
	latest := root.OccurredOn.AddDate(0, 0, -1)
	for _, m := range members {
		if m.EntryID != root.EntryID && m.OccurredOn.After(latest) {
			latest = m.OccurredOn
		}
	}

	// Step along the template's own schedule so month-end anchors do not drift.
	step := 0
	for !freq.Advance(root.OccurredOn, step).After(latest) {
		step++
	}

	series := &domain.Series{Mode: domain.SeriesRecurring, Frequency: freq, Root: *root}
	for i := 0; i < req.Count; i++ {
		e := domain.Entry{
			EntryID:        s.newID(),
			OwnerID:        root.OwnerID,
			Description:    root.Description,
			Amount:         root.Amount,
			OccurredOn:     freq.Advance(root.OccurredOn, step+i),
			Status:         domain.StatusPending,
			Kind:           root.Kind,
			AccountID:      root.AccountID,
			CategoryID:     root.CategoryID,
			SeriesParentID: root.EntryID,
			IsProvisioned:  root.IsProvisioned,
		}
		if e.InvoicePeriod, err = invoicePeriodFor(acc, e.OccurredOn, ""); err != nil {
			return nil, err
		}
		s.stamp(ctx, &e, true)
		series.Members = append(series.Members, e)
	}
	if err := tx.InsertEntries(ctx, series.Members...); err != nil {
		return nil, err
	}
	return series, nil
}
