package services_test

import (
	"errors"
	"sync"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/dto"
)

// runConcurrently starts n calls of fn at once and returns their errors by index.
func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func (s *LedgerEngineTestSuite) TestConcurrentExpensesNeverExceedCreditLimit() {
	const workers = 8 // 8 x 40000 against a 200000 limit

	errs := runConcurrently(workers, func(i int) error {
		_, err := s.expense(cardID, 40000, day(2025, time.March, 2))
		return err
	})

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, apperrors.ErrCreditLimitExceeded), errors.Is(err, apperrors.ErrConcurrentModification):
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(5, accepted)
	s.Equal(int64(-200000), s.balance(cardID))
	s.LessOrEqual(-s.balance(cardID), int64(200000))
	s.assertBalancesMatchEntries()
}

func (s *LedgerEngineTestSuite) TestOppositeTransfersBetweenSamePair() {
	s.fund(checkingID, 100000)
	s.fund(savingsID, 100000)
	const workers = 10

	errs := runConcurrently(workers, func(i int) error {
		from, to := checkingID, savingsID
		if i%2 == 1 {
			from, to = savingsID, checkingID
		}
		_, err := s.svc.Transfer.CreateTransfer(s.ctx, dto.CreateTransferRequest{
			OwnerID: ownerID, FromAccountID: from, ToAccountID: to, Amount: 1000 * int64(i+1), OccurredOn: day(2025, time.March, 2),
		})
		return err
	})

	for i, err := range errs {
		s.NoError(err, "transfer %d", i)
	}
	// Even workers move 1000+3000+...+9000 out of checking, odd ones 2000+...+10000 back.
	s.Equal(int64(105000), s.balance(checkingID))
	s.Equal(int64(95000), s.balance(savingsID))
	s.assertBalancesMatchEntries()
	s.assertTransferLinks()
}
