package services_test

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

func (s *LedgerEngineTestSuite) TestRecomputeBalance_FixesDriftAndIsIdempotent() {
	s.fund(checkingID, 5000)
	_, err := s.expense(checkingID, 1200, day(2025, time.March, 2))
	s.Require().NoError(err)

	// Corrupt the stored balance.
	s.store.PutAccount(domain.Account{AccountID: checkingID, OwnerID: ownerID, Name: "Checking", Type: domain.Checking, Balance: 99})

	drifts, err := s.svc.Balance.VerifyBalances(s.ctx, ownerID)
	s.Require().NoError(err)
	s.Require().Len(drifts, 1)
	s.Equal(checkingID, drifts[0].AccountID)
	s.Equal(int64(99), drifts[0].Stored)
	s.Equal(int64(3800), drifts[0].Computed)
	s.Equal(int64(3701), drifts[0].Delta())

	first, err := s.svc.Balance.RecomputeBalance(s.ctx, ownerID, checkingID)
	s.Require().NoError(err)
	second, err := s.svc.Balance.RecomputeBalance(s.ctx, ownerID, checkingID)
	s.Require().NoError(err)

	s.Equal(int64(3800), first)
	s.Equal(first, second)
	s.Equal(int64(3800), s.balance(checkingID))
	drifts, err = s.svc.Balance.VerifyBalances(s.ctx, ownerID)
	s.Require().NoError(err)
	s.Empty(drifts)
}

func (s *LedgerEngineTestSuite) TestRecomputeBalance_ForeignAccount() {
	_, err := s.svc.Balance.RecomputeBalance(s.ctx, ownerID, foreignID)
	s.Error(err)
}

func (s *LedgerEngineTestSuite) TestListBalances_OwnAccountsOnly() {
	s.fund(checkingID, 5000)
	_, err := s.expense(cardID, 700, day(2025, time.March, 2))
	s.Require().NoError(err)

	balances, err := s.svc.Balance.ListBalances(s.ctx, ownerID)

	s.Require().NoError(err)
	s.Equal(int64(5000), balances[checkingID])
	s.Equal(int64(-700), balances[cardID])
	s.Contains(balances, savingsID)
	s.NotContains(balances, foreignID)
}
