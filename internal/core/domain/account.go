package domain

import "github.com/SscSPs/ledger_engine/internal/apperrors"

// AccountType defines what kind of money an account holds.
type AccountType string

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	Credit     AccountType = "CREDIT"
	Investment AccountType = "INVESTMENT"
	Voucher    AccountType = "VOUCHER"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Investment, Voucher:
		return true
	}
	return false
}

// Account represents a financial account owned by one user.
// Balance is materialized and owned exclusively by the balance reconciler.
type Account struct {
	AccountID   string      `json:"accountID"`
	OwnerID     string      `json:"ownerID"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Balance     int64       `json:"balance"`     // minor units; negative on a credit account is debt
	CreditLimit int64       `json:"creditLimit"` // credit accounts only
	ClosingDay  int         `json:"closingDay"`  // credit accounts only, 1..31
	DueDay      int         `json:"dueDay"`      // credit accounts only, 1..31
	AuditFields
}

// IsCredit reports whether the account is a credit card style account.
func (a Account) IsCredit() bool {
	return a.Type == Credit
}

// Debt returns the outstanding debt of a credit account.
func (a Account) Debt() int64 {
	if a.Balance >= 0 {
		return 0
	}
	return -a.Balance
}

// HasBillingCycle reports whether invoice periods can be computed for this account.
func (a Account) HasBillingCycle() bool {
	return a.IsCredit() && a.ClosingDay > 0 && a.DueDay > 0
}

// CheckBalanceChange validates applying delta to the balance. Only outflows
// (negative deltas) can be rejected: a credit account may not owe more than its
// limit and, unless overdraft is allowed, any other account may not go below zero.
func (a Account) CheckBalanceChange(delta int64, allowOverdraft bool) error {
	if delta >= 0 {
		return nil
	}
	projected := a.Balance + delta
	if a.IsCredit() {
		if -projected > a.CreditLimit {
			return apperrors.NewCreditLimitError(a.AccountID, a.CreditLimit+a.Balance, -delta)
		}
		return nil
	}
	if !allowOverdraft && projected < 0 {
		available := a.Balance
		if available < 0 {
			available = 0
		}
		return apperrors.NewInsufficientFundsError(a.AccountID, available, -delta)
	}
	return nil
}
