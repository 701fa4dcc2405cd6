package dto

import (
	"sort"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// AccountBalanceResponse defines the data returned after a balance recompute.
type AccountBalanceResponse struct {
	AccountID      string `json:"accountID"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balanceDisplay"`
}

// NewAccountBalanceResponse formats a balance in minor units.
func NewAccountBalanceResponse(accountID string, balance int64) AccountBalanceResponse {
	return AccountBalanceResponse{AccountID: accountID, Balance: balance, BalanceDisplay: FormatMinor(balance)}
}

// AccountBalancesResponse lists the stored balance of each account, ordered by account id.
type AccountBalancesResponse struct {
	Balances []AccountBalanceResponse `json:"balances"`
}

// NewAccountBalancesResponse orders balances by account id.
func NewAccountBalancesResponse(balances map[string]int64) AccountBalancesResponse {
	ids := make([]string, 0, len(balances))
	for id := range balances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := AccountBalancesResponse{Balances: make([]AccountBalanceResponse, 0, len(ids))}
	for _, id := range ids {
		res.Balances = append(res.Balances, NewAccountBalanceResponse(id, balances[id]))
	}
	return res
}

// Map converts the list back into balances keyed by account id.
func (r AccountBalancesResponse) Map() map[string]int64 {
	m := make(map[string]int64, len(r.Balances))
	for _, b := range r.Balances {
		m[b.AccountID] = b.Balance
	}
	return m
}

// BalanceDriftResponse lists accounts whose stored balance disagrees with their entries.
type BalanceDriftResponse struct {
	Drifts []domain.BalanceDrift `json:"drifts"`
}
