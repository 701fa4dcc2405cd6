package domain

import "time"

// EntryKind classifies an entry. The sign of Amount encodes direction, not the kind.
type EntryKind string

const (
	KindIncome      EntryKind = "INCOME"
	KindExpense     EntryKind = "EXPENSE"
	KindTransferOut EntryKind = "TRANSFER_OUT"
)

// EntryStatus indicates whether an entry has moved money yet.
type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Entry is one ledger record: an income, an expense, or one leg of a transfer.
type Entry struct {
	EntryID          string         `json:"entryID"`
	OwnerID          string         `json:"ownerID"`
	Description      string         `json:"description"`
	Amount           int64          `json:"amount"` // signed minor units
	OccurredOn       time.Time      `json:"occurredOn"`
	Status           EntryStatus    `json:"status"`
	Kind             EntryKind      `json:"kind"`
	AccountID        string         `json:"accountID"`
	CategoryID       string         `json:"categoryID,omitempty"`
	CounterAccountID string         `json:"counterAccountID,omitempty"` // transfer legs only
	PeerEntryID      string         `json:"peerEntryID,omitempty"`      // transfer legs only
	SeriesParentID   string         `json:"seriesParentID,omitempty"`
	SequenceIndex    int            `json:"sequenceIndex,omitempty"`  // 1-based, installments only
	SequenceLength   int            `json:"sequenceLength,omitempty"` // installments only
	IsTemplate       bool           `json:"isTemplate"`
	IsProvisioned    bool           `json:"isProvisioned"`
	InvoicePeriod    *InvoicePeriod `json:"invoicePeriod,omitempty"`
	Frequency        Frequency      `json:"frequency,omitempty"` // series roots only
	AuditFields
}

// SignedAmount applies the direction implied by kind to a positive magnitude.
// The incoming leg of a transfer is an income entry and so stays positive.
func SignedAmount(kind EntryKind, magnitude int64) int64 {
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch kind {
	case KindExpense, KindTransferOut:
		return -magnitude
	default:
		return magnitude
	}
}

// IsRealized reports whether the entry counts towards its account's balance.
func (e Entry) IsRealized() bool {
	return e.Status == StatusCompleted && !e.IsProvisioned && !e.IsTemplate
}

// BalanceContribution is the amount this entry adds to its account's balance.
func (e Entry) BalanceContribution() int64 {
	if !e.IsRealized() {
		return 0
	}
	return e.Amount
}

// IsTransferLeg reports whether the entry is one side of a transfer pair.
func (e Entry) IsTransferLeg() bool {
	return e.PeerEntryID != ""
}

// IsSeriesHeader reports whether the entry is a dedicated non-spending series root.
// Installment roots are real members (SequenceIndex 1) and are not headers.
func (e Entry) IsSeriesHeader() bool {
	return e.SeriesParentID == "" && e.SequenceIndex == 0 && e.IsTemplate
}

// SeriesRootID returns the id of the series root this entry belongs to,
// the entry's own id if it is a root, or "" when the entry is standalone.
func (e Entry) SeriesRootID() string {
	if e.SeriesParentID != "" {
		return e.SeriesParentID
	}
	if e.IsTemplate || e.SequenceIndex > 0 {
		return e.EntryID
	}
	return ""
}

// TransferPair holds both legs of a transfer.
type TransferPair struct {
	Out Entry `json:"out"`
	In  Entry `json:"in"`
}
