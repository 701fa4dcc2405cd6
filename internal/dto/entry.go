package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// CreateEntryRequest defines the data needed to post an income or expense.
// Amount is a positive magnitude in minor units; the engine applies the sign.
type CreateEntryRequest struct {
	OperationID   string             `json:"operationID,omitempty"`
	OwnerID       string             `json:"ownerID" binding:"required"`
	EntryID       string             `json:"entryID,omitempty" binding:"omitempty,uuid"` // client-assigned for offline creates
	AccountID     string             `json:"accountID" binding:"required"`
	CategoryID    string             `json:"categoryID,omitempty"`
	Kind          domain.EntryKind   `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Amount        int64              `json:"amount" binding:"required,gt=0"`
	OccurredOn    time.Time          `json:"occurredOn" binding:"required"`
	Status        domain.EntryStatus `json:"status,omitempty" binding:"omitempty,oneof=PENDING COMPLETED"`
	Description   string             `json:"description,omitempty" binding:"max=255"`
	IsProvisioned bool               `json:"isProvisioned,omitempty"`
	InvoicePeriod string             `json:"invoicePeriod,omitempty" binding:"omitempty,datetime=2006-01"`
}

// EditEntryRequest carries a partial update. Nil fields are left untouched.
type EditEntryRequest struct {
	OperationID   string              `json:"operationID,omitempty"`
	OwnerID       string              `json:"ownerID" binding:"required"`
	EntryID       string              `json:"entryID" binding:"required"`
	AccountID     *string             `json:"accountID,omitempty"`
	CategoryID    *string             `json:"categoryID,omitempty"`
	Amount        *int64              `json:"amount,omitempty" binding:"omitempty,gt=0"`
	OccurredOn    *time.Time          `json:"occurredOn,omitempty"`
	Status        *domain.EntryStatus `json:"status,omitempty" binding:"omitempty,oneof=PENDING COMPLETED"`
	Description   *string             `json:"description,omitempty" binding:"omitempty,max=255"`
	IsProvisioned *bool               `json:"isProvisioned,omitempty"`
	InvoicePeriod *string             `json:"invoicePeriod,omitempty" binding:"omitempty,datetime=2006-01"`
}

// DeleteEntryRequest deletes an entry and, depending on Scope, part of its series.
type DeleteEntryRequest struct {
	OperationID string               `json:"operationID,omitempty"`
	OwnerID     string               `json:"ownerID" binding:"required"`
	EntryID     string               `json:"entryID" binding:"required"`
	Scope       domain.DeletionScope `json:"scope,omitempty" binding:"omitempty,oneof=CURRENT CURRENT_AND_REMAINING ALL"`
}

// DeleteResult reports what a scoped delete did.
type DeleteResult struct {
	Scope             domain.DeletionScope `json:"scope"`
	DeletedEntryIDs   []string             `json:"deletedEntryIDs"`
	ClearedTemplateID string               `json:"clearedTemplateID,omitempty"`
	ReclaimedRootID   string               `json:"reclaimedRootID,omitempty"`
	PromotedRootID    string               `json:"promotedRootID,omitempty"`
	Balances          map[string]int64     `json:"balances"` // recomputed balance per touched account
}

// EntryResponse is the wire form of an entry.
type EntryResponse struct {
	EntryID          string             `json:"entryID"`
	OwnerID          string             `json:"ownerID"`
	AccountID        string             `json:"accountID"`
	CategoryID       string             `json:"categoryID,omitempty"`
	Kind             domain.EntryKind   `json:"kind"`
	Amount           int64              `json:"amount"`
	AmountDisplay    string             `json:"amountDisplay"`
	OccurredOn       string             `json:"occurredOn"`
	Status           domain.EntryStatus `json:"status"`
	Description      string             `json:"description,omitempty"`
	CounterAccountID string             `json:"counterAccountID,omitempty"`
	PeerEntryID      string             `json:"peerEntryID,omitempty"`
	SeriesParentID   string             `json:"seriesParentID,omitempty"`
	SequenceIndex    int                `json:"sequenceIndex,omitempty"`
	SequenceLength   int                `json:"sequenceLength,omitempty"`
	IsTemplate       bool               `json:"isTemplate"`
	IsProvisioned    bool               `json:"isProvisioned"`
	InvoicePeriod    string             `json:"invoicePeriod,omitempty"`
	Frequency        domain.Frequency   `json:"frequency,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	LastUpdatedAt    time.Time          `json:"lastUpdatedAt"`
}

// ToEntryResponse converts a domain.Entry to EntryResponse DTO
func ToEntryResponse(e *domain.Entry) EntryResponse {
	res := EntryResponse{
		EntryID:          e.EntryID,
		OwnerID:          e.OwnerID,
		AccountID:        e.AccountID,
		CategoryID:       e.CategoryID,
		Kind:             e.Kind,
		Amount:           e.Amount,
		AmountDisplay:    FormatMinor(e.Amount),
		OccurredOn:       e.OccurredOn.Format(DateLayout),
		Status:           e.Status,
		Description:      e.Description,
		CounterAccountID: e.CounterAccountID,
		PeerEntryID:      e.PeerEntryID,
		SeriesParentID:   e.SeriesParentID,
		SequenceIndex:    e.SequenceIndex,
		SequenceLength:   e.SequenceLength,
		IsTemplate:       e.IsTemplate,
		IsProvisioned:    e.IsProvisioned,
		Frequency:        e.Frequency,
		CreatedAt:        e.CreatedAt,
		LastUpdatedAt:    e.LastUpdatedAt,
	}
	if e.InvoicePeriod != nil {
		res.InvoicePeriod = e.InvoicePeriod.String()
	}
	return res
}

// ToEntryResponses converts a slice of entries.
func ToEntryResponses(entries []domain.Entry) []EntryResponse {
	res := make([]EntryResponse, len(entries))
	for i := range entries {
		res[i] = ToEntryResponse(&entries[i])
	}
	return res
}

// ToDomain converts the wire form back into a domain.Entry.
func (r EntryResponse) ToDomain() (domain.Entry, error) {
	occurredOn, err := time.Parse(DateLayout, r.OccurredOn)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: entry %s has invalid date %q", apperrors.ErrValidation, r.EntryID, r.OccurredOn)
	}
	e := domain.Entry{
		EntryID:          r.EntryID,
		OwnerID:          r.OwnerID,
		AccountID:        r.AccountID,
		CategoryID:       r.CategoryID,
		Kind:             r.Kind,
		Amount:           r.Amount,
		OccurredOn:       occurredOn,
		Status:           r.Status,
		Description:      r.Description,
		CounterAccountID: r.CounterAccountID,
		PeerEntryID:      r.PeerEntryID,
		SeriesParentID:   r.SeriesParentID,
		SequenceIndex:    r.SequenceIndex,
		SequenceLength:   r.SequenceLength,
		IsTemplate:       r.IsTemplate,
		IsProvisioned:    r.IsProvisioned,
		Frequency:        r.Frequency,
		AuditFields: domain.AuditFields{
			CreatedAt:     r.CreatedAt,
			LastUpdatedAt: r.LastUpdatedAt,
		},
	}
	if r.InvoicePeriod != "" {
		period, err := domain.ParseInvoicePeriod(r.InvoicePeriod)
		if err != nil {
			return domain.Entry{}, err
		}
		e.InvoicePeriod = &period
	}
	return e, nil
}

// FromEntryResponses converts a slice of wire entries.
func FromEntryResponses(res []EntryResponse) ([]domain.Entry, error) {
	entries := make([]domain.Entry, len(res))
	for i := range res {
		e, err := res[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

// ListEntriesParams selects one page of an account's entries.
type ListEntriesParams struct {
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken string `form:"nextToken"`
}

// ListEntriesResponse is one page of entries ordered by date then id.
// NextToken is empty on the last page.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken string          `json:"nextToken,omitempty"`
}
