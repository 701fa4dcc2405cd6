package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// CreateSeriesRequest builds an installment plan or a recurring template.
// Exactly one of Amount (per member) or TotalAmount (split across members) is set.
// For installments Count is the sequence length; for recurring templates it is the
// number of occurrences materialized up front and may be zero.
type CreateSeriesRequest struct {
	OperationID   string               `json:"operationID,omitempty"`
	OwnerID       string               `json:"ownerID" binding:"required"`
	RootEntryID   string               `json:"rootEntryID,omitempty" binding:"omitempty,uuid"`
	Mode          domain.SeriesMode    `json:"mode" binding:"required,oneof=INSTALLMENT RECURRING"`
	Frequency     domain.Frequency     `json:"frequency,omitempty" binding:"omitempty,oneof=WEEKLY MONTHLY YEARLY"`
	AccountID     string               `json:"accountID" binding:"required"`
	CategoryID    string               `json:"categoryID,omitempty"`
	Kind          domain.EntryKind     `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Amount        int64                `json:"amount,omitempty" binding:"omitempty,gt=0"`
	TotalAmount   int64                `json:"totalAmount,omitempty" binding:"omitempty,gt=0"`
	StartDate     time.Time            `json:"startDate" binding:"required"`
	Count         int                  `json:"count" binding:"min=0,max=600"`
	Statuses      []domain.EntryStatus `json:"statuses,omitempty" binding:"omitempty,dive,oneof=PENDING COMPLETED"`
	Description   string               `json:"description,omitempty" binding:"max=255"`
	IsProvisioned bool                 `json:"isProvisioned,omitempty"`
}

// ExtendSeriesRequest materializes Count more occurrences of a recurring template.
type ExtendSeriesRequest struct {
	OperationID string           `json:"operationID,omitempty"`
	OwnerID     string           `json:"ownerID" binding:"required"`
	RootEntryID string           `json:"rootEntryID" binding:"required"`
	Frequency   domain.Frequency `json:"frequency,omitempty" binding:"omitempty,oneof=WEEKLY MONTHLY YEARLY"`
	Count       int              `json:"count" binding:"required,min=1,max=600"`
}

// SeriesResponse is the wire form of a series.
type SeriesResponse struct {
	Mode      domain.SeriesMode `json:"mode"`
	Frequency domain.Frequency  `json:"frequency"`
	Root      EntryResponse     `json:"root"`
	Members   []EntryResponse   `json:"members"`
}

// ToSeriesResponse converts a domain.Series.
func ToSeriesResponse(s *domain.Series) SeriesResponse {
	return SeriesResponse{
		Mode:      s.Mode,
		Frequency: s.Frequency,
		Root:      ToEntryResponse(&s.Root),
		Members:   ToEntryResponses(s.Members),
	}
}

// ToDomain converts the wire form back into a domain.Series.
func (r SeriesResponse) ToDomain() (domain.Series, error) {
	root, err := r.Root.ToDomain()
	if err != nil {
		return domain.Series{}, err
	}
	members, err := FromEntryResponses(r.Members)
	if err != nil {
		return domain.Series{}, err
	}
	return domain.Series{Mode: r.Mode, Frequency: r.Frequency, Root: root, Members: members}, nil
}
