package dto

import (
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// CreateTransferRequest moves Amount minor units from one account to another.
type CreateTransferRequest struct {
	OperationID   string             `json:"operationID,omitempty"`
	OwnerID       string             `json:"ownerID" binding:"required"`
	OutEntryID    string             `json:"outEntryID,omitempty" binding:"omitempty,uuid"`
	InEntryID     string             `json:"inEntryID,omitempty" binding:"omitempty,uuid"`
	FromAccountID string             `json:"fromAccountID" binding:"required"`
	ToAccountID   string             `json:"toAccountID" binding:"required,nefield=FromAccountID"`
	Amount        int64              `json:"amount" binding:"required,gt=0"`
	OccurredOn    time.Time          `json:"occurredOn" binding:"required"`
	Status        domain.EntryStatus `json:"status,omitempty" binding:"omitempty,oneof=PENDING COMPLETED"`
	Description   string             `json:"description,omitempty" binding:"max=255"`
}

// DeleteTransferRequest deletes both legs of the transfer that EntryID belongs to.
type DeleteTransferRequest struct {
	OperationID string `json:"operationID,omitempty"`
	OwnerID     string `json:"ownerID" binding:"required"`
	EntryID     string `json:"entryID" binding:"required"`
}

// TransferResponse is the wire form of a transfer pair.
type TransferResponse struct {
	Out EntryResponse `json:"out"`
	In  EntryResponse `json:"in"`
}

// ToTransferResponse converts a domain.TransferPair.
func ToTransferResponse(p *domain.TransferPair) TransferResponse {
	return TransferResponse{Out: ToEntryResponse(&p.Out), In: ToEntryResponse(&p.In)}
}

// ToDomain converts the wire form back into a domain.TransferPair.
func (r TransferResponse) ToDomain() (domain.TransferPair, error) {
	out, err := r.Out.ToDomain()
	if err != nil {
		return domain.TransferPair{}, err
	}
	in, err := r.In.ToDomain()
	if err != nil {
		return domain.TransferPair{}, err
	}
	return domain.TransferPair{Out: out, In: in}, nil
}
