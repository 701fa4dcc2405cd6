package domain

import (
	"encoding/json"
	"time"
)

// OperationKind names the mutation an idempotency key was spent on.
type OperationKind string

const (
	OpCreateEntry    OperationKind = "CREATE_ENTRY"
	OpEditEntry      OperationKind = "EDIT_ENTRY"
	OpDeleteEntry    OperationKind = "DELETE_ENTRY"
	OpCreateTransfer OperationKind = "CREATE_TRANSFER"
	OpDeleteTransfer OperationKind = "DELETE_TRANSFER"
	OpCreateSeries   OperationKind = "CREATE_SERIES"
	OpExtendSeries   OperationKind = "EXTEND_SERIES"
)

// AppliedOperation records that a client operation id has already been applied,
// together with the JSON result returned the first time.
type AppliedOperation struct {
	OperationID string          `json:"operationID"`
	OwnerID     string          `json:"ownerID"`
	Kind        OperationKind   `json:"kind"`
	Result      json.RawMessage `json:"result"`
	AppliedAt   time.Time       `json:"appliedAt"`
}

// BalanceDrift is an account whose stored balance disagrees with its entries.
type BalanceDrift struct {
	AccountID string `json:"accountID"`
	Stored    int64  `json:"stored"`
	Computed  int64  `json:"computed"`
}

// Delta is the correction a recompute would apply.
func (d BalanceDrift) Delta() int64 {
	return d.Computed - d.Stored
}
