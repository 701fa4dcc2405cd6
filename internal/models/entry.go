package models

import (
	"database/sql"
	"time"
)

// Entry is the row shape of the entries table. Optional references are nullable
// so that foreign keys can be enforced on them.
type Entry struct {
	EntryID          string         `db:"entry_id"`
	OwnerID          string         `db:"owner_id"`
	AccountID        string         `db:"account_id"`
	CategoryID       sql.NullString `db:"category_id"`
	CounterAccountID sql.NullString `db:"counter_account_id"`
	PeerEntryID      sql.NullString `db:"peer_entry_id"`
	SeriesParentID   sql.NullString `db:"series_parent_id"`
	Kind             string         `db:"kind"`
	Status           string         `db:"status"`
	Amount           int64          `db:"amount"`
	OccurredOn       time.Time      `db:"occurred_on"`
	Description      string         `db:"description"`
	SequenceIndex    int            `db:"sequence_index"`
	SequenceLength   int            `db:"sequence_length"`
	IsTemplate       bool           `db:"is_template"`
	IsProvisioned    bool           `db:"is_provisioned"`
	InvoicePeriod    sql.NullString `db:"invoice_period"` // YYYY-MM
	Frequency        sql.NullString `db:"frequency"`
	AuditFields
}

// AppliedOperation is the row shape of the applied_operations table.
type AppliedOperation struct {
	OperationID string    `db:"operation_id"`
	OwnerID     string    `db:"owner_id"`
	Kind        string    `db:"kind"`
	Result      []byte    `db:"result"`
	AppliedAt   time.Time `db:"applied_at"`
}
