package dto

import (
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// BulkApplyRequest posts many entries and transfers for one owner.
// Item OwnerIDs may be left empty; they inherit OwnerID.
type BulkApplyRequest struct {
	OwnerID   string                  `json:"ownerID" binding:"required"`
	Entries   []CreateEntryRequest    `json:"entries,omitempty" binding:"max=500"`
	Transfers []CreateTransferRequest `json:"transfers,omitempty" binding:"max=500"`
}

// BulkItemResult is the outcome of one bulk item. Exactly one of Entry, Transfer or Error is set.
type BulkItemResult struct {
	Index    int                  `json:"index"`
	Entry    *domain.Entry        `json:"entry,omitempty"`
	Transfer *domain.TransferPair `json:"transfer,omitempty"`
	Error    string               `json:"error,omitempty"`
	Code     string               `json:"code,omitempty"`
}

// Failed reports whether the item was rejected.
func (r BulkItemResult) Failed() bool {
	return r.Error != ""
}

// BulkApplyResult is positionally aligned with the request: EntryResults[i]
// belongs to Entries[i] and TransferResults[j] to Transfers[j].
type BulkApplyResult struct {
	EntryResults    []BulkItemResult `json:"entryResults"`
	TransferResults []BulkItemResult `json:"transferResults"`
	Balances        map[string]int64 `json:"balances"`
}

// Counts returns the number of succeeded and failed items.
func (r *BulkApplyResult) Counts() (succeeded, failed int) {
	for _, items := range [][]BulkItemResult{r.EntryResults, r.TransferResults} {
		for _, it := range items {
			if it.Failed() {
				failed++
			} else {
				succeeded++
			}
		}
	}
	return succeeded, failed
}

// Err returns ErrPartialBatchFailure when some items failed and others succeeded.
// When every item failed it returns the first item's error kind.
func (r *BulkApplyResult) Err() error {
	succeeded, failed := r.Counts()
	switch {
	case failed == 0:
		return nil
	case succeeded == 0:
		return fmt.Errorf("all %d bulk items failed: %w", failed, apperrors.FromCode(r.firstFailure().Code))
	default:
		return fmt.Errorf("%w: %d of %d items failed", apperrors.ErrPartialBatchFailure, failed, failed+succeeded)
	}
}

func (r *BulkApplyResult) firstFailure() BulkItemResult {
	for _, items := range [][]BulkItemResult{r.EntryResults, r.TransferResults} {
		for _, it := range items {
			if it.Failed() {
				return it
			}
		}
	}
	return BulkItemResult{}
}
