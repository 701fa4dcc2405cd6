package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// EntryCursor is the sort key (date, entry id) of the last entry already seen.
type EntryCursor struct {
	OccurredOn time.Time
	EntryID    string
}

// EntryReader defines read operations for ledger entries.
type EntryReader interface {
	// FindEntryByID retrieves an entry by id or returns apperrors.ErrNotFound.
	FindEntryByID(ctx context.Context, entryID string) (*domain.Entry, error)

	// FindSeriesMembers returns the root with the given id followed by every entry
	// whose series parent is that root, ordered by date.
	FindSeriesMembers(ctx context.Context, rootID string) ([]domain.Entry, error)

	// ListEntriesByAccount returns entries posted to the account ordered by (date, id),
	// starting strictly after the cursor when one is given. A limit of zero or less
	// returns everything that remains.
	ListEntriesByAccount(ctx context.Context, accountID string, after *EntryCursor, limit int) ([]domain.Entry, error)

	// SumRealizedByAccount sums the amounts of completed, non-provisioned, non-template entries.
	SumRealizedByAccount(ctx context.Context, accountID string) (int64, error)
}

// EntryWriter defines write operations for ledger entries. Only valid inside an atomic unit.
type EntryWriter interface {
	InsertEntries(ctx context.Context, entries ...domain.Entry) error
	UpdateEntry(ctx context.Context, entry domain.Entry) error
	DeleteEntries(ctx context.Context, entryIDs []string) error
}
