package offline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/dto"
	"github.com/google/uuid"
)

// ErrSyncInProgress is returned by Drain when another pass holds the sync lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrSyncAborted is returned by a pass that was cancelled through Abort or by its caller.
var ErrSyncAborted = errors.New("sync aborted")

const (
	DefaultMaxAttempts = 5
	DefaultPassTimeout = 30 * time.Second
)

// Outcome is what a drain pass did with one item.
type Outcome string

const (
	OutcomeApplied    Outcome = "APPLIED"
	OutcomeSuperseded Outcome = "SUPERSEDED"
	OutcomeRetry      Outcome = "RETRY"
	OutcomeFailed     Outcome = "FAILED"
)

// ItemResult reports the outcome of one item within a pass.
type ItemResult struct {
	ItemID  string  `json:"itemID"`
	Kind    OpKind  `json:"kind"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// DrainReport summarizes a pass. Remaining counts the items still pending afterwards.
type DrainReport struct {
	Applied    int          `json:"applied"`
	Failed     int          `json:"failed"`
	Remaining  int          `json:"remaining"`
	Superseded int          `json:"superseded"`
	Items      []ItemResult `json:"items,omitempty"`
}

// Status is a snapshot of the reconciler.
type Status struct {
	Online      bool         `json:"online"`
	InProgress  bool         `json:"inProgress"`
	ActiveLocks int          `json:"activeLocks"`
	Pending     int          `json:"pending"`
	Failed      int          `json:"failed"`
	LastRun     time.Time    `json:"lastRun,omitempty"`
	LastReport  *DrainReport `json:"lastReport,omitempty"`
}

// SyncState is the reconciler's in-memory coordination state. At most one pass
// runs at a time; cancel aborts it.
type SyncState struct {
	mu          sync.Mutex
	online      bool
	inProgress  bool
	activeLocks int
	cancel      context.CancelFunc
	lastRun     time.Time
	lastReport  *DrainReport
}

func (s *SyncState) begin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return false
	}
	s.inProgress = true
	s.cancel = cancel
	return true
}

func (s *SyncState) end(report DrainReport, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false
	s.cancel = nil
	s.lastRun = at
	s.lastReport = &report
}

func (s *SyncState) acquire() {
	s.mu.Lock()
	s.activeLocks++
	s.mu.Unlock()
}

func (s *SyncState) release() {
	s.mu.Lock()
	s.activeLocks--
	s.mu.Unlock()
}

// setOnline records connectivity and returns the previous value.
func (s *SyncState) setOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.online
	s.online = online
	return was
}

func (s *SyncState) abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *SyncState) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Online:      s.online,
		InProgress:  s.inProgress,
		ActiveLocks: s.activeLocks,
		LastRun:     s.lastRun,
		LastReport:  s.lastReport,
	}
}

// Reconciler replays the offline queue against a Remote.
type Reconciler struct {
	store       *Store
	remote      Remote
	state       *SyncState
	logger      *slog.Logger
	maxAttempts int
	passTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

// ReconcilerOption is a functional option for configuring the reconciler
type ReconcilerOption func(*Reconciler)

// WithMaxAttempts sets how many retryable failures an item may accumulate before it is marked failed.
func WithMaxAttempts(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithPassTimeout bounds the duration of one drain pass.
func WithPassTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.passTimeout = d
		}
	}
}

// WithClock overrides the clock used to stamp queue items.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithIDGenerator overrides how item and local entry ids are generated.
func WithIDGenerator(newID func() string) ReconcilerOption {
	return func(r *Reconciler) {
		r.newID = newID
	}
}

// NewReconciler creates a reconciler that starts in the disconnected state.
func NewReconciler(store *Store, remote Remote, logger *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		store:       store,
		remote:      remote,
		state:       &SyncState{},
		logger:      logger.With(slog.String("component", "offline_sync")),
		maxAttempts: DefaultMaxAttempts,
		passTimeout: DefaultPassTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue appends op to the queue. New entities get client-side ids, returned in the item.
func (r *Reconciler) Enqueue(ctx context.Context, op Operation) (Item, error) {
	if op == nil {
		return Item{}, fmt.Errorf("%w: operation is required", apperrors.ErrValidation)
	}
	if op.Owner() == "" {
		return Item{}, fmt.Errorf("%w: operation %s has no owner", apperrors.ErrValidation, op.Kind())
	}

	now := r.now()
	item := Item{
		ID:        r.newID(),
		Op:        assignLocalIDs(op, r.newID),
		Status:    ItemPending,
		QueuedAt:  now,
		UpdatedAt: now,
	}
	if err := r.store.Append(ctx, item); err != nil {
		r.logger.ErrorContext(ctx, "Failed to queue operation", "kind", op.Kind(), "error", err)
		return Item{}, err
	}
	r.logger.InfoContext(ctx, "Queued operation", "item_id", item.ID, "kind", op.Kind())
	return item, nil
}

// Drain replays pending items in queue order. Failed items are skipped and never
// block the rest. When the pass runs out of time the remaining items stay queued
// and the error wraps ErrSyncTimeout.
func (r *Reconciler) Drain(ctx context.Context) (DrainReport, error) {
	passCtx, cancel := context.WithTimeout(ctx, r.passTimeout)
	defer cancel()
	if !r.state.begin(cancel) {
		return DrainReport{}, ErrSyncInProgress
	}

	var report DrainReport
	defer func() { r.state.end(report, r.now()) }()

	items, err := r.store.Pending(passCtx)
	if err != nil {
		if passCtx.Err() != nil {
			return report, r.passError(ctx, passCtx)
		}
		return report, err
	}

	var passErr error
	for _, item := range items {
		if passCtx.Err() != nil {
			passErr = r.passError(ctx, passCtx)
			break
		}
		res := r.replayItem(passCtx, item)
		report.Items = append(report.Items, res)
		switch res.Outcome {
		case OutcomeApplied:
			report.Applied++
		case OutcomeSuperseded:
			report.Superseded++
		case OutcomeFailed:
			report.Failed++
		}
	}
	if passErr == nil && passCtx.Err() != nil {
		passErr = r.passError(ctx, passCtx)
	}

	counts, err := r.store.Counts(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count queue after drain", "error", err)
	}
	report.Remaining = counts.Pending

	r.logger.InfoContext(ctx, "Drain pass finished",
		"applied", report.Applied,
		"superseded", report.Superseded,
		"failed", report.Failed,
		"remaining", report.Remaining,
		"error", passErr,
	)
	return report, passErr
}

// passError classifies why a pass stopped early. Cancellation, through Abort or
// through the caller's context, is an abort; any deadline is a timeout.
func (r *Reconciler) passError(parent, passCtx context.Context) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return fmt.Errorf("%w: %w", ErrSyncAborted, parent.Err())
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrSyncTimeout, parent.Err())
	case errors.Is(passCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: pass exceeded %s", apperrors.ErrSyncTimeout, r.passTimeout)
	default:
		return ErrSyncAborted
	}
}

func (r *Reconciler) replayItem(ctx context.Context, item Item) ItemResult {
	r.state.acquire()
	defer r.state.release()

	res := ItemResult{ItemID: item.ID, Kind: item.Op.Kind()}
	// Bookkeeping after the remote call must land even if the pass is cut short.
	bookCtx := context.WithoutCancel(ctx)

	superseded, err := r.apply(ctx, bookCtx, withOperationID(item.Op, item.ID), item.QueuedAt)
	if err == nil {
		if err := r.store.MarkApplied(bookCtx, item.ID); err != nil {
			r.logger.ErrorContext(ctx, "Failed to dequeue applied item", "item_id", item.ID, "error", err)
			res.Outcome, res.Error = OutcomeRetry, err.Error()
			return res
		}
		res.Outcome = OutcomeApplied
		if superseded {
			res.Outcome = OutcomeSuperseded
			r.logger.InfoContext(ctx, "Local change superseded by newer remote state", "item_id", item.ID, "kind", res.Kind)
		}
		return res
	}

	res.Error = err.Error()
	if ctx.Err() != nil {
		// Cut off by timeout or abort; the attempt does not count.
		res.Outcome = OutcomeRetry
		return res
	}

	attempts := item.Attempts + 1
	failed := apperrors.IsTerminal(err) || attempts >= r.maxAttempts
	if recErr := r.store.RecordFailure(bookCtx, item.ID, attempts, err, failed, r.now()); recErr != nil {
		r.logger.ErrorContext(ctx, "Failed to record queue item failure", "item_id", item.ID, "error", recErr)
	}
	if failed {
		res.Outcome = OutcomeFailed
		r.logger.WarnContext(ctx, "Queue item failed", "item_id", item.ID, "kind", res.Kind, "attempts", attempts, "error", err)
	} else {
		res.Outcome = OutcomeRetry
		r.logger.WarnContext(ctx, "Queue item will be retried", "item_id", item.ID, "kind", res.Kind, "attempts", attempts, "error", err)
	}
	return res
}

// apply sends one operation to the remote and folds the result into the mirror.
// It reports superseded when a newer remote state won over the local change.
func (r *Reconciler) apply(ctx, bookCtx context.Context, op Operation, queuedAt time.Time) (bool, error) {
	switch v := op.(type) {
	case CreateEntryOp:
		e, err := r.remote.CreateEntry(ctx, v.Request)
		if err != nil {
			return false, err
		}
		if err := r.store.PutMirrorEntries(bookCtx, *e); err != nil {
			return false, err
		}
		return false, r.refreshBalances(ctx, bookCtx, e.OwnerID)

	case EditEntryOp:
		current, err := r.remote.GetEntry(ctx, v.Request.OwnerID, v.Request.EntryID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return true, r.store.DeleteMirrorEntries(bookCtx, v.Request.EntryID)
		}
		if err != nil {
			return false, err
		}
		if r.remoteWins(bookCtx, current, queuedAt) {
			return true, r.store.PutMirrorEntries(bookCtx, *current)
		}
		e, err := r.remote.EditEntry(ctx, v.Request)
		if err != nil {
			return false, err
		}
		if err := r.store.PutMirrorEntries(bookCtx, *e); err != nil {
			return false, err
		}
		if e.PeerEntryID != "" {
			if err := r.refreshMirror(ctx, bookCtx, e.OwnerID, e.PeerEntryID); err != nil {
				return false, err
			}
		}
		return false, r.refreshBalances(ctx, bookCtx, e.OwnerID)

	case DeleteEntryOp:
		return r.applyDelete(ctx, bookCtx, v.Request.OwnerID, v.Request.EntryID, queuedAt, func() (*dto.DeleteResult, error) {
			return r.remote.DeleteEntry(ctx, v.Request)
		})

	case CreateTransferOp:
		pair, err := r.remote.CreateTransfer(ctx, v.Request)
		if err != nil {
			return false, err
		}
		if err := r.store.PutMirrorEntries(bookCtx, pair.Out, pair.In); err != nil {
			return false, err
		}
		return false, r.refreshBalances(ctx, bookCtx, v.Request.OwnerID)

	case DeleteTransferOp:
		return r.applyDelete(ctx, bookCtx, v.Request.OwnerID, v.Request.EntryID, queuedAt, func() (*dto.DeleteResult, error) {
			return r.remote.DeleteTransfer(ctx, v.Request)
		})

	case CreateSeriesOp:
		series, err := r.remote.CreateSeries(ctx, v.Request)
		if err != nil {
			return false, err
		}
		entries := append([]domain.Entry{series.Root}, series.Members...)
		if err := r.store.PutMirrorEntries(bookCtx, entries...); err != nil {
			return false, err
		}
		return false, r.refreshBalances(ctx, bookCtx, v.Request.OwnerID)
	}
	return false, fmt.Errorf("%w: unsupported operation %T", apperrors.ErrValidation, op)
}

// stampPrecision is the finest timestamp resolution the server stores.
const stampPrecision = time.Microsecond

// remoteWins reports whether the remote entity changed after the local change
// was queued. A remote version equal to the mirrored one was produced by this
// client's own replays and does not count as a conflict. Stamps are compared
// at the server's storage precision.
func (r *Reconciler) remoteWins(ctx context.Context, current *domain.Entry, queuedAt time.Time) bool {
	remote := current.LastUpdatedAt.Truncate(stampPrecision)
	if !remote.After(queuedAt.Truncate(stampPrecision)) {
		return false
	}
	known, err := r.store.MirrorEntry(ctx, current.EntryID)
	if err == nil && known.LastUpdatedAt.Truncate(stampPrecision).Equal(remote) {
		return false
	}
	return true
}

// applyDelete treats a target that is already gone as applied and a target
// edited remotely after the delete was queued as superseded.
func (r *Reconciler) applyDelete(ctx, bookCtx context.Context, ownerID, entryID string, queuedAt time.Time, del func() (*dto.DeleteResult, error)) (bool, error) {
	current, err := r.remote.GetEntry(ctx, ownerID, entryID)
	if errors.Is(err, apperrors.ErrNotFound) {
		if err := r.store.DeleteMirrorEntries(bookCtx, entryID); err != nil {
			return false, err
		}
		return false, r.refreshBalances(ctx, bookCtx, ownerID)
	}
	if err != nil {
		return false, err
	}
	if r.remoteWins(bookCtx, current, queuedAt) {
		return true, r.store.PutMirrorEntries(bookCtx, *current)
	}

	res, err := del()
	if err != nil {
		return false, err
	}
	if err := r.store.DeleteMirrorEntries(bookCtx, res.DeletedEntryIDs...); err != nil {
		return false, err
	}
	if err := r.store.PutMirrorBalances(bookCtx, ownerID, res.Balances, r.now()); err != nil {
		return false, err
	}
	var touched []string
	for _, id := range []string{res.ClearedTemplateID, res.PromotedRootID} {
		if id != "" {
			touched = append(touched, id)
		}
	}
	return false, r.refreshMirror(ctx, bookCtx, ownerID, touched...)
}

// refreshMirror reloads entries from the remote. Entries that no longer exist are dropped.
func (r *Reconciler) refreshMirror(ctx, bookCtx context.Context, ownerID string, ids ...string) error {
	for _, id := range ids {
		e, err := r.remote.GetEntry(ctx, ownerID, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := r.store.DeleteMirrorEntries(bookCtx, id); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			r.logger.WarnContext(ctx, "Failed to refresh mirror entry", "entry_id", id, "error", err)
			continue
		}
		if err := r.store.PutMirrorEntries(bookCtx, *e); err != nil {
			return err
		}
	}
	return nil
}

// refreshBalances reloads ownerID's account balances when the remote can report
// them. A failed read leaves the mirror stale but does not fail the item.
func (r *Reconciler) refreshBalances(ctx, bookCtx context.Context, ownerID string) error {
	reader, ok := r.remote.(BalanceReader)
	if !ok {
		return nil
	}
	balances, err := reader.ListBalances(ctx, ownerID)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to refresh mirror balances", "owner_id", ownerID, "error", err)
		return nil
	}
	return r.store.PutMirrorBalances(bookCtx, ownerID, balances, r.now())
}

// Abort cancels the pass in flight, if any. Items not yet replayed stay queued.
func (r *Reconciler) Abort() bool {
	aborted := r.state.abort()
	if aborted {
		r.logger.Info("Drain pass aborted")
	}
	return aborted
}

// ClearFailed drops failed items and returns how many were removed.
func (r *Reconciler) ClearFailed(ctx context.Context) (int, error) {
	n, err := r.store.ClearFailed(ctx)
	if err != nil {
		return 0, err
	}
	r.logger.InfoContext(ctx, "Cleared failed queue items", "count", n)
	return n, nil
}

// Status reports connectivity, pass state and queue counts.
func (r *Reconciler) Status(ctx context.Context) (Status, error) {
	st := r.state.snapshot()
	counts, err := r.store.Counts(ctx)
	if err != nil {
		return st, err
	}
	st.Pending = counts.Pending
	st.Failed = counts.Failed
	return st, nil
}

// SetOnline records a connectivity change. Going online drains the queue and
// returns the pass report; going offline aborts a running pass.
func (r *Reconciler) SetOnline(ctx context.Context, online bool) (*DrainReport, error) {
	was := r.state.setOnline(online)
	if !online {
		if was {
			r.logger.InfoContext(ctx, "Connection lost")
			r.Abort()
		}
		return nil, nil
	}
	if was {
		return nil, nil
	}
	r.logger.InfoContext(ctx, "Connection restored, draining queue")
	report, err := r.Drain(ctx)
	return &report, err
}
