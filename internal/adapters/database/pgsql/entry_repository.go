package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/ledger_engine/internal/core/ports/repositories"
	"github.com/SscSPs/ledger_engine/internal/models"
	"github.com/jackc/pgx/v5"
)

type entryRepository struct {
	db dbtx
}

const entryColumns = `entry_id, owner_id, account_id, category_id, counter_account_id, peer_entry_id, series_parent_id,
	kind, status, amount, occurred_on, description, sequence_index, sequence_length, is_template, is_provisioned,
	invoice_period, frequency, created_at, created_by, last_updated_at, last_updated_by`

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Helper to convert domain.Entry to models.Entry for DB storage
func toModelEntry(d domain.Entry) models.Entry {
	m := models.Entry{
		EntryID:          d.EntryID,
		OwnerID:          d.OwnerID,
		AccountID:        d.AccountID,
		CategoryID:       nullString(d.CategoryID),
		CounterAccountID: nullString(d.CounterAccountID),
		PeerEntryID:      nullString(d.PeerEntryID),
		SeriesParentID:   nullString(d.SeriesParentID),
		Kind:             string(d.Kind),
		Status:           string(d.Status),
		Amount:           d.Amount,
		OccurredOn:       d.OccurredOn,
		Description:      d.Description,
		SequenceIndex:    d.SequenceIndex,
		SequenceLength:   d.SequenceLength,
		IsTemplate:       d.IsTemplate,
		IsProvisioned:    d.IsProvisioned,
		Frequency:        nullString(string(d.Frequency)),
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
	}
	if d.InvoicePeriod != nil {
		m.InvoicePeriod = nullString(d.InvoicePeriod.String())
	}
	return m
}

// Helper to convert models.Entry from DB to domain.Entry
func toDomainEntry(m models.Entry) (domain.Entry, error) {
	d := domain.Entry{
		EntryID:          m.EntryID,
		OwnerID:          m.OwnerID,
		Description:      m.Description,
		Amount:           m.Amount,
		OccurredOn:       domain.DateOnly(m.OccurredOn),
		Status:           domain.EntryStatus(m.Status),
		Kind:             domain.EntryKind(m.Kind),
		AccountID:        m.AccountID,
		CategoryID:       m.CategoryID.String,
		CounterAccountID: m.CounterAccountID.String,
		PeerEntryID:      m.PeerEntryID.String,
		SeriesParentID:   m.SeriesParentID.String,
		SequenceIndex:    m.SequenceIndex,
		SequenceLength:   m.SequenceLength,
		IsTemplate:       m.IsTemplate,
		IsProvisioned:    m.IsProvisioned,
		Frequency:        domain.Frequency(m.Frequency.String),
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
	if m.InvoicePeriod.Valid {
		p, err := domain.ParseInvoicePeriod(m.InvoicePeriod.String)
		if err != nil {
			return domain.Entry{}, fmt.Errorf("entry %s has a corrupt invoice period: %w", m.EntryID, err)
		}
		d.InvoicePeriod = &p
	}
	return d, nil
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var m models.Entry
	err := row.Scan(
		&m.EntryID,
		&m.OwnerID,
		&m.AccountID,
		&m.CategoryID,
		&m.CounterAccountID,
		&m.PeerEntryID,
		&m.SeriesParentID,
		&m.Kind,
		&m.Status,
		&m.Amount,
		&m.OccurredOn,
		&m.Description,
		&m.SequenceIndex,
		&m.SequenceLength,
		&m.IsTemplate,
		&m.IsProvisioned,
		&m.InvoicePeriod,
		&m.Frequency,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return domain.Entry{}, err
	}
	return toDomainEntry(m)
}

func (r *entryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

// FindEntryByID retrieves an entry by its ID.
func (r *entryRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE entry_id = $1;`
	e, err := scanEntry(r.db.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find entry by ID %s: %w", entryID, err)
	}
	return &e, nil
}

// FindSeriesMembers returns the root followed by its children ordered by date.
func (r *entryRepository) FindSeriesMembers(ctx context.Context, rootID string) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM entries
		WHERE entry_id = $1 OR series_parent_id = $1
		ORDER BY (entry_id = $1) DESC, occurred_on, entry_id;`
	entries, err := r.queryEntries(ctx, query, rootID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 || entries[0].EntryID != rootID {
		return nil, apperrors.ErrNotFound
	}
	return entries, nil
}

// ListEntriesByAccount reads one keyset page of an account's entries. The
// (account_id, occurred_on, entry_id) index serves both the filter and the order.
func (r *entryRepository) ListEntriesByAccount(ctx context.Context, accountID string, after *portsrepo.EntryCursor, limit int) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE account_id = $1`
	args := []any{accountID}
	if after != nil {
		query += ` AND (occurred_on, entry_id) > ($2, $3)`
		args = append(args, domain.DateOnly(after.OccurredOn), after.EntryID)
	}
	query += ` ORDER BY occurred_on, entry_id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return r.queryEntries(ctx, query+`;`, args...)
}

// SumRealizedByAccount sums the entries that count towards the account balance.
func (r *entryRepository) SumRealizedByAccount(ctx context.Context, accountID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM entries
		WHERE account_id = $1 AND status = 'COMPLETED' AND NOT is_provisioned AND NOT is_template;
	`
	var sum int64
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum entries of account %s: %w", accountID, err)
	}
	return sum, nil
}

// InsertEntries inserts the entries in one batch. Transfer peers may reference
// each other because the peer constraint is checked at commit.
func (r *entryRepository) InsertEntries(ctx context.Context, entries ...domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	batch := &pgx.Batch{}
	for _, e := range entries {
		m := toModelEntry(e)
		batch.Queue(query,
			m.EntryID, m.OwnerID, m.AccountID, m.CategoryID, m.CounterAccountID, m.PeerEntryID, m.SeriesParentID,
			m.Kind, m.Status, m.Amount, m.OccurredOn, m.Description, m.SequenceIndex, m.SequenceLength,
			m.IsTemplate, m.IsProvisioned, m.InvoicePeriod, m.Frequency, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	var batchErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = mapPgError(fmt.Errorf("failed to insert entry %s: %w", entries[i].EntryID, err))
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close entry insert batch: %w", err)
	}
	return batchErr
}

// UpdateEntry overwrites every mutable column of an entry.
func (r *entryRepository) UpdateEntry(ctx context.Context, entry domain.Entry) error {
	m := toModelEntry(entry)
	query := `
		UPDATE entries
		SET account_id = $2, category_id = $3, series_parent_id = $4, status = $5, amount = $6, occurred_on = $7,
			description = $8, is_template = $9, is_provisioned = $10, invoice_period = $11,
			last_updated_at = $12, last_updated_by = $13
		WHERE entry_id = $1;
	`
	ct, err := r.db.Exec(ctx, query,
		m.EntryID, m.AccountID, m.CategoryID, m.SeriesParentID, m.Status, m.Amount, m.OccurredOn,
		m.Description, m.IsTemplate, m.IsProvisioned, m.InvoicePeriod,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return mapPgError(fmt.Errorf("failed to update entry %s: %w", entry.EntryID, err))
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: entry %s", apperrors.ErrNotFound, entry.EntryID)
	}
	return nil
}

// DeleteEntries hard-deletes the given entries.
func (r *entryRepository) DeleteEntries(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM entries WHERE entry_id = ANY($1);`, entryIDs); err != nil {
		return mapPgError(fmt.Errorf("failed to delete entries: %w", err))
	}
	return nil
}

type operationRepository struct {
	db dbtx
}

// FindAppliedOperation retrieves the recorded result of an operation id.
func (r *operationRepository) FindAppliedOperation(ctx context.Context, operationID string) (*domain.AppliedOperation, error) {
	query := `SELECT operation_id, owner_id, kind, result, applied_at FROM applied_operations WHERE operation_id = $1;`
	var m models.AppliedOperation
	err := r.db.QueryRow(ctx, query, operationID).Scan(&m.OperationID, &m.OwnerID, &m.Kind, &m.Result, &m.AppliedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find applied operation %s: %w", operationID, err)
	}
	return &domain.AppliedOperation{
		OperationID: m.OperationID,
		OwnerID:     m.OwnerID,
		Kind:        domain.OperationKind(m.Kind),
		Result:      m.Result,
		AppliedAt:   m.AppliedAt,
	}, nil
}

// RecordOperation stores an operation result. A second record for the same id
// is rejected by the primary key.
func (r *operationRepository) RecordOperation(ctx context.Context, op domain.AppliedOperation) error {
	query := `
		INSERT INTO applied_operations (operation_id, owner_id, kind, result, applied_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	if _, err := r.db.Exec(ctx, query, op.OperationID, op.OwnerID, string(op.Kind), []byte(op.Result), op.AppliedAt); err != nil {
		return mapPgError(fmt.Errorf("failed to record operation %s: %w", op.OperationID, err))
	}
	return nil
}
