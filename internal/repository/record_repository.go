package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gradticket-bot/internal/model"
	"gradticket-bot/pkg/apperrors"
)

type RecordRepository interface {
	GetByKey(ctx context.Context, userName, ceremonyDate string) (*model.TicketRecord, error)
	ListByUser(ctx context.Context, userName string) ([]*model.TicketRecord, error)
	ListAll(ctx context.Context) ([]*model.TicketRecord, error)
	ScanByDateAndOperation(ctx context.Context, ceremonyDate string, operation model.Operation, activeOnly bool) ([]*model.TicketRecord, error)

	// BatchWrite applies deletes before adds as a single batch. A delete key
	// with an empty ceremony date removes every record for that user. The
	// last add per primary key wins upstream; here adds are plain upserts.
	BatchWrite(ctx context.Context, deletes []model.RecordKey, adds []*model.TicketRecord) error

	// UpdateAmount shifts a record's amount by delta, clamped at zero, and
	// returns the new amount.
	UpdateAmount(ctx context.Context, userName, ceremonyDate string, delta int) (int, error)
	SetAmount(ctx context.Context, userName, ceremonyDate string, amount int) error
	MarkResolved(ctx context.Context, userName, ceremonyDate, resolvedWith string) error
	SetLastNotified(ctx context.Context, userName, ceremonyDate string, notifiedAt time.Time) error
}

type RecordRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &RecordRepositoryImpl{
		pool: pool,
	}
}

const recordColumns = `user_name, ceremony_date, operation, amount, resolved, resolved_with, last_notified, created_at, updated_at`

func scanRecord(row pgx.Row) (*model.TicketRecord, error) {
	var record model.TicketRecord
	err := row.Scan(
		&record.UserName,
		&record.CeremonyDate,
		&record.Operation,
		&record.Amount,
		&record.Resolved,
		&record.ResolvedWith,
		&record.LastNotified,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RecordRepositoryImpl) GetByKey(ctx context.Context, userName, ceremonyDate string) (*model.TicketRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM ticket_records
		WHERE user_name = $1 AND ceremony_date = $2
	`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, strings.ToLower(userName), ceremonyDate))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

func (r *RecordRepositoryImpl) ListByUser(ctx context.Context, userName string) ([]*model.TicketRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM ticket_records
		WHERE user_name = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, strings.ToLower(userName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *RecordRepositoryImpl) ListAll(ctx context.Context) ([]*model.TicketRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM ticket_records
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *RecordRepositoryImpl) ScanByDateAndOperation(ctx context.Context, ceremonyDate string, operation model.Operation, activeOnly bool) ([]*model.TicketRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM ticket_records
		WHERE ceremony_date = $1 AND operation = $2
	`
	if activeOnly {
		query += ` AND amount > 0`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, ceremonyDate, operation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*model.TicketRecord, error) {
	records := make([]*model.TicketRecord, 0)

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *RecordRepositoryImpl) BatchWrite(ctx context.Context, deletes []model.RecordKey, adds []*model.TicketRecord) error {
	if len(deletes) == 0 && len(adds) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, key := range deletes {
		if key.IsUserWide() {
			batch.Queue(`DELETE FROM ticket_records WHERE user_name = $1`, key.UserName)
		} else {
			batch.Queue(`DELETE FROM ticket_records WHERE user_name = $1 AND ceremony_date = $2`,
				key.UserName, key.CeremonyDate)
		}
	}

	upsert := `
		INSERT INTO ticket_records (user_name, ceremony_date, operation, amount, resolved, resolved_with, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_name, ceremony_date) DO UPDATE
		SET operation = EXCLUDED.operation,
			amount = EXCLUDED.amount,
			resolved = EXCLUDED.resolved,
			resolved_with = EXCLUDED.resolved_with,
			last_notified = NULL,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now().UTC()
	for _, record := range adds {
		batch.Queue(upsert,
			strings.ToLower(record.UserName), record.CeremonyDate, record.Operation,
			record.Amount, record.Resolved, record.ResolvedWith, now)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

func (r *RecordRepositoryImpl) UpdateAmount(ctx context.Context, userName, ceremonyDate string, delta int) (int, error) {
	query := `
		UPDATE ticket_records
		SET amount = GREATEST(amount + $1, 0), updated_at = $2
		WHERE user_name = $3 AND ceremony_date = $4
		RETURNING amount
	`

	var amount int
	err := r.pool.QueryRow(ctx, query, delta, time.Now().UTC(), strings.ToLower(userName), ceremonyDate).Scan(&amount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, apperrors.ErrRecordNotFound
		}
		return 0, err
	}

	return amount, nil
}

func (r *RecordRepositoryImpl) SetAmount(ctx context.Context, userName, ceremonyDate string, amount int) error {
	if amount < 0 {
		return apperrors.ErrInvalidInput
	}

	query := `
		UPDATE ticket_records
		SET amount = $1, updated_at = $2
		WHERE user_name = $3 AND ceremony_date = $4
	`

	result, err := r.pool.Exec(ctx, query, amount, time.Now().UTC(), strings.ToLower(userName), ceremonyDate)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRecordNotFound
	}

	return nil
}

func (r *RecordRepositoryImpl) MarkResolved(ctx context.Context, userName, ceremonyDate, resolvedWith string) error {
	query := `
		UPDATE ticket_records
		SET resolved = TRUE, resolved_with = $1, updated_at = $2
		WHERE user_name = $3 AND ceremony_date = $4
	`

	result, err := r.pool.Exec(ctx, query, strings.ToLower(resolvedWith), time.Now().UTC(), strings.ToLower(userName), ceremonyDate)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRecordNotFound
	}

	return nil
}

func (r *RecordRepositoryImpl) SetLastNotified(ctx context.Context, userName, ceremonyDate string, notifiedAt time.Time) error {
	query := `
		UPDATE ticket_records
		SET last_notified = $1, updated_at = $2
		WHERE user_name = $3 AND ceremony_date = $4
	`

	result, err := r.pool.Exec(ctx, query, notifiedAt, time.Now().UTC(), strings.ToLower(userName), ceremonyDate)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrRecordNotFound
	}

	return nil
}
