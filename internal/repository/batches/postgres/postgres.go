package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"batchmark/internal/domain"
	"batchmark/internal/repository/batches"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type BatchRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewBatchRepository(db *dbpg.DB, retries retry.Strategy) *BatchRepository {
	return &BatchRepository{
		db:      db,
		retries: retries,
	}
}

func (r *BatchRepository) Save(ctx context.Context, b *domain.Batch) error {
	query := `
		INSERT INTO batches (
			id, status, total, completed, succeeded, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecWithRetry(ctx, r.retries, query,
		b.ID,
		b.Status,
		b.Total,
		b.Completed,
		b.Succeeded,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	query := `
		SELECT id, status, total, completed, succeeded, created_at, updated_at
		FROM batches
		WHERE id = $1
	`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}

	var b domain.Batch
	err = row.Scan(
		&b.ID,
		&b.Status,
		&b.Total,
		&b.Completed,
		&b.Succeeded,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, batches.ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	return &b, nil
}

func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	query := `UPDATE batches SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return batches.ErrBatchNotFound
	}
	return nil
}

func (r *BatchRepository) UpdateProgress(ctx context.Context, id string, completed, succeeded int) error {
	query := `UPDATE batches SET completed = $1, succeeded = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query, completed, succeeded, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return batches.ErrBatchNotFound
	}
	return nil
}

// UpdateCompleted advances the progress counter while a run is in flight.
// The succeeded count is only known at the end and is written by
// UpdateProgress together with the terminal status.
func (r *BatchRepository) UpdateCompleted(ctx context.Context, id string, completed int) error {
	query := `UPDATE batches SET completed = $1, updated_at = $2 WHERE id = $3`

	_, err := r.db.ExecWithRetry(ctx, r.retries, query, completed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update batch completed count: %w", err)
	}
	return nil
}

// SaveFailures inserts the failure list of a finished batch, preserving job
// submission order through the position column.
func (r *BatchRepository) SaveFailures(ctx context.Context, batchID string, failures []domain.Failure) error {
	query := `
		INSERT INTO batch_failures (id, batch_id, position, path, kind, message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, f := range failures {
		_, err := r.db.ExecWithRetry(ctx, r.retries, query,
			uuid.New().String(),
			batchID,
			i,
			f.Path,
			f.Kind,
			f.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to save batch failure: %w", err)
		}
	}
	return nil
}

func (r *BatchRepository) ListFailures(ctx context.Context, batchID string) ([]domain.Failure, error) {
	query := `
		SELECT path, kind, message
		FROM batch_failures
		WHERE batch_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.Failure
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.Path, &f.Kind, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan batch failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batch failures: %w", err)
	}
	return failures, nil
}

func (r *BatchRepository) List(ctx context.Context, limit, offset int) ([]domain.Batch, error) {
	query := `
		SELECT id, status, total, completed, succeeded, created_at, updated_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var result []domain.Batch
	for rows.Next() {
		var b domain.Batch
		err := rows.Scan(
			&b.ID,
			&b.Status,
			&b.Total,
			&b.Completed,
			&b.Succeeded,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return result, nil
}
