package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo is the Postgres implementation of Repo.
type PGRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{db: db}
}

const analysisColumns = `
	id, anonymous_user_id, content_hash, resume_text, job_description,
	resume_filename, status, result, error_message, retry_count,
	created_at, completed_at, processing_time_ms`

func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const q = `
		INSERT INTO analyses (
			id, anonymous_user_id, content_hash, resume_text,
			job_description, resume_filename, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.AnonymousUserID, a.ContentHash, a.ResumeText,
		a.JobDescription, a.ResumeFilename, a.Status,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *PGRepo) FindCompletedByHash(ctx context.Context, contentHash string) (Analysis, error) {
	q := `SELECT ` + analysisColumns + `
		FROM analyses
		WHERE content_hash = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, contentHash, StatusCompleted))
}

func (r *PGRepo) SetStatus(ctx context.Context, id, status string) error {
	const q = `
		UPDATE analyses
		SET status = $2
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`

	if _, err := r.db.ExecContext(ctx, q, id, status); err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}
	return nil
}

func (r *PGRepo) SetCompleted(ctx context.Context, id string, result GapAnalysisResult, processingTimeMs int64) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}

	const q = `
		UPDATE analyses
		SET status = 'COMPLETED',
		    result = $2,
		    error_message = NULL,
		    completed_at = now(),
		    processing_time_ms = $3
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`

	if _, err := r.db.ExecContext(ctx, q, id, payload, processingTimeMs); err != nil {
		return fmt.Errorf("complete analysis: %w", err)
	}
	return nil
}

func (r *PGRepo) SetFailed(ctx context.Context, id, errMsg string, retryCount int) error {
	const q = `
		UPDATE analyses
		SET status = 'FAILED',
		    error_message = $2,
		    retry_count = $3,
		    completed_at = now()
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')`

	if _, err := r.db.ExecContext(ctx, q, id, errMsg, retryCount); err != nil {
		return fmt.Errorf("fail analysis: %w", err)
	}
	return nil
}

func (r *PGRepo) IncrementRetry(ctx context.Context, id string) (int, error) {
	const q = `
		UPDATE analyses
		SET retry_count = retry_count + 1
		WHERE id = $1
		RETURNING retry_count`

	var count int
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment analysis retry: %w", err)
	}
	return count, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, anonymousUserID string, limit int) ([]Analysis, error) {
	const q = `
		SELECT id, anonymous_user_id, content_hash, resume_filename, status,
		       result, error_message, retry_count, created_at, completed_at,
		       processing_time_ms
		FROM analyses
		WHERE anonymous_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, anonymousUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var a Analysis
		var resultRaw []byte
		err := rows.Scan(
			&a.ID, &a.AnonymousUserID, &a.ContentHash, &a.ResumeFilename,
			&a.Status, &resultRaw, &a.ErrorMessage, &a.RetryCount,
			&a.CreatedAt, &a.CompletedAt, &a.ProcessingTimeMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		if len(resultRaw) > 0 {
			var res GapAnalysisResult
			if err := json.Unmarshal(resultRaw, &res); err != nil {
				return nil, fmt.Errorf("decode analysis result: %w", err)
			}
			a.Result = &res
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Analysis, error) {
	var a Analysis
	var resultRaw []byte
	err := row.Scan(
		&a.ID, &a.AnonymousUserID, &a.ContentHash, &a.ResumeText,
		&a.JobDescription, &a.ResumeFilename, &a.Status, &resultRaw,
		&a.ErrorMessage, &a.RetryCount, &a.CreatedAt, &a.CompletedAt,
		&a.ProcessingTimeMs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	if len(resultRaw) > 0 {
		var res GapAnalysisResult
		if err := json.Unmarshal(resultRaw, &res); err != nil {
			return Analysis{}, fmt.Errorf("decode analysis result: %w", err)
		}
		a.Result = &res
	}
	return a, nil
}

var _ Repo = (*PGRepo)(nil)
