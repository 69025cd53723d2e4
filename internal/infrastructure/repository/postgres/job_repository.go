package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

const schemaLockID = int64(2026101801)

type JobRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS generation_jobs (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	kind TEXT NOT NULL,
	prompt TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	remote_task_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	progress DOUBLE PRECISION NOT NULL DEFAULT 0,
	asset_url TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs(status);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_created_at ON generation_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO generation_jobs (
	id, provider, kind, prompt, image_url, remote_task_id, status, attempts, progress, asset_url, storage_path, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		job.ID, job.Provider, string(job.Kind), job.Prompt, job.ImageURL, job.RemoteTaskID, string(job.Status),
		job.Attempts, job.Progress, job.AssetURL, job.StoragePath, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, provider, kind, prompt, image_url, remote_task_id, status, attempts, progress, asset_url, storage_path, error_message, created_at, updated_at
FROM generation_jobs
WHERE id = $1
`, id)

	var job domain.Job
	var kind, status string
	err := row.Scan(
		&job.ID, &job.Provider, &kind, &job.Prompt, &job.ImageURL, &job.RemoteTaskID, &status,
		&job.Attempts, &job.Progress, &job.AssetURL, &job.StoragePath, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan generation job: %w", err)
	}
	job.Kind = domain.GenerationKind(kind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	return r.exec(ctx, "update job status", `
UPDATE generation_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
}

func (r *JobRepository) SaveRemoteTask(ctx context.Context, id, remoteTaskID string) error {
	return r.exec(ctx, "save remote task", `
UPDATE generation_jobs
SET remote_task_id = $2, updated_at = $3
WHERE id = $1
`, id, remoteTaskID, r.now())
}

func (r *JobRepository) SaveProgress(ctx context.Context, id string, attempts int, progress float64) error {
	return r.exec(ctx, "save job progress", `
UPDATE generation_jobs
SET attempts = $2, progress = $3, updated_at = $4
WHERE id = $1
`, id, attempts, progress, r.now())
}

func (r *JobRepository) MarkSucceeded(ctx context.Context, id, assetURL, storagePath string) error {
	return r.exec(ctx, "mark job succeeded", `
UPDATE generation_jobs
SET status = $2, progress = 1, asset_url = $3, storage_path = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, string(domain.JobSucceeded), assetURL, storagePath, r.now())
}

func (r *JobRepository) ListIDsByStatus(ctx context.Context, status domain.JobStatus) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id
FROM generation_jobs
WHERE status = $1
ORDER BY created_at ASC
`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job ids: %w", err)
	}
	return ids, nil
}

func (r *JobRepository) exec(ctx context.Context, operation, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrJobNotFound, operation, fmt.Errorf("id=%v", args[0]))
	}
	return nil
}
