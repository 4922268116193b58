package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

var (
	// ErrJobNotFound is returned when no job matches an external run id.
	ErrJobNotFound = errors.New("scrape job not found")
	// ErrJobTerminal is returned when a status change targets a job that already finished.
	ErrJobTerminal = errors.New("scrape job already terminal")
)

// JobsRepository persists scrape jobs.
type JobsRepository interface {
	Create(ctx context.Context, job *entity.ScrapeJob) error
	FindByRunID(ctx context.Context, runID string) (*entity.ScrapeJob, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status entity.JobStatus, errMsg *string) error
}

// PGXJobsRepository implements JobsRepository with pgx.
type PGXJobsRepository struct {
	pool database.Pool
}

// NewPGXJobsRepository instantiates a jobs repository.
func NewPGXJobsRepository(pool database.Pool) *PGXJobsRepository {
	return &PGXJobsRepository{pool: pool}
}

// Create inserts a running job and fills in its id and start time.
func (r *PGXJobsRepository) Create(ctx context.Context, job *entity.ScrapeJob) error {
	metadata := job.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO scrape_jobs (brand_id, job_type, status, external_run_id, metadata)
        VALUES ($1, $2, 'running', $3, $4)
        RETURNING id, started_at
    `, job.BrandID, string(job.JobType), job.ExternalRunID, metadata)

	if err := row.Scan(&job.ID, &job.StartedAt); err != nil {
		return eris.Wrapf(err, "insert scrape job for run %s", job.ExternalRunID)
	}
	job.Status = entity.JobRunning
	job.Metadata = metadata
	return nil
}

// FindByRunID loads the job correlated with an external run id.
func (r *PGXJobsRepository) FindByRunID(ctx context.Context, runID string) (*entity.ScrapeJob, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, brand_id, job_type, status, external_run_id, metadata, error_message, started_at, completed_at
        FROM scrape_jobs
        WHERE external_run_id = $1
    `, runID)

	var (
		job         entity.ScrapeJob
		jobType     string
		status      string
		errMsg      sql.NullString
		completedAt sql.NullTime
	)
	if err := row.Scan(&job.ID, &job.BrandID, &jobType, &status, &job.ExternalRunID, &job.Metadata, &errMsg, &job.StartedAt, &completedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, eris.Wrapf(err, "query scrape job by run %s", runID)
	}
	job.JobType = entity.JobType(jobType)
	job.Status = entity.JobStatus(status)
	job.ErrorMessage = nullStringToPtr(errMsg)
	job.CompletedAt = nullTimeToPtr(completedAt)
	return &job, nil
}

// MarkTerminal moves a running job to completed or failed. The update is guarded
// on the current status so a duplicate delivery cannot overwrite a finished job.
func (r *PGXJobsRepository) MarkTerminal(ctx context.Context, id uuid.UUID, status entity.JobStatus, errMsg *string) error {
	if !status.Terminal() {
		return eris.Errorf("status %q is not terminal", status)
	}

	tag, err := r.pool.Exec(ctx, `
        UPDATE scrape_jobs
        SET status = $2, error_message = $3, completed_at = now()
        WHERE id = $1 AND status = 'running'
    `, id, string(status), stringOrNil(errMsg))
	if err != nil {
		return eris.Wrapf(err, "mark scrape job %s %s", id, status)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobTerminal
	}
	return nil
}
