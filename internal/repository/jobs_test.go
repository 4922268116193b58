package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/brandintel/internal/entity"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestJobsCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	brandID := uuid.New()
	jobID := uuid.New()
	started := time.Now()
	meta := json.RawMessage(`{"competitor_id":"c1"}`)

	mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WithArgs(brandID, "competitor_ads", "run-1", meta).
		WillReturnRows(pgxmock.NewRows([]string{"id", "started_at"}).AddRow(jobID, started))

	job := &entity.ScrapeJob{BrandID: brandID, JobType: entity.JobCompetitorAds, ExternalRunID: "run-1", Metadata: meta}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, entity.JobRunning, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsCreateDefaultsMetadata(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	brandID := uuid.New()
	mock.ExpectQuery(`INSERT INTO scrape_jobs`).
		WithArgs(brandID, "social_brand", "run-2", json.RawMessage("{}")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "started_at"}).AddRow(uuid.New(), time.Now()))

	job := &entity.ScrapeJob{BrandID: brandID, JobType: entity.JobSocialBrand, ExternalRunID: "run-2"}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.JSONEq(t, `{}`, string(job.Metadata))
}

func TestJobsFindByRunID(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	jobID := uuid.New()
	brandID := uuid.New()
	started := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM scrape_jobs\s+WHERE external_run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "brand_id", "job_type", "status", "external_run_id", "metadata", "error_message", "started_at", "completed_at"}).
			AddRow(jobID, brandID, "marketplace_reviews", "running", "run-1", json.RawMessage(`{}`), nil, started, nil))

	job, err := repo.FindByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, entity.JobMarketplaceReviews, job.JobType)
	assert.Equal(t, entity.JobRunning, job.Status)
	assert.Nil(t, job.ErrorMessage)
	assert.Nil(t, job.CompletedAt)
}

func TestJobsFindByRunIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	mock.ExpectQuery(`FROM scrape_jobs`).WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByRunID(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestJobsMarkTerminal(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	id := uuid.New()
	msg := "scrape run failed"
	mock.ExpectExec(`UPDATE scrape_jobs\s+SET status = \$2.+WHERE id = \$1 AND status = 'running'`).
		WithArgs(id, "failed", msg).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkTerminal(context.Background(), id, entity.JobFailed, &msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobsMarkTerminalAlreadyFinished(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	id := uuid.New()
	mock.ExpectExec(`UPDATE scrape_jobs`).
		WithArgs(id, "completed", nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkTerminal(context.Background(), id, entity.JobCompleted, nil)
	assert.True(t, errors.Is(err, ErrJobTerminal))
}

func TestJobsMarkTerminalRejectsRunning(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXJobsRepository(mock)

	err := repo.MarkTerminal(context.Background(), uuid.New(), entity.JobRunning, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
