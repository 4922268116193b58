package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// RunsRepository persists pipeline runs and their stage markers.
type RunsRepository interface {
	OpenOrCreate(ctx context.Context, brandID uuid.UUID) (*entity.PipelineRun, bool, error)
	MarkStage(ctx context.Context, runID uuid.UUID, stage string, output json.RawMessage) error
	Complete(ctx context.Context, runID uuid.UUID) error
	Abandon(ctx context.Context, runID uuid.UUID) error
}

// PGXRunsRepository implements RunsRepository with pgx.
type PGXRunsRepository struct {
	pool database.Pool
}

// NewPGXRunsRepository instantiates a runs repository.
func NewPGXRunsRepository(pool database.Pool) *PGXRunsRepository {
	return &PGXRunsRepository{pool: pool}
}

// OpenOrCreate returns the brand's open run, creating one when none exists.
// The boolean is true when an existing run was resumed.
func (r *PGXRunsRepository) OpenOrCreate(ctx context.Context, brandID uuid.UUID) (*entity.PipelineRun, bool, error) {
	// xmax is zero only for freshly inserted tuples.
	row := r.pool.QueryRow(ctx, `
        INSERT INTO pipeline_runs (brand_id)
        VALUES ($1)
        ON CONFLICT (brand_id) WHERE status = 'open' DO UPDATE SET updated_at = now()
        RETURNING id, brand_id, status, stages, created_at, updated_at, (xmax <> 0) AS resumed
    `, brandID)

	var (
		run     entity.PipelineRun
		stages  []byte
		resumed bool
	)
	if err := row.Scan(&run.ID, &run.BrandID, &run.Status, &stages, &run.CreatedAt, &run.UpdatedAt, &resumed); err != nil {
		return nil, false, eris.Wrapf(err, "open pipeline run for brand %s", brandID)
	}
	run.Stages = map[string]json.RawMessage{}
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &run.Stages); err != nil {
			return nil, false, eris.Wrap(err, "decode pipeline stages")
		}
	}
	return &run, resumed, nil
}

// MarkStage records a stage's output on the run.
func (r *PGXRunsRepository) MarkStage(ctx context.Context, runID uuid.UUID, stage string, output json.RawMessage) error {
	if len(output) == 0 {
		output = json.RawMessage("{}")
	}
	if _, err := r.pool.Exec(ctx, `
        UPDATE pipeline_runs
        SET stages = stages || jsonb_build_object($2::text, $3::jsonb), updated_at = now()
        WHERE id = $1
    `, runID, stage, []byte(output)); err != nil {
		return eris.Wrapf(err, "mark stage %s on run %s", stage, runID)
	}
	return nil
}

// Complete closes a run so the next invocation starts a fresh one.
func (r *PGXRunsRepository) Complete(ctx context.Context, runID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `
        UPDATE pipeline_runs SET status = 'completed', updated_at = now() WHERE id = $1
    `, runID); err != nil {
		return eris.Wrapf(err, "complete pipeline run %s", runID)
	}
	return nil
}

// Abandon closes an open run without a report so its markers are never reused.
func (r *PGXRunsRepository) Abandon(ctx context.Context, runID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `
        UPDATE pipeline_runs SET status = 'abandoned', updated_at = now() WHERE id = $1 AND status = 'open'
    `, runID); err != nil {
		return eris.Wrapf(err, "abandon pipeline run %s", runID)
	}
	return nil
}
