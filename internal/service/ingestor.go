package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/normalize"
	"github.com/octobees/brandintel/internal/repository"
	"github.com/octobees/brandintel/internal/scrapeclient"
)

// ErrUnknownRun is returned when a callback names a run with no recorded job.
var ErrUnknownRun = errors.New("unknown scrape run")

// runFailedMessage is stored on jobs whose vendor run failed.
const runFailedMessage = "scrape run failed"

// Ingestor handles vendor completion callbacks.
type Ingestor struct {
	jobs     repository.JobsRepository
	runner   scrapeclient.Runner
	adapters map[entity.JobType]normalize.Adapter
	timeout  time.Duration
	log      *zap.Logger
}

// NewIngestor wires an ingestor. adapters maps each job type to the adapter
// that owns its items.
func NewIngestor(jobs repository.JobsRepository, runner scrapeclient.Runner, adapters map[entity.JobType]normalize.Adapter, timeout time.Duration) *Ingestor {
	return &Ingestor{
		jobs:     jobs,
		runner:   runner,
		adapters: adapters,
		timeout:  timeout,
		log:      zap.L().With(zap.String("component", "ingestor")),
	}
}

// Handle applies one callback. Deliveries for jobs that already reached a
// terminal state are acknowledged without side effects, so redelivery and
// out-of-order delivery are safe. An error leaves the job running for the
// vendor's retry.
func (i *Ingestor) Handle(ctx context.Context, event dto.WebhookEvent) (dto.IngestResult, error) {
	runID := event.RunID()
	result := dto.IngestResult{RunID: runID}

	if event.EventType != dto.EventRunSucceeded && event.EventType != dto.EventRunFailed {
		i.log.Info("ignoring webhook event", zap.String("event_type", event.EventType), zap.String("run_id", runID))
		result.Status = "ignored"
		result.Ignored = true
		return result, nil
	}
	if runID == "" {
		return result, ErrUnknownRun
	}

	job, err := i.jobs.FindByRunID(ctx, runID)
	if errors.Is(err, repository.ErrJobNotFound) {
		i.log.Warn("webhook for unknown run", zap.String("run_id", runID))
		return result, ErrUnknownRun
	}
	if err != nil {
		return result, err
	}

	result.JobType = string(job.JobType)
	log := i.log.With(zap.String("run_id", runID), zap.String("job_type", string(job.JobType)))

	if job.Status.Terminal() {
		log.Info("duplicate webhook delivery", zap.String("status", string(job.Status)))
		return duplicate(result, job.Status), nil
	}

	if event.EventType == dto.EventRunFailed {
		msg := runFailedMessage
		return i.finish(ctx, log, job, result, entity.JobFailed, &msg)
	}

	adapter, ok := i.adapters[job.JobType]
	if !ok {
		msg := "no adapter for job type " + string(job.JobType)
		return i.finish(ctx, log, job, result, entity.JobFailed, &msg)
	}

	items, err := i.fetch(ctx, runID)
	if err != nil {
		log.Error("fetch run items", zap.Error(err))
		return result, err
	}

	applied, err := adapter.Apply(ctx, job, items)
	result.Items = applied.Items
	result.Persisted = applied.Persisted
	result.Skipped = applied.Skipped + applied.Failed
	if err != nil {
		log.Error("apply run items", zap.Error(err))
		return result, err
	}
	if applied.AllFailed() {
		log.Error("every item was rejected by the store", zap.Int("failed", applied.Failed))
		return result, eris.Errorf("persist items for run %s: all %d rejected", runID, applied.Failed)
	}

	log.Info("run items ingested",
		zap.Int("items", applied.Items),
		zap.Int("persisted", applied.Persisted),
		zap.Int("skipped", applied.Skipped),
		zap.Int("failed", applied.Failed),
	)
	return i.finish(ctx, log, job, result, entity.JobCompleted, nil)
}

func (i *Ingestor) fetch(ctx context.Context, runID string) ([]json.RawMessage, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	return i.runner.FetchItems(ctx, runID)
}

func (i *Ingestor) finish(ctx context.Context, log *zap.Logger, job *entity.ScrapeJob, result dto.IngestResult, status entity.JobStatus, errMsg *string) (dto.IngestResult, error) {
	err := i.jobs.MarkTerminal(ctx, job.ID, status, errMsg)
	if errors.Is(err, repository.ErrJobTerminal) {
		log.Info("job finished concurrently")
		return duplicate(result, status), nil
	}
	if err != nil {
		return result, err
	}
	log.Info("job finished", zap.String("status", string(status)))
	result.Status = string(status)
	return result, nil
}

func duplicate(result dto.IngestResult, status entity.JobStatus) dto.IngestResult {
	result.Status = string(status)
	result.Duplicate = true
	return result
}
