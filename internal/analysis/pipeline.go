package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
)

// Stage names recorded on a pipeline run.
const (
	StageSentiment = "sentiment"
	StageKeywords  = "keywords"
	StageInsights  = "insights"
	StageReport    = "report"
	StageNotify    = "notify"
)

// Notifier delivers a stored report.
type Notifier interface {
	Notify(ctx context.Context, reportID uuid.UUID) (dto.NotifyResult, error)
}

// defaultMaxRunAge bounds how long an open run may be resumed.
const defaultMaxRunAge = 24 * time.Hour

// Pipeline chains the stages into one report generation. Each finished stage
// persists a marker with its output on the brand's open run, so a re-run after
// a failure resumes at the first stage without a marker. An open run older
// than maxRunAge is abandoned and a fresh one started.
type Pipeline struct {
	runs      RunStore
	brands    BrandReader
	reports   ReportStore
	sentiment *SentimentStage
	keywords  *KeywordStage
	insights  *InsightStage
	notifier  Notifier
	maxRunAge time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewPipeline wires the pipeline. notifier may be nil to skip delivery.
func NewPipeline(runs RunStore, brands BrandReader, reports ReportStore, sentiment *SentimentStage, keywords *KeywordStage, insights *InsightStage, notifier Notifier) *Pipeline {
	return &Pipeline{
		runs:      runs,
		brands:    brands,
		reports:   reports,
		sentiment: sentiment,
		keywords:  keywords,
		insights:  insights,
		notifier:  notifier,
		maxRunAge: defaultMaxRunAge,
		now:       time.Now,
		log:       zap.L().With(zap.String("component", "pipeline")),
	}
}

// WithMaxRunAge overrides how old an open run may be and still be resumed.
// Zero or negative keeps the default.
func (p *Pipeline) WithMaxRunAge(d time.Duration) *Pipeline {
	if d > 0 {
		p.maxRunAge = d
	}
	return p
}

type reportMarker struct {
	ReportID uuid.UUID `json:"report_id"`
	Summary  string    `json:"summary"`
}

// Run generates, stores and delivers the report for one brand.
func (p *Pipeline) Run(ctx context.Context, brandID uuid.UUID) (dto.ReportResult, error) {
	run, resumed, err := p.open(ctx, brandID)
	if err != nil {
		return dto.ReportResult{}, err
	}
	if run.Stages == nil {
		run.Stages = map[string]json.RawMessage{}
	}
	log := p.log.With(zap.String("brand_id", brandID.String()), zap.String("run_id", run.ID.String()))
	if resumed {
		log.Info("resuming pipeline run", zap.Int("stages_done", len(run.Stages)))
	}

	if _, err := stage(ctx, p, run, StageSentiment, func() (dto.SentimentResult, error) {
		return p.sentiment.Run(ctx, brandID)
	}); err != nil {
		return dto.ReportResult{}, err
	}

	keywords, err := stage(ctx, p, run, StageKeywords, func() (dto.KeywordsResult, error) {
		return p.keywords.Run(ctx, brandID)
	})
	if err != nil {
		return dto.ReportResult{}, err
	}

	insights, err := stage(ctx, p, run, StageInsights, func() (entity.Insights, error) {
		ins, err := p.insights.Run(ctx, brandID)
		if err != nil {
			return ins, err
		}
		if len(keywords.Positive) > 0 {
			ins.BrandHealth.TopPositiveKeywords = keywords.Positive
		}
		if len(keywords.Negative) > 0 {
			ins.BrandHealth.TopNegativeKeywords = keywords.Negative
		}
		return ins, nil
	})
	if err != nil {
		return dto.ReportResult{}, err
	}

	marker, err := stage(ctx, p, run, StageReport, func() (reportMarker, error) {
		return p.persist(ctx, run, insights)
	})
	if err != nil {
		return dto.ReportResult{}, err
	}

	if p.notifier != nil {
		if _, err := stage(ctx, p, run, StageNotify, func() (dto.NotifyResult, error) {
			return p.notifier.Notify(ctx, marker.ReportID)
		}); err != nil {
			return dto.ReportResult{}, err
		}
	}

	if err := p.runs.Complete(ctx, run.ID); err != nil {
		return dto.ReportResult{}, err
	}
	log.Info("pipeline run completed", zap.String("report_id", marker.ReportID.String()))

	return dto.ReportResult{
		ReportID:     marker.ReportID.String(),
		GenerationID: run.ID.String(),
		Summary:      marker.Summary,
		Resumed:      resumed,
	}, nil
}

// open returns the brand's resumable run. Markers on a run older than
// maxRunAge describe last cycle's data, so such a run is abandoned.
func (p *Pipeline) open(ctx context.Context, brandID uuid.UUID) (*entity.PipelineRun, bool, error) {
	run, resumed, err := p.runs.OpenOrCreate(ctx, brandID)
	if err != nil || !resumed {
		return run, resumed, err
	}
	age := p.now().Sub(run.CreatedAt)
	if age <= p.maxRunAge {
		return run, true, nil
	}

	p.log.Warn("abandoning stale pipeline run",
		zap.String("brand_id", brandID.String()),
		zap.String("run_id", run.ID.String()),
		zap.Duration("age", age),
	)
	if err := p.runs.Abandon(ctx, run.ID); err != nil {
		return nil, false, err
	}
	return p.runs.OpenOrCreate(ctx, brandID)
}

func (p *Pipeline) persist(ctx context.Context, run *entity.PipelineRun, insights entity.Insights) (reportMarker, error) {
	payload, err := json.Marshal(insights)
	if err != nil {
		return reportMarker{}, eris.Wrap(err, "encode insights")
	}
	report := &entity.Report{
		GenerationID: run.ID,
		BrandID:      run.BrandID,
		ReportType:   entity.ReportTypeWeekly,
		Insights:     payload,
		Summary:      Summary(insights),
	}
	if err := p.reports.Create(ctx, report); err != nil {
		return reportMarker{}, err
	}
	return reportMarker{ReportID: report.ID, Summary: report.Summary}, nil
}

// stage returns the stored output when the run already carries a marker for
// name, otherwise runs fn and records its output.
func stage[T any](ctx context.Context, p *Pipeline, run *entity.PipelineRun, name string, fn func() (T, error)) (T, error) {
	var out T
	if raw, ok := run.Stages[name]; ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, eris.Wrapf(err, "decode %s marker", name)
		}
		return out, nil
	}

	out, err := fn()
	if err != nil {
		p.log.Error("pipeline stage failed",
			zap.String("run_id", run.ID.String()),
			zap.String("stage", name),
			zap.Error(err),
		)
		return out, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return out, eris.Wrapf(err, "encode %s marker", name)
	}
	if err := p.runs.MarkStage(ctx, run.ID, name, raw); err != nil {
		return out, err
	}
	run.Stages[name] = raw
	return out, nil
}

// Summary is the one-line human summary stored with a report.
func Summary(in entity.Insights) string {
	return fmt.Sprintf("Brand Health Score: %d/100. %d vulnerabilities identified, %d opportunities found.",
		in.BrandHealth.OverallScore, len(in.Vulnerabilities), len(in.Opportunities))
}

// RunAll generates reports for every brand whose owner finished onboarding.
// One brand failing never stops the others.
func (p *Pipeline) RunAll(ctx context.Context) (dto.ReportAllResult, error) {
	ids, err := p.brands.ListReportable(ctx)
	if err != nil {
		return dto.ReportAllResult{}, err
	}

	result := dto.ReportAllResult{Total: len(ids), Reports: []dto.ReportResult{}}
	for _, id := range ids {
		report, err := p.Run(ctx, id)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.BrandError{BrandID: id.String(), Error: err.Error()})
			p.log.Warn("brand report failed", zap.String("brand_id", id.String()), zap.Error(err))
			continue
		}
		result.Succeeded++
		result.Reports = append(result.Reports, report)
	}

	p.log.Info("report-all finished",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
