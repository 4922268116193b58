package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/logger"
	"github.com/octobees/brandintel/internal/repository"
)

// SentimentRunner scores pending comments and reviews for a brand.
type SentimentRunner interface {
	Run(ctx context.Context, brandID uuid.UUID) (dto.SentimentResult, error)
}

// KeywordRunner extracts keyword lists for a brand.
type KeywordRunner interface {
	Run(ctx context.Context, brandID uuid.UUID) (dto.KeywordsResult, error)
}

// InsightRunner synthesises insights for a brand.
type InsightRunner interface {
	Run(ctx context.Context, brandID uuid.UUID) (entity.Insights, error)
}

// ReportRunner runs the full report pipeline.
type ReportRunner interface {
	Run(ctx context.Context, brandID uuid.UUID) (dto.ReportResult, error)
	RunAll(ctx context.Context) (dto.ReportAllResult, error)
}

// ReportNotifier fans a report out to the owner's channels.
type ReportNotifier interface {
	Notify(ctx context.Context, reportID uuid.UUID) (dto.NotifyResult, error)
}

// PipelineHandler triggers the analysis stages. Each endpoint is stateless and
// may be called by an external scheduler.
type PipelineHandler struct {
	sentiment SentimentRunner
	keywords  KeywordRunner
	insights  InsightRunner
	reports   ReportRunner
	notifier  ReportNotifier
}

// NewPipelineHandler creates a new handler instance.
func NewPipelineHandler(sentiment SentimentRunner, keywords KeywordRunner, insights InsightRunner, reports ReportRunner, notifier ReportNotifier) *PipelineHandler {
	return &PipelineHandler{
		sentiment: sentiment,
		keywords:  keywords,
		insights:  insights,
		reports:   reports,
		notifier:  notifier,
	}
}

// Sentiment handles POST /pipeline/sentiment.
func (h *PipelineHandler) Sentiment(c echo.Context) error {
	brandID, ok, err := h.brandID(c)
	if !ok {
		return err
	}
	result, err := h.sentiment.Run(c.Request().Context(), brandID)
	if err != nil {
		return stageError(c, "sentiment", err)
	}
	return Success(c, http.StatusOK, "sentiment scored", result)
}

// Keywords handles POST /pipeline/keywords.
func (h *PipelineHandler) Keywords(c echo.Context) error {
	brandID, ok, err := h.brandID(c)
	if !ok {
		return err
	}
	result, err := h.keywords.Run(c.Request().Context(), brandID)
	if err != nil {
		return stageError(c, "keywords", err)
	}
	return Success(c, http.StatusOK, "keywords extracted", result)
}

// Insights handles POST /pipeline/insights.
func (h *PipelineHandler) Insights(c echo.Context) error {
	brandID, ok, err := h.brandID(c)
	if !ok {
		return err
	}
	result, err := h.insights.Run(c.Request().Context(), brandID)
	if err != nil {
		return stageError(c, "insights", err)
	}
	return Success(c, http.StatusOK, "insights generated", result)
}

// Report handles POST /pipeline/reports.
func (h *PipelineHandler) Report(c echo.Context) error {
	brandID, ok, err := h.brandID(c)
	if !ok {
		return err
	}
	result, err := h.reports.Run(c.Request().Context(), brandID)
	if err != nil {
		return stageError(c, "report", err)
	}
	return Success(c, http.StatusCreated, "report generated", result)
}

// ReportAll handles POST /pipeline/reports/all. Per-brand failures are part of
// the returned tally.
func (h *PipelineHandler) ReportAll(c echo.Context) error {
	result, err := h.reports.RunAll(c.Request().Context())
	if err != nil {
		return stageError(c, "report-all", err)
	}
	return Success(c, http.StatusOK, "reports generated", result)
}

// Notify handles POST /pipeline/notify.
func (h *PipelineHandler) Notify(c echo.Context) error {
	var req dto.NotifyRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	result, err := h.notifier.Notify(c.Request().Context(), uuid.MustParse(req.ReportID))
	if err != nil {
		return stageError(c, "notify", err)
	}
	return Success(c, http.StatusOK, "notifications sent", result)
}

func (h *PipelineHandler) brandID(c echo.Context) (uuid.UUID, bool, error) {
	var req dto.StageRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return uuid.Nil, false, err
	}
	return uuid.MustParse(req.BrandID), true, nil
}

func stageError(c echo.Context, stage string, err error) error {
	switch {
	case errors.Is(err, repository.ErrBrandNotFound):
		return Error(c, http.StatusNotFound, "brand not found")
	case errors.Is(err, repository.ErrReportNotFound):
		return Error(c, http.StatusNotFound, "report not found")
	}
	logger.FromContext(c.Request().Context()).Error("pipeline stage failed", zap.String("stage", stage), zap.Error(err))
	return Error(c, http.StatusInternalServerError, stage+" stage failed")
}
