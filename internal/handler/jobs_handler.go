package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/logger"
	"github.com/octobees/brandintel/internal/repository"
)

// JobDispatcher starts scrape runs for tracked brands.
type JobDispatcher interface {
	Dispatch(ctx context.Context, brandID *uuid.UUID) (dto.DispatchResult, error)
}

// JobFinder looks up a scrape job by its vendor run id.
type JobFinder interface {
	FindByRunID(ctx context.Context, runID string) (*entity.ScrapeJob, error)
}

// JobsHandler exposes scrape job dispatch and lookup.
type JobsHandler struct {
	dispatcher JobDispatcher
	jobs       JobFinder
}

// NewJobsHandler creates a new handler instance.
func NewJobsHandler(dispatcher JobDispatcher, jobs JobFinder) *JobsHandler {
	return &JobsHandler{dispatcher: dispatcher, jobs: jobs}
}

// Dispatch handles POST /jobs/dispatch. Without a brand_id every tracked brand is dispatched.
func (h *JobsHandler) Dispatch(c echo.Context) error {
	var req dto.DispatchRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	var brandID *uuid.UUID
	if req.BrandID != "" {
		id := uuid.MustParse(req.BrandID)
		brandID = &id
	}

	result, err := h.dispatcher.Dispatch(c.Request().Context(), brandID)
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("dispatch failed", zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to dispatch scrape jobs")
	}
	return Success(c, http.StatusAccepted, "scrape jobs dispatched", result)
}

// Get handles GET /jobs/:run_id.
func (h *JobsHandler) Get(c echo.Context) error {
	runID := strings.TrimSpace(c.Param("run_id"))
	if runID == "" {
		return Error(c, http.StatusBadRequest, "run_id is required")
	}

	job, err := h.jobs.FindByRunID(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return Error(c, http.StatusNotFound, "scrape job not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load scrape job")
	}
	return Success(c, http.StatusOK, "", job)
}
