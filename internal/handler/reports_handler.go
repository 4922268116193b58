package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/repository"
)

// ReportGetter loads persisted reports.
type ReportGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Report, error)
}

// ReportsHandler serves stored reports.
type ReportsHandler struct {
	reports ReportGetter
}

// NewReportsHandler creates a new handler instance.
func NewReportsHandler(reports ReportGetter) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Get handles GET /reports/:id.
func (h *ReportsHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid report id")
	}

	report, err := h.reports.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return Error(c, http.StatusNotFound, "report not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load report")
	}
	return Success(c, http.StatusOK, "", report)
}
