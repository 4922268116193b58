package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/logger"
	"github.com/octobees/brandintel/internal/service"
)

// WebhookIngestor consumes vendor completion callbacks.
type WebhookIngestor interface {
	Handle(ctx context.Context, event dto.WebhookEvent) (dto.IngestResult, error)
}

// WebhookHandler receives scrape run callbacks.
type WebhookHandler struct {
	ingestor WebhookIngestor
}

// NewWebhookHandler constructs the callback handler.
func NewWebhookHandler(ingestor WebhookIngestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// Scrape handles POST /webhooks/scrape. A non-2xx answer makes the vendor
// redeliver, so only correlation and processing failures return one.
func (h *WebhookHandler) Scrape(c echo.Context) error {
	var event dto.WebhookEvent
	if err := c.Bind(&event); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	result, err := h.ingestor.Handle(c.Request().Context(), event)
	switch {
	case errors.Is(err, service.ErrUnknownRun):
		return Error(c, http.StatusNotFound, "unknown run")
	case err != nil:
		logger.FromContext(c.Request().Context()).Error("webhook processing failed", zap.String("run_id", event.RunID()), zap.Error(err))
		return Error(c, http.StatusInternalServerError, "failed to process webhook")
	}

	message := "webhook processed"
	switch {
	case result.Ignored:
		message = "event ignored"
	case result.Duplicate:
		message = "run already processed"
	}
	return Success(c, http.StatusOK, message, result)
}
