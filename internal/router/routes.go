package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/brandintel/internal/auth"
	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/handler"
	middlewarepkg "github.com/octobees/brandintel/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Webhook  *handler.WebhookHandler
	Jobs     *handler.JobsHandler
	Pipeline *handler.PipelineHandler
	Reports  *handler.ReportsHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.POST("/webhooks/scrape", handlers.Webhook.Scrape, middlewarepkg.WebhookSecret(cfg.WebhookSecret))

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager), middlewarepkg.RequireRole(auth.RoleService))

	secured.POST("/jobs/dispatch", handlers.Jobs.Dispatch, middlewarepkg.DispatchRateLimiter(cfg.RateLimitDispatch))
	secured.GET("/jobs/:run_id", handlers.Jobs.Get)

	pipeline := secured.Group("/pipeline")
	pipeline.POST("/sentiment", handlers.Pipeline.Sentiment)
	pipeline.POST("/keywords", handlers.Pipeline.Keywords)
	pipeline.POST("/insights", handlers.Pipeline.Insights)
	pipeline.POST("/reports", handlers.Pipeline.Report)
	pipeline.POST("/reports/all", handlers.Pipeline.ReportAll)
	pipeline.POST("/notify", handlers.Pipeline.Notify)

	secured.GET("/reports/:id", handlers.Reports.Get)
}
