// Package app assembles the service graph shared by the HTTP server and the CLI.
package app

import (
	"net/http"

	"github.com/octobees/brandintel/internal/analysis"
	"github.com/octobees/brandintel/internal/auth"
	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/handler"
	"github.com/octobees/brandintel/internal/normalize"
	"github.com/octobees/brandintel/internal/notify"
	"github.com/octobees/brandintel/internal/oracle"
	"github.com/octobees/brandintel/internal/repository"
	"github.com/octobees/brandintel/internal/router"
	"github.com/octobees/brandintel/internal/scrapeclient"
	"github.com/octobees/brandintel/internal/service"
)

// App holds the wired components.
type App struct {
	JWT        *auth.JWTManager
	Jobs       *repository.PGXJobsRepository
	Reports    *repository.PGXReportsRepository
	Dispatcher *service.Dispatcher
	Ingestor   *service.Ingestor
	Sentiment  *analysis.SentimentStage
	Keywords   *analysis.KeywordStage
	Insights   *analysis.InsightStage
	Pipeline   *analysis.Pipeline
	Notifier   *notify.Notifier
}

// New wires repositories, vendor clients and stages over one pool.
func New(cfg *config.Config, pool database.Pool) *App {
	jobs := repository.NewPGXJobsRepository(pool)
	brands := repository.NewPGXBrandsRepository(pool)
	social := repository.NewPGXSocialRepository(pool)
	reviews := repository.NewPGXReviewsRepository(pool)
	ads := repository.NewPGXAdsRepository(pool)
	reports := repository.NewPGXReportsRepository(pool)
	runs := repository.NewPGXRunsRepository(pool)

	runner := scrapeclient.New(cfg.Vendor, nil).WithWebhookSecret(cfg.WebhookSecret)

	socialAdapter := normalize.NewSocialAdapter(social, brands)
	adapters := map[entity.JobType]normalize.Adapter{
		entity.JobSocialBrand:        socialAdapter,
		entity.JobSocialCompetitor:   socialAdapter,
		entity.JobMarketplaceReviews: normalize.NewReviewAdapter(reviews),
		entity.JobCompetitorAds:      normalize.NewAdAdapter(ads),
	}

	messenger := oracle.NewAnthropic(cfg.Oracle.APIKey)
	sentiment := analysis.NewSentimentStage(social, reviews,
		oracle.NewSentimentOracle(messenger, cfg.Oracle.FastModel),
		cfg.Pipeline.BatchLimit, cfg.Pipeline.Concurrency, cfg.Oracle.Timeout)
	keywords := analysis.NewKeywordStage(reviews, oracle.NewKeywordOracle(messenger, cfg.Oracle.FastModel))
	insights := analysis.NewInsightStage(brands, reviews, social, ads,
		oracle.NewInsightOracle(messenger, cfg.Oracle.Model), cfg.Oracle.Timeout)

	notifyClient := &http.Client{Timeout: cfg.Notify.Timeout}
	notifier := notify.New(reports,
		notify.NewResendClient(cfg.Notify, notifyClient),
		notify.NewGupshupClient(cfg.Notify, notifyClient),
		cfg.Notify)

	return &App{
		JWT:        auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Jobs:       jobs,
		Reports:    reports,
		Dispatcher: service.NewDispatcher(brands, jobs, runner, cfg),
		Ingestor:   service.NewIngestor(jobs, runner, adapters, cfg.Vendor.Timeout),
		Sentiment:  sentiment,
		Keywords:   keywords,
		Insights:   insights,
		Pipeline:   analysis.NewPipeline(runs, brands, reports, sentiment, keywords, insights, notifier).WithMaxRunAge(cfg.Pipeline.RunMaxAge),
		Notifier:   notifier,
	}
}

// Handlers builds the HTTP handlers over the wired components.
func (a *App) Handlers() router.Handlers {
	return router.Handlers{
		Webhook:  handler.NewWebhookHandler(a.Ingestor),
		Jobs:     handler.NewJobsHandler(a.Dispatcher, a.Jobs),
		Pipeline: handler.NewPipelineHandler(a.Sentiment, a.Keywords, a.Insights, a.Pipeline, a.Notifier),
		Reports:  handler.NewReportsHandler(a.Reports),
	}
}
