package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/marketplace"
	"github.com/octobees/brandintel/internal/scrapeclient"
)

// TrackedBrandLister lists brands with their competitors attached.
type TrackedBrandLister interface {
	ListTracked(ctx context.Context, brandID *uuid.UUID) ([]entity.Brand, error)
}

// JobCreator records started scrape runs.
type JobCreator interface {
	Create(ctx context.Context, job *entity.ScrapeJob) error
}

// Dispatcher starts the scrape runs for tracked brands and records one
// running job per started run.
type Dispatcher struct {
	brands       TrackedBrandLister
	jobs         JobCreator
	runner       scrapeclient.Runner
	webhookURL   string
	resultsLimit int
	adsCountry   string
	timeout      time.Duration
	log          *zap.Logger
}

// NewDispatcher wires a dispatcher from configuration.
func NewDispatcher(brands TrackedBrandLister, jobs JobCreator, runner scrapeclient.Runner, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		brands:       brands,
		jobs:         jobs,
		runner:       runner,
		webhookURL:   cfg.WebhookURL(),
		resultsLimit: cfg.Vendor.ResultsLimit,
		adsCountry:   cfg.Vendor.AdsCountry,
		timeout:      cfg.Vendor.Timeout,
		log:          zap.L().With(zap.String("component", "dispatcher")),
	}
}

type socialInput struct {
	Usernames    []string `json:"usernames"`
	ResultsLimit int      `json:"resultsLimit"`
}

type reviewTarget struct {
	ASIN         string `json:"asin"`
	DomainCode   string `json:"domainCode"`
	MaxPages     int    `json:"maxPages"`
	SortBy       string `json:"sortBy"`
	ReviewerType string `json:"reviewerType"`
}

type reviewsInput struct {
	Input []reviewTarget `json:"input"`
}

type adsInput struct {
	SearchTerms string `json:"searchTerms"`
	Country     string `json:"country"`
	Limit       int    `json:"limit"`
}

// dispatchTarget is one run to start.
type dispatchTarget struct {
	jobType entity.JobType
	label   string
	input   any
	meta    entity.JobMetadata
}

// Dispatch starts runs for every tracked brand, or only brandID when set. A
// failure on one target is logged and counted; the remaining targets still run.
func (d *Dispatcher) Dispatch(ctx context.Context, brandID *uuid.UUID) (dto.DispatchResult, error) {
	brands, err := d.brands.ListTracked(ctx, brandID)
	if err != nil {
		return dto.DispatchResult{}, err
	}

	result := dto.DispatchResult{Brands: len(brands), Jobs: []dto.StartedJob{}}
	for _, brand := range brands {
		targets, rejected := d.plan(brand)
		for _, url := range rejected {
			d.log.Warn("unparseable product url",
				zap.String("brand_id", brand.ID.String()),
				zap.String("url", url),
			)
		}
		result.Skipped = append(result.Skipped, rejected...)

		for _, target := range targets {
			started, err := d.start(ctx, brand.ID, target)
			if err != nil {
				result.Failed++
				d.log.Error("dispatch target failed",
					zap.String("brand_id", brand.ID.String()),
					zap.String("job_type", string(target.jobType)),
					zap.String("target", target.label),
					zap.Error(err),
				)
				continue
			}
			result.Started++
			result.Jobs = append(result.Jobs, started)
		}
	}

	d.log.Info("dispatch finished",
		zap.Int("brands", result.Brands),
		zap.Int("started", result.Started),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (d *Dispatcher) plan(brand entity.Brand) ([]dispatchTarget, []string) {
	var targets []dispatchTarget

	if handle := deref(brand.SocialHandle); handle != "" {
		targets = append(targets, dispatchTarget{
			jobType: entity.JobSocialBrand,
			label:   handle,
			input:   socialInput{Usernames: []string{handle}, ResultsLimit: d.resultsLimit},
			meta:    entity.JobMetadata{Handle: handle},
		})
	}

	for _, c := range brand.Competitors {
		handle := deref(c.SocialHandle)
		if handle == "" {
			continue
		}
		id := c.ID
		targets = append(targets, dispatchTarget{
			jobType: entity.JobSocialCompetitor,
			label:   handle,
			input:   socialInput{Usernames: []string{handle}, ResultsLimit: d.resultsLimit},
			meta:    entity.JobMetadata{CompetitorID: &id, Handle: handle},
		})
	}

	products, rejected := marketplace.Targets(brand.MarketplaceProductURLs)
	if len(products) > 0 {
		input := reviewsInput{Input: make([]reviewTarget, 0, len(products))}
		for _, p := range products {
			input.Input = append(input.Input, reviewTarget{
				ASIN:         p.ASIN,
				DomainCode:   p.Domain,
				MaxPages:     1,
				SortBy:       "recent",
				ReviewerType: "all_reviews",
			})
		}
		targets = append(targets, dispatchTarget{
			jobType: entity.JobMarketplaceReviews,
			label:   brand.Name,
			input:   input,
			meta:    entity.JobMetadata{Products: products},
		})
	}

	for _, c := range brand.Competitors {
		terms := deref(c.SocialHandle)
		if terms == "" {
			terms = c.Name
		}
		id := c.ID
		targets = append(targets, dispatchTarget{
			jobType: entity.JobCompetitorAds,
			label:   terms,
			input:   adsInput{SearchTerms: terms, Country: d.adsCountry, Limit: d.resultsLimit},
			meta:    entity.JobMetadata{CompetitorID: &id},
		})
	}

	return targets, rejected
}

func (d *Dispatcher) start(ctx context.Context, brandID uuid.UUID, target dispatchTarget) (dto.StartedJob, error) {
	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	runID, err := d.runner.StartRun(callCtx, target.jobType, target.input, d.webhookURL)
	if err != nil {
		return dto.StartedJob{}, err
	}

	meta, err := json.Marshal(target.meta)
	if err != nil {
		return dto.StartedJob{}, err
	}
	job := &entity.ScrapeJob{
		BrandID:       brandID,
		JobType:       target.jobType,
		ExternalRunID: runID,
		Metadata:      meta,
	}
	if err := d.jobs.Create(ctx, job); err != nil {
		return dto.StartedJob{}, err
	}

	d.log.Info("scrape run started",
		zap.String("brand_id", brandID.String()),
		zap.String("job_type", string(target.jobType)),
		zap.String("run_id", runID),
	)
	return dto.StartedJob{
		BrandID: brandID.String(),
		JobType: string(target.jobType),
		RunID:   runID,
		Target:  target.label,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
