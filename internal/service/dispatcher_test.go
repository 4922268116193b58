package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/config"
	"github.com/octobees/brandintel/internal/entity"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type startedRun struct {
	jobType entity.JobType
	input   any
	webhook string
}

type mockRunner struct {
	start func(jobType entity.JobType, input any) (string, error)
	fetch func(runID string) ([]json.RawMessage, error)

	started []startedRun
	fetched []string
}

func (m *mockRunner) StartRun(_ context.Context, jobType entity.JobType, input any, webhookURL string) (string, error) {
	m.started = append(m.started, startedRun{jobType: jobType, input: input, webhook: webhookURL})
	if m.start != nil {
		return m.start(jobType, input)
	}
	return fmt.Sprintf("run-%d", len(m.started)), nil
}

func (m *mockRunner) FetchItems(_ context.Context, runID string) ([]json.RawMessage, error) {
	m.fetched = append(m.fetched, runID)
	if m.fetch != nil {
		return m.fetch(runID)
	}
	return nil, nil
}

type mockBrands struct {
	brands []entity.Brand
	err    error
	got    *uuid.UUID
}

func (m *mockBrands) ListTracked(_ context.Context, brandID *uuid.UUID) ([]entity.Brand, error) {
	m.got = brandID
	return m.brands, m.err
}

type mockJobCreator struct {
	created []*entity.ScrapeJob
	err     error
}

func (m *mockJobCreator) Create(_ context.Context, job *entity.ScrapeJob) error {
	if m.err != nil {
		return m.err
	}
	job.ID = uuid.New()
	job.Status = entity.JobRunning
	m.created = append(m.created, job)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		PublicBaseURL: "https://intel.example.com",
		Vendor:        config.VendorConfig{ResultsLimit: 50, AdsCountry: "IN"},
	}
}

func strPtr(s string) *string { return &s }

func trackedBrand() entity.Brand {
	brandID := uuid.New()
	return entity.Brand{
		ID:           brandID,
		Name:         "Acme",
		SocialHandle: strPtr("acme"),
		MarketplaceProductURLs: []string{
			"https://www.amazon.in/dp/B0ABCDE123",
			"https://www.amazon.in/gp/product/B0ABCDE123?asin=B0ABCDE123",
			"https://www.amazon.co.uk/s?k=shoes",
		},
		Competitors: []entity.Competitor{
			{ID: uuid.New(), BrandID: brandID, Name: "Rival", SocialHandle: strPtr("rival")},
			{ID: uuid.New(), BrandID: brandID, Name: "Quiet Co"},
		},
	}
}

func TestDispatcher_PlansEveryJobType(t *testing.T) {
	brand := trackedBrand()
	runner := &mockRunner{}
	jobs := &mockJobCreator{}

	d := NewDispatcher(&mockBrands{brands: []entity.Brand{brand}}, jobs, runner, testConfig())
	result, err := d.Dispatch(context.Background(), nil)
	require.NoError(t, err)

	// brand social, one competitor social, one reviews batch, two ads
	assert.Equal(t, 1, result.Brands)
	assert.Equal(t, 5, result.Started)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"https://www.amazon.co.uk/s?k=shoes"}, result.Skipped)
	require.Len(t, jobs.created, 5)

	types := make([]entity.JobType, 0, len(runner.started))
	for _, s := range runner.started {
		types = append(types, s.jobType)
		assert.Equal(t, "https://intel.example.com/webhooks/scrape", s.webhook)
	}
	assert.Equal(t, []entity.JobType{
		entity.JobSocialBrand,
		entity.JobSocialCompetitor,
		entity.JobMarketplaceReviews,
		entity.JobCompetitorAds,
		entity.JobCompetitorAds,
	}, types)

	reviews := runner.started[2].input.(reviewsInput)
	require.Len(t, reviews.Input, 1)
	assert.Equal(t, reviewTarget{ASIN: "B0ABCDE123", DomainCode: "in", MaxPages: 1, SortBy: "recent", ReviewerType: "all_reviews"}, reviews.Input[0])

	ads := runner.started[4].input.(adsInput)
	assert.Equal(t, adsInput{SearchTerms: "Quiet Co", Country: "IN", Limit: 50}, ads)

	for i, job := range jobs.created {
		assert.Equal(t, brand.ID, job.BrandID)
		assert.Equal(t, fmt.Sprintf("run-%d", i+1), job.ExternalRunID)
	}

	meta, err := jobs.created[4].DecodeMetadata()
	require.NoError(t, err)
	require.NotNil(t, meta.CompetitorID)
	assert.Equal(t, brand.Competitors[1].ID, *meta.CompetitorID)

	meta, err = jobs.created[1].DecodeMetadata()
	require.NoError(t, err)
	require.NotNil(t, meta.CompetitorID)
	assert.Equal(t, brand.Competitors[0].ID, *meta.CompetitorID)
}

func TestDispatcher_IsolatesTargetFailures(t *testing.T) {
	brand := trackedBrand()
	runner := &mockRunner{start: func(jobType entity.JobType, _ any) (string, error) {
		if jobType == entity.JobSocialCompetitor {
			return "", errors.New("vendor unavailable")
		}
		return uuid.NewString(), nil
	}}
	jobs := &mockJobCreator{}

	result, err := NewDispatcher(&mockBrands{brands: []entity.Brand{brand}}, jobs, runner, testConfig()).
		Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Started)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, jobs.created, 4)
	assert.Len(t, runner.started, 5)
}

func TestDispatcher_SingleBrandAndListError(t *testing.T) {
	id := uuid.New()
	brands := &mockBrands{}
	_, err := NewDispatcher(brands, &mockJobCreator{}, &mockRunner{}, testConfig()).Dispatch(context.Background(), &id)
	require.NoError(t, err)
	require.NotNil(t, brands.got)
	assert.Equal(t, id, *brands.got)

	brands.err = errors.New("db down")
	_, err = NewDispatcher(brands, &mockJobCreator{}, &mockRunner{}, testConfig()).Dispatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestDispatcher_PersistFailureCountsAsFailed(t *testing.T) {
	brand := entity.Brand{ID: uuid.New(), Name: "Solo", SocialHandle: strPtr("solo")}
	result, err := NewDispatcher(&mockBrands{brands: []entity.Brand{brand}}, &mockJobCreator{err: errors.New("insert")}, &mockRunner{}, testConfig()).
		Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Started)
	assert.Equal(t, 1, result.Failed)
}
