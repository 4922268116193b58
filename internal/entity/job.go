package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType identifies which vendor actor a scrape job ran and which adapter owns its results.
type JobType string

const (
	JobSocialBrand        JobType = "social_brand"
	JobSocialCompetitor   JobType = "social_competitor"
	JobMarketplaceReviews JobType = "marketplace_reviews"
	JobCompetitorAds      JobType = "competitor_ads"
)

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is permitted.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ScrapeJob correlates a brand with one external vendor run.
type ScrapeJob struct {
	ID            uuid.UUID       `json:"id"`
	BrandID       uuid.UUID       `json:"brand_id"`
	JobType       JobType         `json:"job_type"`
	Status        JobStatus       `json:"status"`
	ExternalRunID string          `json:"external_run_id"`
	Metadata      json.RawMessage `json:"metadata"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// JobMetadata is the structured view over ScrapeJob.Metadata.
type JobMetadata struct {
	CompetitorID *uuid.UUID      `json:"competitor_id,omitempty"`
	Handle       string          `json:"handle,omitempty"`
	Products     []ProductTarget `json:"products,omitempty"`
}

// ProductTarget is a marketplace product identifier plus its regional domain code.
type ProductTarget struct {
	ASIN   string `json:"asin"`
	Domain string `json:"domain"`
}

// ProductURL reconstructs the canonical product page for the target.
func (p ProductTarget) ProductURL() string {
	return "https://www.amazon." + p.Domain + "/dp/" + p.ASIN
}

// DecodeMetadata parses the job's metadata, tolerating an empty document.
func (j *ScrapeJob) DecodeMetadata() (JobMetadata, error) {
	var meta JobMetadata
	if len(j.Metadata) == 0 {
		return meta, nil
	}
	err := json.Unmarshal(j.Metadata, &meta)
	return meta, err
}
