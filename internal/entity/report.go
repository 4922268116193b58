package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ReportTypeWeekly is the only report cadence produced today.
const ReportTypeWeekly = "weekly"

// Report is an immutable generated report; only the delivery flags change after creation.
type Report struct {
	ID              uuid.UUID       `json:"id"`
	GenerationID    uuid.UUID       `json:"generation_id"`
	BrandID         uuid.UUID       `json:"brand_id"`
	ReportType      string          `json:"report_type"`
	Insights        json.RawMessage `json:"insights"`
	Summary         string          `json:"summary"`
	SentViaEmail    bool            `json:"sent_via_email"`
	SentViaWhatsApp bool            `json:"sent_via_whatsapp"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Insights is the structured payload stored on a report.
type Insights struct {
	BrandHealth     BrandHealth     `json:"brandHealth"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Opportunities   []Opportunity   `json:"opportunities"`
	StealThis       []StealThis     `json:"stealThis"`
	WatchThis       []WatchThis     `json:"watchThis"`
}

type BrandHealth struct {
	OverallScore        int                `json:"overallScore"`
	SentimentBreakdown  SentimentBreakdown `json:"sentimentBreakdown"`
	RatingTrend         RatingTrend        `json:"ratingTrend"`
	TopPositiveKeywords []string           `json:"topPositiveKeywords"`
	TopNegativeKeywords []string           `json:"topNegativeKeywords"`
}

// SentimentBreakdown holds integer percentages of classified reviews.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type RatingTrend struct {
	Current float64 `json:"current"`
	Change  float64 `json:"change"`
}

type Vulnerability struct {
	Issue                string `json:"issue"`
	Evidence             string `json:"evidence"`
	CompetitorExploiting string `json:"competitorExploiting,omitempty"`
	Severity             string `json:"severity"`
}

type Opportunity struct {
	Insight         string `json:"insight"`
	SuggestedAction string `json:"suggestedAction"`
}

type StealThis struct {
	CompetitorName string `json:"competitorName"`
	PostURL        string `json:"postUrl"`
	WhyItWorks     string `json:"whyItWorks"`
}

type WatchThis struct {
	CompetitorName string `json:"competitorName"`
	AdPreview      string `json:"adPreview"`
	Observation    string `json:"observation"`
}

// PipelineRun records stage completion markers for one report generation.
type PipelineRun struct {
	ID        uuid.UUID                  `json:"id"`
	BrandID   uuid.UUID                  `json:"brand_id"`
	Status    string                     `json:"status"`
	Stages    map[string]json.RawMessage `json:"stages"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

const (
	RunOpen      = "open"
	RunCompleted = "completed"
	RunAbandoned = "abandoned"
)

// Done reports whether the named stage has a persisted marker.
func (r *PipelineRun) Done(stage string) bool {
	_, ok := r.Stages[stage]
	return ok
}
