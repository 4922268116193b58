package dto

// StageRequest is the payload shared by per-brand pipeline stages.
type StageRequest struct {
	BrandID string `json:"brand_id" validate:"required,uuid"`
}

// DispatchRequest optionally narrows dispatch to a single brand.
type DispatchRequest struct {
	BrandID string `json:"brand_id,omitempty" validate:"omitempty,uuid"`
}

// NotifyRequest selects the report to deliver.
type NotifyRequest struct {
	ReportID string `json:"report_id" validate:"required,uuid"`
}

// DispatchResult tallies started runs across brands.
type DispatchResult struct {
	Brands  int          `json:"brands"`
	Started int          `json:"started"`
	Failed  int          `json:"failed"`
	Skipped []string     `json:"skipped,omitempty"`
	Jobs    []StartedJob `json:"jobs"`
}

// StartedJob describes one persisted scrape job.
type StartedJob struct {
	BrandID string `json:"brand_id"`
	JobType string `json:"job_type"`
	RunID   string `json:"run_id"`
	Target  string `json:"target"`
}

// SentimentResult reports how many rows a sentiment pass scored.
type SentimentResult struct {
	Processed int `json:"processed"`
	Scored    int `json:"scored"`
	Failed    int `json:"failed"`
}

// KeywordsResult carries the extracted keyword lists.
type KeywordsResult struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// ReportResult identifies a generated report.
type ReportResult struct {
	ReportID     string `json:"report_id"`
	GenerationID string `json:"generation_id"`
	Summary      string `json:"summary"`
	Resumed      bool   `json:"resumed"`
}

// ReportAllResult is the per-brand tally of a generate-all run.
type ReportAllResult struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Reports   []ReportResult `json:"reports"`
	Errors    []BrandError   `json:"errors,omitempty"`
}

// BrandError records why one brand's generation failed.
type BrandError struct {
	BrandID string `json:"brand_id"`
	Error   string `json:"error"`
}

// ChannelOutcome is the delivery result of one notification channel.
type ChannelOutcome struct {
	Channel   string `json:"channel"`
	Attempted bool   `json:"attempted"`
	Delivered bool   `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// NotifyResult gathers every channel outcome for a report.
type NotifyResult struct {
	ReportID string           `json:"report_id"`
	Channels []ChannelOutcome `json:"channels"`
}
