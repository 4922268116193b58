package dto

import "encoding/json"

// Vendor event kinds understood by the ingestor.
const (
	EventRunSucceeded = "ACTOR.RUN.SUCCEEDED"
	EventRunFailed    = "ACTOR.RUN.FAILED"
)

// WebhookEvent is the completion callback posted by the scrape vendor.
type WebhookEvent struct {
	EventType  string          `json:"eventType"`
	ActorRunID string          `json:"actorRunId"`
	ActorID    string          `json:"actorId"`
	EventData  *WebhookPayload `json:"eventData,omitempty"`
	Resource   json.RawMessage `json:"resource,omitempty"`
}

// WebhookPayload mirrors the nested eventData block some vendor deliveries carry.
type WebhookPayload struct {
	ActorID    string `json:"actorId"`
	ActorRunID string `json:"actorRunId"`
}

// RunID returns the run identifier, preferring the flat field.
func (e WebhookEvent) RunID() string {
	if e.ActorRunID != "" {
		return e.ActorRunID
	}
	if e.EventData != nil {
		return e.EventData.ActorRunID
	}
	return ""
}

// IngestResult summarises how a webhook delivery was handled.
type IngestResult struct {
	RunID     string `json:"run_id,omitempty"`
	JobType   string `json:"job_type,omitempty"`
	Status    string `json:"status"`
	Items     int    `json:"items"`
	Persisted int    `json:"persisted"`
	Skipped   int    `json:"skipped"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
