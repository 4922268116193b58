package oracle

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/entity"
)

const insightsSystem = `You are a brand intelligence analyst. Analyze the provided data and return only actionable insights as JSON with exactly this structure:
{
  "brandHealth": {
    "overallScore": number (0-100),
    "sentimentBreakdown": { "positive": number, "neutral": number, "negative": number },
    "ratingTrend": { "current": number, "change": number },
    "topPositiveKeywords": string[],
    "topNegativeKeywords": string[]
  },
  "vulnerabilities": [{ "issue": string, "evidence": string, "competitorExploiting": string | null, "severity": "high" | "medium" | "low" }],
  "opportunities": [{ "insight": string, "suggestedAction": string }],
  "stealThis": [{ "competitorName": string, "postUrl": string, "whyItWorks": string }],
  "watchThis": [{ "competitorName": string, "adPreview": string, "observation": string }]
}`

// InsightGenerator synthesises the structured report payload from a text context.
type InsightGenerator interface {
	Generate(ctx context.Context, brief string) (entity.Insights, error)
}

// InsightOracle generates insights with a language model.
type InsightOracle struct {
	messenger Messenger
	model     string
}

// NewInsightOracle builds a generator that uses model.
func NewInsightOracle(m Messenger, model string) *InsightOracle {
	return &InsightOracle{messenger: m, model: model}
}

// Generate returns the decoded insights with the score clamped to 0-100 and
// every list non-nil.
func (o *InsightOracle) Generate(ctx context.Context, brief string) (entity.Insights, error) {
	reply, err := o.messenger.Complete(ctx, Request{
		Model:       o.model,
		System:      insightsSystem,
		Prompt:      brief,
		MaxTokens:   4096,
		Temperature: temperature(0.7),
	})
	if err != nil {
		return entity.Insights{}, err
	}

	var decoded insightReply
	if err := decodeReply(reply, &decoded); err != nil {
		return entity.Insights{}, eris.Wrap(err, "insights")
	}
	return sanitize(decoded.toInsights()), nil
}

// insightReply accepts fractional or quoted numbers where the payload stores
// integers. Its BrandHealth shadows the embedded one during decoding.
type insightReply struct {
	entity.Insights
	BrandHealth struct {
		OverallScore       any `json:"overallScore"`
		SentimentBreakdown struct {
			Positive any `json:"positive"`
			Neutral  any `json:"neutral"`
			Negative any `json:"negative"`
		} `json:"sentimentBreakdown"`
		RatingTrend struct {
			Current any `json:"current"`
			Change  any `json:"change"`
		} `json:"ratingTrend"`
		TopPositiveKeywords []string `json:"topPositiveKeywords"`
		TopNegativeKeywords []string `json:"topNegativeKeywords"`
	} `json:"brandHealth"`
}

func (r insightReply) toInsights() entity.Insights {
	out := r.Insights
	h := r.BrandHealth
	out.BrandHealth = entity.BrandHealth{
		OverallScore: percent(h.OverallScore),
		SentimentBreakdown: entity.SentimentBreakdown{
			Positive: percent(h.SentimentBreakdown.Positive),
			Neutral:  percent(h.SentimentBreakdown.Neutral),
			Negative: percent(h.SentimentBreakdown.Negative),
		},
		RatingTrend: entity.RatingTrend{
			Current: toFloat(h.RatingTrend.Current),
			Change:  toFloat(h.RatingTrend.Change),
		},
		TopPositiveKeywords: h.TopPositiveKeywords,
		TopNegativeKeywords: h.TopNegativeKeywords,
	}
	return out
}

// percent rounds v to the nearest integer in 0..100.
func percent(v any) int {
	f := toFloat(v)
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 0) {
		f = math.Copysign(100, f)
	}
	return int(max(0, min(100, math.Round(f))))
}

var severities = map[string]bool{"high": true, "medium": true, "low": true}

func sanitize(in entity.Insights) entity.Insights {
	h := &in.BrandHealth
	h.OverallScore = max(0, min(100, h.OverallScore))
	if h.TopPositiveKeywords == nil {
		h.TopPositiveKeywords = []string{}
	}
	if h.TopNegativeKeywords == nil {
		h.TopNegativeKeywords = []string{}
	}
	if in.Vulnerabilities == nil {
		in.Vulnerabilities = []entity.Vulnerability{}
	}
	for i := range in.Vulnerabilities {
		if !severities[in.Vulnerabilities[i].Severity] {
			in.Vulnerabilities[i].Severity = "medium"
		}
	}
	if in.Opportunities == nil {
		in.Opportunities = []entity.Opportunity{}
	}
	if in.StealThis == nil {
		in.StealThis = []entity.StealThis{}
	}
	if in.WatchThis == nil {
		in.WatchThis = []entity.WatchThis{}
	}
	return in
}
