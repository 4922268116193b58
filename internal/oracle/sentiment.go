package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/entity"
)

const sentimentSystem = `You are a sentiment analysis tool. Analyze the sentiment of the given text and return only a JSON object with "score" (a number between -1 and 1, where -1 is very negative, 0 is neutral and 1 is very positive) and "label" (one of "positive", "negative", "neutral").`

// Sentiment is a scored verdict for one text.
type Sentiment struct {
	Score float64
	Label entity.SentimentLabel
}

// SentimentScorer scores text polarity.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (Sentiment, error)
}

// SentimentOracle scores sentiment with a language model.
type SentimentOracle struct {
	messenger Messenger
	model     string
}

// NewSentimentOracle builds a scorer that uses model.
func NewSentimentOracle(m Messenger, model string) *SentimentOracle {
	return &SentimentOracle{messenger: m, model: model}
}

// Score asks the model for a verdict. The score is clamped to [-1,1] and an
// unrecognised label is derived from the score.
func (o *SentimentOracle) Score(ctx context.Context, text string) (Sentiment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Sentiment{}, eris.New("sentiment: empty text")
	}

	reply, err := o.messenger.Complete(ctx, Request{
		Model:       o.model,
		System:      sentimentSystem,
		Prompt:      fmt.Sprintf("Analyze the sentiment of this text: %q", text),
		MaxTokens:   100,
		Temperature: temperature(0.3),
	})
	if err != nil {
		return Sentiment{}, err
	}

	var out struct {
		Score any    `json:"score"`
		Label string `json:"label"`
	}
	if err := decodeReply(reply, &out); err != nil {
		return Sentiment{}, eris.Wrap(err, "sentiment")
	}

	score := math.Max(-1, math.Min(1, toFloat(out.Score)))
	return Sentiment{Score: score, Label: normalizeLabel(out.Label, score)}, nil
}

func normalizeLabel(label string, score float64) entity.SentimentLabel {
	switch entity.SentimentLabel(strings.ToLower(strings.TrimSpace(label))) {
	case entity.SentimentPositive:
		return entity.SentimentPositive
	case entity.SentimentNegative:
		return entity.SentimentNegative
	case entity.SentimentNeutral:
		return entity.SentimentNeutral
	}
	switch {
	case score > 0.2:
		return entity.SentimentPositive
	case score < -0.2:
		return entity.SentimentNegative
	default:
		return entity.SentimentNeutral
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0
		}
		return n
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
