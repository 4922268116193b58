package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxKeywords caps each polarity's keyword list.
const MaxKeywords = 10

// KeywordExtractor pulls recurring themes out of review text.
type KeywordExtractor interface {
	Extract(ctx context.Context, text, polarity string) ([]string, error)
}

// KeywordOracle extracts keywords with a language model.
type KeywordOracle struct {
	messenger Messenger
	model     string
}

// NewKeywordOracle builds an extractor that uses model.
func NewKeywordOracle(m Messenger, model string) *KeywordOracle {
	return &KeywordOracle{messenger: m, model: model}
}

// Extract returns at most MaxKeywords distinct keywords. Empty text returns
// nothing without calling the model.
func (o *KeywordOracle) Extract(ctx context.Context, text, polarity string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reply, err := o.messenger.Complete(ctx, Request{
		Model: o.model,
		System: fmt.Sprintf(`Extract the top %d keywords or short phrases that summarise the recurring themes in these %s product reviews. `+
			`Return only a JSON object {"keywords": [string]}.`, MaxKeywords, polarity),
		Prompt:      text,
		MaxTokens:   300,
		Temperature: temperature(0.3),
	})
	if err != nil {
		return nil, err
	}

	keywords, err := parseKeywords(reply)
	if err != nil {
		return nil, eris.Wrapf(err, "keywords (%s)", polarity)
	}
	return keywords, nil
}

// parseKeywords accepts either {"keywords": [...]} or a bare array.
func parseKeywords(reply string) ([]string, error) {
	var raw []string
	var wrapped struct {
		Keywords []string `json:"keywords"`
	}
	if err := decodeReply(reply, &wrapped); err == nil && wrapped.Keywords != nil {
		raw = wrapped.Keywords
	} else if err := decodeReply(reply, &raw); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, MaxKeywords)
	for _, k := range raw {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out, nil
}
