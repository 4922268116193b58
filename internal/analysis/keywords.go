package analysis

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/oracle"
)

const keywordReviewLimit = 50

// KeywordStage extracts positive and negative themes from labelled reviews.
type KeywordStage struct {
	reviews   ReviewReader
	extractor oracle.KeywordExtractor
	log       *zap.Logger
}

// NewKeywordStage wires the stage.
func NewKeywordStage(reviews ReviewReader, extractor oracle.KeywordExtractor) *KeywordStage {
	return &KeywordStage{
		reviews:   reviews,
		extractor: extractor,
		log:       zap.L().With(zap.String("component", "keywords")),
	}
}

// Run returns up to ten keywords per polarity. An extraction failure yields an
// empty list for that polarity.
func (s *KeywordStage) Run(ctx context.Context, brandID uuid.UUID) (dto.KeywordsResult, error) {
	positive, err := s.extract(ctx, brandID, entity.SentimentPositive)
	if err != nil {
		return dto.KeywordsResult{}, err
	}
	negative, err := s.extract(ctx, brandID, entity.SentimentNegative)
	if err != nil {
		return dto.KeywordsResult{}, err
	}
	return dto.KeywordsResult{Positive: positive, Negative: negative}, nil
}

func (s *KeywordStage) extract(ctx context.Context, brandID uuid.UUID, label entity.SentimentLabel) ([]string, error) {
	texts, err := s.reviews.ListTextsByLabel(ctx, brandID, label, keywordReviewLimit)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return []string{}, nil
	}

	keywords, err := s.extractor.Extract(ctx, text, string(label))
	if err != nil {
		s.log.Warn("extract keywords",
			zap.String("brand_id", brandID.String()),
			zap.String("polarity", string(label)),
			zap.Error(err),
		)
		return []string{}, nil
	}
	if len(keywords) > oracle.MaxKeywords {
		keywords = keywords[:oracle.MaxKeywords]
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords, nil
}
