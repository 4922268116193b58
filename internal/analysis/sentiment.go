package analysis

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/octobees/brandintel/internal/dto"
	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/oracle"
)

// SentimentStage scores unscored comments and reviews for a brand.
type SentimentStage struct {
	comments    CommentScores
	reviews     ReviewScores
	scorer      oracle.SentimentScorer
	batchLimit  int
	concurrency int
	timeout     time.Duration
	log         *zap.Logger
}

// NewSentimentStage wires the stage. batchLimit bounds each of the comment and
// review passes; concurrency bounds in-flight oracle calls.
func NewSentimentStage(comments CommentScores, reviews ReviewScores, scorer oracle.SentimentScorer, batchLimit, concurrency int, timeout time.Duration) *SentimentStage {
	return &SentimentStage{
		comments:    comments,
		reviews:     reviews,
		scorer:      scorer,
		batchLimit:  max(batchLimit, 1),
		concurrency: max(concurrency, 1),
		timeout:     timeout,
		log:         zap.L().With(zap.String("component", "sentiment")),
	}
}

// Run scores one batch. A failed oracle call leaves that item unscored for the
// next pass; read or write failures abort the stage.
func (s *SentimentStage) Run(ctx context.Context, brandID uuid.UUID) (dto.SentimentResult, error) {
	comments, err := s.comments.ListUnscoredComments(ctx, brandID, s.batchLimit)
	if err != nil {
		return dto.SentimentResult{}, err
	}
	reviews, err := s.reviews.ListUnscored(ctx, brandID, s.batchLimit)
	if err != nil {
		return dto.SentimentResult{}, err
	}

	targets := make([]entity.ScoreTarget, 0, len(comments)+len(reviews))
	targets = append(targets, comments...)
	targets = append(targets, reviews...)
	var scored, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, target := range targets {
		g.Go(func() error {
			verdict, err := s.score(gctx, target.Text)
			if err != nil {
				failed.Add(1)
				s.log.Warn("score item",
					zap.String("brand_id", brandID.String()),
					zap.String("kind", string(target.Kind)),
					zap.String("id", target.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			if err := s.store(gctx, target, verdict); err != nil {
				return err
			}
			scored.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("sentiment stage", zap.String("brand_id", brandID.String()), zap.Error(err))
		return dto.SentimentResult{}, err
	}

	result := dto.SentimentResult{
		Processed: len(targets),
		Scored:    int(scored.Load()),
		Failed:    int(failed.Load()),
	}
	s.log.Info("sentiment stage finished",
		zap.String("brand_id", brandID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("scored", result.Scored),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *SentimentStage) score(ctx context.Context, text string) (oracle.Sentiment, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.scorer.Score(ctx, text)
}

func (s *SentimentStage) store(ctx context.Context, target entity.ScoreTarget, verdict oracle.Sentiment) error {
	if target.Kind == entity.ScoreReview {
		return s.reviews.UpdateSentiment(ctx, target.ID, verdict.Score, verdict.Label)
	}
	return s.comments.UpdateCommentSentiment(ctx, target.ID, verdict.Score, verdict.Label)
}
