package analysis

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/octobees/brandintel/internal/entity"
)

// CommentScores reads and writes comment sentiment.
type CommentScores interface {
	ListUnscoredComments(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error)
	UpdateCommentSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error
}

// ReviewScores reads and writes review sentiment.
type ReviewScores interface {
	ListUnscored(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error)
	UpdateSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error
}

// ReviewReader exposes the review reads used by keywords and insights.
type ReviewReader interface {
	ListTextsByLabel(ctx context.Context, brandID uuid.UUID, label entity.SentimentLabel, limit int) ([]string, error)
	ListRecent(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.MarketplaceReview, error)
}

// PostReader exposes the social reads used by insights.
type PostReader interface {
	ListCompetitorPosts(ctx context.Context, brandID uuid.UUID) ([]entity.CompetitorPost, error)
	CountPosts(ctx context.Context, brandID uuid.UUID) (brandPosts, competitorPosts int, err error)
}

// AdReader lists a brand's active competitor ads, newest first.
type AdReader interface {
	ListActiveForBrand(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.CompetitorAd, error)
}

// BrandReader loads brands.
type BrandReader interface {
	Get(ctx context.Context, brandID uuid.UUID) (*entity.Brand, error)
	ListReportable(ctx context.Context) ([]uuid.UUID, error)
}

// RunStore persists pipeline runs and stage markers.
type RunStore interface {
	OpenOrCreate(ctx context.Context, brandID uuid.UUID) (*entity.PipelineRun, bool, error)
	MarkStage(ctx context.Context, runID uuid.UUID, stage string, output json.RawMessage) error
	Complete(ctx context.Context, runID uuid.UUID) error
	Abandon(ctx context.Context, runID uuid.UUID) error
}

// ReportStore persists reports.
type ReportStore interface {
	Create(ctx context.Context, report *entity.Report) error
}
