package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/entity"
	"github.com/octobees/brandintel/internal/oracle"
)

const (
	recentReviewLimit  = 100
	reviewExcerptCount = 20
	reviewExcerptChars = 200
	activeAdLimit      = 50
	adExcerptCount     = 10
	adExcerptChars     = 150
)

// InsightStage gathers brand data, asks the oracle for structured insights and
// overlays the deterministic figures.
type InsightStage struct {
	brands    BrandReader
	reviews   ReviewReader
	posts     PostReader
	ads       AdReader
	generator oracle.InsightGenerator
	timeout   time.Duration
	now       func() time.Time
	log       *zap.Logger
}

// NewInsightStage wires the stage.
func NewInsightStage(brands BrandReader, reviews ReviewReader, posts PostReader, ads AdReader, generator oracle.InsightGenerator, timeout time.Duration) *InsightStage {
	return &InsightStage{
		brands:    brands,
		reviews:   reviews,
		posts:     posts,
		ads:       ads,
		generator: generator,
		timeout:   timeout,
		now:       time.Now,
		log:       zap.L().With(zap.String("component", "insights")),
	}
}

// brief is the data an insight generation is based on.
type brief struct {
	brand              *entity.Brand
	reviews            []entity.MarketplaceReview
	breakdown          entity.SentimentBreakdown
	avgRating          float64
	brandPosts         int
	competitorPosts    int
	ads                []entity.CompetitorAd
	competitorPostList []entity.CompetitorPost
}

// Run produces the augmented insights for one brand.
func (s *InsightStage) Run(ctx context.Context, brandID uuid.UUID) (entity.Insights, error) {
	b, err := s.gather(ctx, brandID)
	if err != nil {
		return entity.Insights{}, err
	}

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	insights, err := s.generator.Generate(genCtx, b.render())
	if err != nil {
		s.log.Error("generate insights", zap.String("brand_id", brandID.String()), zap.Error(err))
		return entity.Insights{}, eris.Wrapf(err, "generate insights for brand %s", brandID)
	}

	insights.BrandHealth.SentimentBreakdown = b.breakdown
	insights.BrandHealth.RatingTrend.Current = b.avgRating
	Augment(&insights, b.competitorPostList, b.ads, s.now())

	s.log.Info("insights generated",
		zap.String("brand_id", brandID.String()),
		zap.Int("score", insights.BrandHealth.OverallScore),
		zap.Int("vulnerabilities", len(insights.Vulnerabilities)),
		zap.Int("steal_this", len(insights.StealThis)),
		zap.Int("watch_this", len(insights.WatchThis)),
	)
	return insights, nil
}

func (s *InsightStage) gather(ctx context.Context, brandID uuid.UUID) (*brief, error) {
	brand, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListRecent(ctx, brandID, recentReviewLimit)
	if err != nil {
		return nil, err
	}
	brandPosts, competitorPosts, err := s.posts.CountPosts(ctx, brandID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListCompetitorPosts(ctx, brandID)
	if err != nil {
		return nil, err
	}
	ads, err := s.ads.ListActiveForBrand(ctx, brandID, activeAdLimit)
	if err != nil {
		return nil, err
	}

	return &brief{
		brand:              brand,
		reviews:            reviews,
		breakdown:          Breakdown(reviews),
		avgRating:          AverageRating(reviews),
		brandPosts:         brandPosts,
		competitorPosts:    competitorPosts,
		ads:                ads,
		competitorPostList: posts,
	}, nil
}

func (b *brief) render() string {
	var sb strings.Builder

	handle := "N/A"
	if b.brand.SocialHandle != nil && *b.brand.SocialHandle != "" {
		handle = *b.brand.SocialHandle
	}
	fmt.Fprintf(&sb, "Brand: %s\nSocial Handle: %s\n\n", b.brand.Name, handle)

	fmt.Fprintf(&sb, "Recent Reviews (%d):\n", len(b.reviews))
	if len(b.reviews) == 0 {
		sb.WriteString("No reviews\n")
	}
	for i, r := range b.reviews {
		if i == reviewExcerptCount {
			break
		}
		rating := "n/a"
		if r.Rating != nil {
			rating = fmt.Sprintf("%d", *r.Rating)
		}
		label := "unscored"
		if r.SentimentLabel != nil {
			label = string(*r.SentimentLabel)
		}
		text := ""
		if r.Text != nil {
			text = truncate(*r.Text, reviewExcerptChars)
		}
		fmt.Fprintf(&sb, "- Rating: %s/5, Sentiment: %s, Text: %s\n", rating, label, text)
	}

	breakdown, _ := json.Marshal(b.breakdown)
	fmt.Fprintf(&sb, "\nSentiment Breakdown: %s\n", breakdown)
	fmt.Fprintf(&sb, "Average Rating: %.2f/5\n\n", b.avgRating)

	fmt.Fprintf(&sb, "Brand Social Posts: %d\n", b.brandPosts)
	fmt.Fprintf(&sb, "Competitor Posts: %d\n\n", b.competitorPosts)

	fmt.Fprintf(&sb, "Active Competitor Ads: %d\n", len(b.ads))
	if len(b.ads) == 0 {
		sb.WriteString("No ads\n")
	}
	for i, ad := range b.ads {
		if i == adExcerptCount {
			break
		}
		body := ""
		if ad.Body != nil {
			body = truncate(*ad.Body, adExcerptChars)
		}
		fmt.Fprintf(&sb, "- %s: %s\n", ad.CompetitorName, body)
	}
	return sb.String()
}
