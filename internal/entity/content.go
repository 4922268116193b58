package entity

import (
	"time"

	"github.com/google/uuid"
)

// SentimentLabel is the three-way polarity assigned by the scoring oracle.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// SocialPost is a canonical post owned by exactly one of a brand or a competitor.
type SocialPost struct {
	ID           uuid.UUID  `json:"id"`
	PostID       string     `json:"post_id"`
	BrandID      *uuid.UUID `json:"brand_id,omitempty"`
	CompetitorID *uuid.UUID `json:"competitor_id,omitempty"`
	URL          *string    `json:"url,omitempty"`
	Caption      *string    `json:"caption,omitempty"`
	Likes        int        `json:"likes"`
	Comments     int        `json:"comments"`
	PostType     *string    `json:"post_type,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
}

// SocialComment belongs to one SocialPost. CommentKey is unique per post.
type SocialComment struct {
	ID             uuid.UUID       `json:"id"`
	PostID         uuid.UUID       `json:"post_id"`
	CommentKey     string          `json:"comment_key"`
	Text           *string         `json:"text,omitempty"`
	Author         *string         `json:"author,omitempty"`
	CommentedAt    *time.Time      `json:"commented_at,omitempty"`
	SentimentScore *float64        `json:"sentiment_score,omitempty"`
	SentimentLabel *SentimentLabel `json:"sentiment_label,omitempty"`
}

// MarketplaceReview is a canonical product review for a brand.
type MarketplaceReview struct {
	ID             uuid.UUID       `json:"id"`
	ReviewID       string          `json:"review_id"`
	BrandID        uuid.UUID       `json:"brand_id"`
	ProductURL     *string         `json:"product_url,omitempty"`
	Rating         *int            `json:"rating,omitempty"`
	Title          *string         `json:"title,omitempty"`
	Text           *string         `json:"text,omitempty"`
	ReviewerName   *string         `json:"reviewer_name,omitempty"`
	Verified       bool            `json:"verified"`
	HelpfulVotes   int             `json:"helpful_votes"`
	ReviewDate     *time.Time      `json:"review_date,omitempty"`
	SentimentScore *float64        `json:"sentiment_score,omitempty"`
	SentimentLabel *SentimentLabel `json:"sentiment_label,omitempty"`
}

// CompetitorAd is a canonical ad library entry for a competitor.
type CompetitorAd struct {
	ID           uuid.UUID  `json:"id"`
	AdID         string     `json:"ad_id"`
	CompetitorID uuid.UUID  `json:"competitor_id"`
	PageName     *string    `json:"page_name,omitempty"`
	Body         *string    `json:"body,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Caption      *string    `json:"caption,omitempty"`
	MediaType    string     `json:"media_type"`
	MediaURL     *string    `json:"media_url,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	Platforms    []string   `json:"platforms"`

	// CompetitorName is populated by reads that join competitors.
	CompetitorName string `json:"competitor_name,omitempty"`
}

// ScoreTarget is an unscored comment or review queued for sentiment scoring.
type ScoreTarget struct {
	ID   uuid.UUID
	Kind ScoreKind
	Text string
}

// ScoreKind distinguishes the table a ScoreTarget lives in.
type ScoreKind string

const (
	ScoreComment ScoreKind = "comment"
	ScoreReview  ScoreKind = "review"
)

// CompetitorPost is the engagement view of a competitor post used by augmentation.
type CompetitorPost struct {
	CompetitorID   uuid.UUID
	CompetitorName string
	URL            string
	Likes          int
	Comments       int
}
