package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// ReviewsRepository persists marketplace reviews.
type ReviewsRepository interface {
	Upsert(ctx context.Context, review *entity.MarketplaceReview) error
	ListUnscored(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error)
	UpdateSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error
	ListTextsByLabel(ctx context.Context, brandID uuid.UUID, label entity.SentimentLabel, limit int) ([]string, error)
	ListRecent(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.MarketplaceReview, error)
}

// PGXReviewsRepository implements ReviewsRepository with pgx.
type PGXReviewsRepository struct {
	pool database.Pool
}

// NewPGXReviewsRepository instantiates a reviews repository.
func NewPGXReviewsRepository(pool database.Pool) *PGXReviewsRepository {
	return &PGXReviewsRepository{pool: pool}
}

// Upsert inserts or refreshes a review by its vendor review id. Sentiment columns are never touched here.
func (r *PGXReviewsRepository) Upsert(ctx context.Context, review *entity.MarketplaceReview) error {
	if review.ReviewID == "" {
		return eris.New("review id must not be empty")
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO marketplace_reviews (review_id, brand_id, product_url, rating, title, text, reviewer_name, verified, helpful_votes, review_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (review_id) DO UPDATE SET
            product_url = EXCLUDED.product_url,
            rating = EXCLUDED.rating,
            title = EXCLUDED.title,
            text = EXCLUDED.text,
            reviewer_name = EXCLUDED.reviewer_name,
            verified = EXCLUDED.verified,
            helpful_votes = EXCLUDED.helpful_votes,
            review_date = COALESCE(EXCLUDED.review_date, marketplace_reviews.review_date),
            updated_at = now()
    `,
		review.ReviewID,
		review.BrandID,
		stringOrNil(review.ProductURL),
		intOrNil(review.Rating),
		stringOrNil(review.Title),
		stringOrNil(review.Text),
		stringOrNil(review.ReviewerName),
		review.Verified,
		review.HelpfulVotes,
		timeOrNil(review.ReviewDate),
	)
	if err != nil {
		return eris.Wrapf(err, "upsert marketplace review %s", review.ReviewID)
	}
	return nil
}

// ListUnscored returns reviews whose title or body has text and that lack a sentiment label.
// The scoring text is the title followed by the body.
func (r *PGXReviewsRepository) ListUnscored(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, btrim(coalesce(title, '') || ' ' || coalesce(text, ''))
        FROM marketplace_reviews
        WHERE brand_id = $1
          AND sentiment_label IS NULL
          AND btrim(coalesce(title, '') || coalesce(text, '')) <> ''
        ORDER BY created_at
        LIMIT $2
    `, brandID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list unscored reviews")
	}
	defer rows.Close()

	var targets []entity.ScoreTarget
	for rows.Next() {
		target := entity.ScoreTarget{Kind: entity.ScoreReview}
		if err := rows.Scan(&target.ID, &target.Text); err != nil {
			return nil, eris.Wrap(err, "scan unscored review")
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate unscored reviews")
	}
	return targets, nil
}

// UpdateSentiment stores the oracle's verdict for one review.
func (r *PGXReviewsRepository) UpdateSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error {
	if _, err := r.pool.Exec(ctx, `
        UPDATE marketplace_reviews SET sentiment_score = $2, sentiment_label = $3 WHERE id = $1
    `, id, score, string(label)); err != nil {
		return eris.Wrapf(err, "update review sentiment %s", id)
	}
	return nil
}

// ListTextsByLabel returns title-plus-body texts of reviews already labelled with the given polarity.
func (r *PGXReviewsRepository) ListTextsByLabel(ctx context.Context, brandID uuid.UUID, label entity.SentimentLabel, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT btrim(coalesce(title, '') || ' ' || coalesce(text, ''))
        FROM marketplace_reviews
        WHERE brand_id = $1 AND sentiment_label = $2 AND btrim(coalesce(title, '') || coalesce(text, '')) <> ''
        ORDER BY review_date DESC NULLS LAST, created_at DESC
        LIMIT $3
    `, brandID, string(label), limit)
	if err != nil {
		return nil, eris.Wrapf(err, "list %s review texts", label)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, eris.Wrap(err, "scan review text")
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate review texts")
	}
	return texts, nil
}

// ListRecent returns the newest reviews for a brand.
func (r *PGXReviewsRepository) ListRecent(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.MarketplaceReview, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, review_id, brand_id, rating, title, text, sentiment_label, review_date
        FROM marketplace_reviews
        WHERE brand_id = $1
        ORDER BY review_date DESC NULLS LAST, created_at DESC
        LIMIT $2
    `, brandID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list recent reviews")
	}
	defer rows.Close()

	var reviews []entity.MarketplaceReview
	for rows.Next() {
		var (
			review     entity.MarketplaceReview
			rating     sql.NullInt64
			title      sql.NullString
			text       sql.NullString
			label      sql.NullString
			reviewDate sql.NullTime
		)
		if err := rows.Scan(&review.ID, &review.ReviewID, &review.BrandID, &rating, &title, &text, &label, &reviewDate); err != nil {
			return nil, eris.Wrap(err, "scan review row")
		}
		review.Rating = nullIntToPtr(rating)
		review.Title = nullStringToPtr(title)
		review.Text = nullStringToPtr(text)
		review.ReviewDate = nullTimeToPtr(reviewDate)
		if label.Valid {
			l := entity.SentimentLabel(label.String)
			review.SentimentLabel = &l
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate reviews")
	}
	return reviews, nil
}
