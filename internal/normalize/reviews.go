package normalize

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/entity"
)

var (
	reviewID         = fieldPath{"reviewId", "id"}
	reviewRating     = fieldPath{"rating", "stars"}
	reviewTitle      = fieldPath{"title"}
	reviewText       = fieldPath{"text", "reviewText"}
	reviewAuthor     = fieldPath{"userName", "reviewerName", "author"}
	reviewVerified   = fieldPath{"verified", "verifiedPurchase"}
	reviewHelpful    = fieldPath{"numberOfHelpful", "helpfulVotes"}
	reviewDate       = fieldPath{"date", "reviewDate"}
	reviewProductURL = fieldPath{"productUrl", "url"}
	reviewASIN       = fieldPath{"asin", "productAsin"}
	reviewDomain     = fieldPath{"domainCode"}
)

// ParseReviewItem maps a vendor review onto canonical fields. targets are the
// products the job was started with and feed the product URL fallback.
func ParseReviewItem(raw json.RawMessage, targets []entity.ProductTarget) (entity.MarketplaceReview, error) {
	if !gjson.ValidBytes(raw) {
		return entity.MarketplaceReview{}, eris.New("item is not valid JSON")
	}
	item := gjson.ParseBytes(raw)

	id := reviewID.str(item)
	if id == nil {
		return entity.MarketplaceReview{}, eris.New("item has no review id")
	}

	review := entity.MarketplaceReview{
		ReviewID:     *id,
		Title:        reviewTitle.str(item),
		Text:         reviewText.str(item),
		ReviewerName: reviewAuthor.str(item),
		HelpfulVotes: reviewHelpful.count(item),
		ProductURL:   productURL(item, targets),
	}
	if r, ok := reviewRating.result(item); ok {
		review.Rating = ParseRating(r)
	}
	if r, ok := reviewDate.result(item); ok {
		review.ReviewDate = ParseReviewDate(r)
	}
	if r, ok := reviewVerified.result(item); ok {
		review.Verified = r.Bool()
	}
	return review, nil
}

// productURL takes the URL from the item, else rebuilds it from the item's
// product id and domain, else from the job's matching (or only) target.
func productURL(item gjson.Result, targets []entity.ProductTarget) *string {
	if u := reviewProductURL.str(item); u != nil {
		return u
	}

	asin := strings.ToUpper(deref(reviewASIN.str(item)))
	domain := strings.ToLower(deref(reviewDomain.str(item)))
	if asin != "" && domain != "" {
		u := entity.ProductTarget{ASIN: asin, Domain: domain}.ProductURL()
		return &u
	}
	for _, t := range targets {
		if asin != "" && t.ASIN == asin {
			u := t.ProductURL()
			return &u
		}
	}
	if len(targets) == 1 {
		u := targets[0].ProductURL()
		return &u
	}
	return nil
}

// ReviewAdapter persists marketplace_reviews jobs.
type ReviewAdapter struct {
	store ReviewStore
	log   *zap.Logger
}

// NewReviewAdapter builds a marketplace review adapter.
func NewReviewAdapter(store ReviewStore) *ReviewAdapter {
	return &ReviewAdapter{store: store, log: zap.L().With(zap.String("component", "normalize.reviews"))}
}

// Apply upserts every parseable review under the job's brand.
func (a *ReviewAdapter) Apply(ctx context.Context, job *entity.ScrapeJob, items []json.RawMessage) (Result, error) {
	res := Result{Items: len(items)}
	log := a.log.With(zap.String("run_id", job.ExternalRunID))

	meta, err := job.DecodeMetadata()
	if err != nil {
		log.Warn("job metadata unreadable", zap.Error(err))
	}

	for i, raw := range items {
		review, err := ParseReviewItem(raw, meta.Products)
		if err != nil {
			res.Skipped++
			log.Warn("skipping review item", zap.Int("index", i), zap.Error(err))
			continue
		}
		review.BrandID = job.BrandID

		if err := a.store.Upsert(ctx, &review); err != nil {
			res.Failed++
			log.Warn("review upsert failed", zap.String("review_id", review.ReviewID), zap.Error(err))
			continue
		}
		res.Persisted++
	}
	return res, nil
}
