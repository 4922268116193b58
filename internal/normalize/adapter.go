package normalize

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/octobees/brandintel/internal/entity"
)

// Adapter persists one job's vendor items. A malformed or unpersistable item is
// counted and skipped; it never stops the rest of the batch.
type Adapter interface {
	Apply(ctx context.Context, job *entity.ScrapeJob, items []json.RawMessage) (Result, error)
}

// Result tallies an adapter pass.
type Result struct {
	Items     int
	Persisted int
	// Skipped items were malformed or could not be attributed.
	Skipped int
	// Failed items were well formed but the store rejected them.
	Failed int
}

// AllFailed reports whether the store rejected every item it was handed.
func (r Result) AllFailed() bool {
	return r.Failed > 0 && r.Persisted == 0
}

// PostStore is the persistence surface of the social adapter.
type PostStore interface {
	UpsertPost(ctx context.Context, post *entity.SocialPost) (uuid.UUID, error)
	UpsertComment(ctx context.Context, comment *entity.SocialComment) error
}

// CompetitorLister resolves a brand's competitors.
type CompetitorLister interface {
	ListCompetitors(ctx context.Context, brandID uuid.UUID) ([]entity.Competitor, error)
}

// ReviewStore is the persistence surface of the marketplace adapter.
type ReviewStore interface {
	Upsert(ctx context.Context, review *entity.MarketplaceReview) error
}

// AdStore is the persistence surface of the ad adapter.
type AdStore interface {
	Upsert(ctx context.Context, ad *entity.CompetitorAd) error
}
