package normalize

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/entity"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// memoryStore mimics the unique constraints and ON CONFLICT upserts of the real tables.
type memoryStore struct {
	mu          sync.Mutex
	posts       map[string]entity.SocialPost
	comments    map[string]entity.SocialComment
	reviews     map[string]entity.MarketplaceReview
	ads         map[string]entity.CompetitorAd
	failPost    map[string]bool
	competitors []entity.Competitor
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		posts:    map[string]entity.SocialPost{},
		comments: map[string]entity.SocialComment{},
		reviews:  map[string]entity.MarketplaceReview{},
		ads:      map[string]entity.CompetitorAd{},
		failPost: map[string]bool{},
	}
}

func (m *memoryStore) UpsertPost(_ context.Context, post *entity.SocialPost) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPost[post.PostID] {
		return uuid.Nil, errors.New("constraint violation")
	}
	if existing, ok := m.posts[post.PostID]; ok {
		post.ID = existing.ID
	} else {
		post.ID = uuid.New()
	}
	m.posts[post.PostID] = *post
	return post.ID, nil
}

func (m *memoryStore) UpsertComment(_ context.Context, c *entity.SocialComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.PostID.String()+"/"+c.CommentKey] = *c
	return nil
}

func (m *memoryStore) ListCompetitors(_ context.Context, _ uuid.UUID) ([]entity.Competitor, error) {
	return m.competitors, nil
}

type reviewStore struct{ *memoryStore }

func (r reviewStore) Upsert(_ context.Context, review *entity.MarketplaceReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews[review.ReviewID] = *review
	return nil
}

type adStore struct{ *memoryStore }

func (a adStore) Upsert(_ context.Context, ad *entity.CompetitorAd) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ads[ad.AdID] = *ad
	return nil
}

func handle(s string) *string { return &s }
