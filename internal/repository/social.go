package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// SocialRepository persists social posts and their comments.
type SocialRepository interface {
	UpsertPost(ctx context.Context, post *entity.SocialPost) (uuid.UUID, error)
	UpsertComment(ctx context.Context, comment *entity.SocialComment) error
	ListUnscoredComments(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error)
	UpdateCommentSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error
	ListCompetitorPosts(ctx context.Context, brandID uuid.UUID) ([]entity.CompetitorPost, error)
	CountPosts(ctx context.Context, brandID uuid.UUID) (brandPosts, competitorPosts int, err error)
}

// PGXSocialRepository implements SocialRepository with pgx.
type PGXSocialRepository struct {
	pool database.Pool
}

// NewPGXSocialRepository instantiates a social repository.
func NewPGXSocialRepository(pool database.Pool) *PGXSocialRepository {
	return &PGXSocialRepository{pool: pool}
}

// UpsertPost inserts or refreshes a post by its vendor post id and returns the internal id.
func (r *PGXSocialRepository) UpsertPost(ctx context.Context, post *entity.SocialPost) (uuid.UUID, error) {
	if post.PostID == "" {
		return uuid.Nil, eris.New("post id must not be empty")
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO social_posts (post_id, brand_id, competitor_id, url, caption, likes, comments, post_type, posted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (post_id) DO UPDATE SET
            url = EXCLUDED.url,
            caption = EXCLUDED.caption,
            likes = EXCLUDED.likes,
            comments = EXCLUDED.comments,
            post_type = EXCLUDED.post_type,
            posted_at = COALESCE(EXCLUDED.posted_at, social_posts.posted_at),
            updated_at = now()
        RETURNING id
    `,
		post.PostID,
		uuidOrNil(post.BrandID),
		uuidOrNil(post.CompetitorID),
		stringOrNil(post.URL),
		stringOrNil(post.Caption),
		post.Likes,
		post.Comments,
		stringOrNil(post.PostType),
		timeOrNil(post.PostedAt),
	)

	if err := row.Scan(&post.ID); err != nil {
		return uuid.Nil, eris.Wrapf(err, "upsert social post %s", post.PostID)
	}
	return post.ID, nil
}

// UpsertComment inserts a comment keyed by (post, comment key); redelivery only refreshes text fields.
func (r *PGXSocialRepository) UpsertComment(ctx context.Context, comment *entity.SocialComment) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO social_comments (post_id, comment_key, text, author, commented_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (post_id, comment_key) DO UPDATE SET
            text = EXCLUDED.text,
            author = EXCLUDED.author,
            commented_at = COALESCE(EXCLUDED.commented_at, social_comments.commented_at)
    `, comment.PostID, comment.CommentKey, stringOrNil(comment.Text), stringOrNil(comment.Author), timeOrNil(comment.CommentedAt))
	if err != nil {
		return eris.Wrapf(err, "upsert social comment %s", comment.CommentKey)
	}
	return nil
}

// ListUnscoredComments returns comments on the brand's or its competitors' posts that have text but no sentiment yet.
func (r *PGXSocialRepository) ListUnscoredComments(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.ScoreTarget, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT c.id, c.text
        FROM social_comments c
        JOIN social_posts p ON p.id = c.post_id
        LEFT JOIN competitors k ON k.id = p.competitor_id
        WHERE (p.brand_id = $1 OR k.brand_id = $1)
          AND c.sentiment_label IS NULL
          AND btrim(coalesce(c.text, '')) <> ''
        ORDER BY c.created_at
        LIMIT $2
    `, brandID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list unscored comments")
	}
	defer rows.Close()

	var targets []entity.ScoreTarget
	for rows.Next() {
		target := entity.ScoreTarget{Kind: entity.ScoreComment}
		if err := rows.Scan(&target.ID, &target.Text); err != nil {
			return nil, eris.Wrap(err, "scan unscored comment")
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate unscored comments")
	}
	return targets, nil
}

// UpdateCommentSentiment stores the oracle's verdict for one comment.
func (r *PGXSocialRepository) UpdateCommentSentiment(ctx context.Context, id uuid.UUID, score float64, label entity.SentimentLabel) error {
	if _, err := r.pool.Exec(ctx, `
        UPDATE social_comments SET sentiment_score = $2, sentiment_label = $3 WHERE id = $1
    `, id, score, string(label)); err != nil {
		return eris.Wrapf(err, "update comment sentiment %s", id)
	}
	return nil
}

// ListCompetitorPosts returns competitor posts for a brand in a stable order.
func (r *PGXSocialRepository) ListCompetitorPosts(ctx context.Context, brandID uuid.UUID) ([]entity.CompetitorPost, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT k.id, k.name, coalesce(p.url, ''), p.likes, p.comments
        FROM social_posts p
        JOIN competitors k ON k.id = p.competitor_id
        WHERE k.brand_id = $1
        ORDER BY k.created_at, k.id, p.posted_at DESC NULLS LAST, p.post_id
    `, brandID)
	if err != nil {
		return nil, eris.Wrap(err, "list competitor posts")
	}
	defer rows.Close()

	var posts []entity.CompetitorPost
	for rows.Next() {
		var post entity.CompetitorPost
		if err := rows.Scan(&post.CompetitorID, &post.CompetitorName, &post.URL, &post.Likes, &post.Comments); err != nil {
			return nil, eris.Wrap(err, "scan competitor post")
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate competitor posts")
	}
	return posts, nil
}

// CountPosts returns how many posts the brand and its competitors have on record.
func (r *PGXSocialRepository) CountPosts(ctx context.Context, brandID uuid.UUID) (int, int, error) {
	var brandPosts, competitorPosts int
	row := r.pool.QueryRow(ctx, `
        SELECT
            (SELECT count(*) FROM social_posts WHERE brand_id = $1),
            (SELECT count(*) FROM social_posts p JOIN competitors k ON k.id = p.competitor_id WHERE k.brand_id = $1)
    `, brandID)
	if err := row.Scan(&brandPosts, &competitorPosts); err != nil {
		return 0, 0, eris.Wrap(err, "count posts")
	}
	return brandPosts, competitorPosts, nil
}
