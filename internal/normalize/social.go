package normalize

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/entity"
)

var (
	socialPostID   = fieldPath{"id", "shortcode", "shortCode"}
	socialURL      = fieldPath{"url", "postUrl"}
	socialCaption  = fieldPath{"caption"}
	socialLikes    = fieldPath{"likesCount", "likes"}
	socialComments = fieldPath{"commentsCount", "comments"}
	socialType     = fieldPath{"type"}
	socialTime     = fieldPath{"timestamp", "takenAtTimestamp"}
	socialUsername = fieldPath{"username", "ownerUsername"}
	socialThread   = fieldPath{"comments", "latestComments"}

	commentID     = fieldPath{"id"}
	commentText   = fieldPath{"text"}
	commentAuthor = fieldPath{"ownerUsername", "owner.username", "username"}
	commentTime   = fieldPath{"timestamp"}
)

// commentNamespace seeds deterministic keys for comments without a vendor id.
var commentNamespace = uuid.MustParse("6f1c3c8e-4d3b-5a7e-9c2f-1b8d7e6a5c40")

// SocialItem is the canonical view of one vendor post.
type SocialItem struct {
	Post     entity.SocialPost
	Username string
	Comments []entity.SocialComment
}

// ParseSocialItem maps a vendor post onto canonical fields. It fails only when
// the item has no usable post id.
func ParseSocialItem(raw json.RawMessage) (SocialItem, error) {
	if !gjson.ValidBytes(raw) {
		return SocialItem{}, eris.New("item is not valid JSON")
	}
	item := gjson.ParseBytes(raw)

	postID := socialPostID.str(item)
	if postID == nil {
		return SocialItem{}, eris.New("item has no post id")
	}

	out := SocialItem{
		Post: entity.SocialPost{
			PostID:   *postID,
			URL:      socialURL.str(item),
			Caption:  socialCaption.str(item),
			Likes:    socialLikes.count(item),
			Comments: socialComments.count(item),
			PostType: socialType.str(item),
		},
	}
	if r, ok := socialTime.result(item); ok {
		out.Post.PostedAt = ParseTimestamp(r)
	}
	if u := socialUsername.str(item); u != nil {
		out.Username = *u
	}

	for _, c := range socialThread.array(item) {
		comment := entity.SocialComment{
			Text:   commentText.str(c),
			Author: commentAuthor.str(c),
		}
		if r, ok := commentTime.result(c); ok {
			comment.CommentedAt = ParseTimestamp(r)
		}
		if comment.Text == nil && comment.Author == nil {
			continue
		}
		comment.CommentKey = commentKey(*postID, c, comment)
		out.Comments = append(out.Comments, comment)
	}
	return out, nil
}

// commentKey prefers the vendor comment id and otherwise hashes the comment's
// content so redelivery maps onto the same row.
func commentKey(postID string, raw gjson.Result, c entity.SocialComment) string {
	if id := commentID.str(raw); id != nil {
		return *id
	}
	parts := []string{postID, deref(c.Author), deref(c.Text)}
	if c.CommentedAt != nil {
		parts = append(parts, c.CommentedAt.UTC().Format(time.RFC3339))
	}
	return uuid.NewSHA1(commentNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// ResolveCompetitor picks the competitor whose handle appears in username,
// case-insensitively. When several match, the longest handle wins, and equal
// lengths fall back to lexical order so the choice is deterministic.
func ResolveCompetitor(username string, competitors []entity.Competitor) (uuid.UUID, bool) {
	name := strings.ToLower(strings.TrimSpace(username))
	if name == "" {
		return uuid.Nil, false
	}

	type candidate struct {
		id     uuid.UUID
		handle string
	}
	var matches []candidate
	for _, c := range competitors {
		if c.SocialHandle == nil {
			continue
		}
		handle := normalizeHandle(*c.SocialHandle)
		if handle != "" && strings.Contains(name, handle) {
			matches = append(matches, candidate{id: c.ID, handle: handle})
		}
	}
	if len(matches) == 0 {
		return uuid.Nil, false
	}

	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].handle) != len(matches[j].handle) {
			return len(matches[i].handle) > len(matches[j].handle)
		}
		return matches[i].handle < matches[j].handle
	})
	return matches[0].id, true
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// SocialAdapter persists posts for social_brand and social_competitor jobs.
type SocialAdapter struct {
	store       PostStore
	competitors CompetitorLister
	log         *zap.Logger
}

// NewSocialAdapter builds a social adapter.
func NewSocialAdapter(store PostStore, competitors CompetitorLister) *SocialAdapter {
	return &SocialAdapter{
		store:       store,
		competitors: competitors,
		log:         zap.L().With(zap.String("component", "normalize.social")),
	}
}

// Apply upserts each post, then its comments when the post upsert succeeded.
func (a *SocialAdapter) Apply(ctx context.Context, job *entity.ScrapeJob, items []json.RawMessage) (Result, error) {
	res := Result{Items: len(items)}
	log := a.log.With(zap.String("run_id", job.ExternalRunID), zap.String("job_type", string(job.JobType)))

	var (
		competitors []entity.Competitor
		fallback    *uuid.UUID
	)
	if job.JobType == entity.JobSocialCompetitor {
		list, err := a.competitors.ListCompetitors(ctx, job.BrandID)
		if err != nil {
			return res, eris.Wrap(err, "load competitors")
		}
		competitors = list
		if meta, err := job.DecodeMetadata(); err == nil {
			fallback = meta.CompetitorID
		} else {
			log.Warn("job metadata unreadable", zap.Error(err))
		}
	}

	for i, raw := range items {
		parsed, err := ParseSocialItem(raw)
		if err != nil {
			res.Skipped++
			log.Warn("skipping social item", zap.Int("index", i), zap.Error(err))
			continue
		}

		post := parsed.Post
		if job.JobType == entity.JobSocialBrand {
			brandID := job.BrandID
			post.BrandID = &brandID
		} else {
			id, ok := ResolveCompetitor(parsed.Username, competitors)
			switch {
			case ok:
				post.CompetitorID = &id
			case fallback != nil:
				id := *fallback
				post.CompetitorID = &id
			default:
				res.Skipped++
				log.Warn("social item matches no competitor", zap.String("post_id", post.PostID), zap.String("username", parsed.Username))
				continue
			}
		}

		postID, err := a.store.UpsertPost(ctx, &post)
		if err != nil {
			res.Failed++
			log.Warn("social post upsert failed", zap.String("post_id", post.PostID), zap.Error(err))
			continue
		}
		res.Persisted++

		for _, comment := range parsed.Comments {
			comment.PostID = postID
			if err := a.store.UpsertComment(ctx, &comment); err != nil {
				log.Warn("social comment upsert failed", zap.String("post_id", post.PostID), zap.String("comment_key", comment.CommentKey), zap.Error(err))
			}
		}
	}
	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
