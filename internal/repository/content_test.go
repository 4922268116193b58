package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/brandintel/internal/entity"
)

func strPtr(v string) *string { return &v }

func TestUpsertPostReturnsInternalID(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXSocialRepository(mock)

	competitorID := uuid.New()
	internalID := uuid.New()
	posted := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery(`INSERT INTO social_posts .+ ON CONFLICT \(post_id\) DO UPDATE`).
		WithArgs("abc", nil, competitorID, "https://instagram.com/p/abc", nil, 340, 12, "Image", posted).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(internalID))

	post := &entity.SocialPost{
		PostID:       "abc",
		CompetitorID: &competitorID,
		URL:          strPtr("https://instagram.com/p/abc"),
		Caption:      strPtr("  "),
		Likes:        340,
		Comments:     12,
		PostType:     strPtr("Image"),
		PostedAt:     &posted,
	}
	id, err := repo.UpsertPost(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, internalID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPostRejectsEmptyKey(t *testing.T) {
	repo := NewPGXSocialRepository(newMock(t))
	_, err := repo.UpsertPost(context.Background(), &entity.SocialPost{})
	assert.Error(t, err)
}

func TestUpsertCommentUsesCompositeKey(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXSocialRepository(mock)

	postID := uuid.New()
	mock.ExpectExec(`INSERT INTO social_comments .+ ON CONFLICT \(post_id, comment_key\) DO UPDATE`).
		WithArgs(postID, "c-1", "love it", "fan", nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertComment(context.Background(), &entity.SocialComment{
		PostID: postID, CommentKey: "c-1", Text: strPtr("love it"), Author: strPtr("fan"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnscoredComments(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXSocialRepository(mock)

	brandID := uuid.New()
	c1, c2 := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM social_comments c`).
		WithArgs(brandID, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "text"}).AddRow(c1, "great").AddRow(c2, "meh"))

	targets, err := repo.ListUnscoredComments(context.Background(), brandID, 100)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, entity.ScoreComment, targets[0].Kind)
	assert.Equal(t, "meh", targets[1].Text)
}

func TestCountPosts(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXSocialRepository(mock)

	brandID := uuid.New()
	mock.ExpectQuery(`SELECT`).WithArgs(brandID).
		WillReturnRows(pgxmock.NewRows([]string{"brand", "competitor"}).AddRow(4, 9))

	b, c, err := repo.CountPosts(context.Background(), brandID)
	require.NoError(t, err)
	assert.Equal(t, 4, b)
	assert.Equal(t, 9, c)
}

func TestUpsertReviewKeepsSentimentUntouched(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReviewsRepository(mock)

	brandID := uuid.New()
	rating := 4
	mock.ExpectExec(`INSERT INTO marketplace_reviews .+ ON CONFLICT \(review_id\) DO UPDATE`).
		WithArgs("R1", brandID, "https://www.amazon.in/dp/B000123ABCD", rating, "Nice", "Works well", nil, true, 3, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), &entity.MarketplaceReview{
		ReviewID:     "R1",
		BrandID:      brandID,
		ProductURL:   strPtr("https://www.amazon.in/dp/B000123ABCD"),
		Rating:       &rating,
		Title:        strPtr("Nice"),
		Text:         strPtr("Works well"),
		Verified:     true,
		HelpfulVotes: 3,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentReviews(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReviewsRepository(mock)

	brandID := uuid.New()
	mock.ExpectQuery(`FROM marketplace_reviews`).
		WithArgs(brandID, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "review_id", "brand_id", "rating", "title", "text", "sentiment_label", "review_date"}).
			AddRow(uuid.New(), "R1", brandID, int64(5), "Great", "Love it", "positive", time.Now()).
			AddRow(uuid.New(), "R2", brandID, nil, nil, "No stars", nil, nil))

	reviews, err := repo.ListRecent(context.Background(), brandID, 100)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.NotNil(t, reviews[0].Rating)
	assert.Equal(t, 5, *reviews[0].Rating)
	assert.Equal(t, entity.SentimentPositive, *reviews[0].SentimentLabel)
	assert.Nil(t, reviews[1].Rating)
	assert.Nil(t, reviews[1].SentimentLabel)
}

func TestUpsertAdDefaultsMediaType(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXAdsRepository(mock)

	competitorID := uuid.New()
	mock.ExpectExec(`INSERT INTO competitor_ads .+ ON CONFLICT \(ad_id\) DO UPDATE`).
		WithArgs("ad-1", competitorID, nil, "Buy now", nil, nil, "unknown", nil, nil, true, []string{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Upsert(context.Background(), &entity.CompetitorAd{
		AdID: "ad-1", CompetitorID: competitorID, Body: strPtr("Buy now"), IsActive: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportsCreateIsKeyedByGeneration(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReportsRepository(mock)

	gen := uuid.New()
	brandID := uuid.New()
	reportID := uuid.New()
	insights := json.RawMessage(`{"brandHealth":{"overallScore":72}}`)

	mock.ExpectQuery(`INSERT INTO reports .+ ON CONFLICT \(generation_id\)`).
		WithArgs(gen, brandID, "weekly", []byte(insights), "summary").
		WillReturnRows(pgxmock.NewRows([]string{"id", "insights", "summary", "sent_via_email", "sent_via_whatsapp", "created_at"}).
			AddRow(reportID, insights, "summary", false, false, time.Now()))

	report := &entity.Report{GenerationID: gen, BrandID: brandID, Insights: insights, Summary: "summary"}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.Equal(t, reportID, report.ID)
	assert.Equal(t, entity.ReportTypeWeekly, report.ReportType)
}

func TestReportsGetNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReportsRepository(mock)

	id := uuid.New()
	mock.ExpectQuery(`FROM reports`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), id)
	assert.True(t, errors.Is(err, ErrReportNotFound))
}

func TestReportsMarkDelivered(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReportsRepository(mock)

	id := uuid.New()
	mock.ExpectExec(`UPDATE reports SET sent_via_whatsapp = TRUE`).WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkDelivered(context.Background(), id, ChannelWhatsApp))
	assert.Error(t, repo.MarkDelivered(context.Background(), id, "sms"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportsGetRecipient(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXReportsRepository(mock)

	reportID := uuid.New()
	userID := uuid.New()
	mock.ExpectQuery(`FROM reports r`).WithArgs(reportID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "email_opted_in", "whatsapp_number", "whatsapp_opted_in"}).
			AddRow(userID, "Acme", "owner@acme.test", true, nil, true))

	recipient, err := repo.GetRecipient(context.Background(), reportID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", recipient.BrandName)
	assert.Equal(t, "owner@acme.test", *recipient.Email)
	assert.Nil(t, recipient.WhatsAppNumber)
}

func TestRunsOpenOrCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXRunsRepository(mock)

	brandID := uuid.New()
	runID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO pipeline_runs`).WithArgs(brandID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "brand_id", "status", "stages", "created_at", "updated_at", "resumed"}).
			AddRow(runID, brandID, "open", []byte(`{"sentiment":{"scored":3}}`), now, now, true))

	run, resumed, err := repo.OpenOrCreate(context.Background(), brandID)
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.True(t, run.Done("sentiment"))
	assert.False(t, run.Done("keywords"))
}

func TestRunsMarkStage(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXRunsRepository(mock)

	runID := uuid.New()
	mock.ExpectExec(`UPDATE pipeline_runs`).WithArgs(runID, "keywords", []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkStage(context.Background(), runID, "keywords", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsAbandon(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXRunsRepository(mock)

	runID := uuid.New()
	mock.ExpectExec(`UPDATE pipeline_runs SET status = 'abandoned'`).WithArgs(runID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Abandon(context.Background(), runID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTrackedAttachesCompetitors(t *testing.T) {
	mock := newMock(t)
	repo := NewPGXBrandsRepository(mock)

	brandID := uuid.New()
	compID := uuid.New()
	mock.ExpectQuery(`FROM brands`).WithArgs(nil).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "social_handle", "marketplace_product_urls", "created_at"}).
			AddRow(brandID, uuid.New(), "Acme", "acme", []string{"https://www.amazon.in/dp/B000123ABCD"}, time.Now()))
	mock.ExpectQuery(`FROM competitors`).WithArgs(brandID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "brand_id", "name", "social_handle"}).
			AddRow(compID, brandID, "Rival", nil))

	brands, err := repo.ListTracked(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, "acme", *brands[0].SocialHandle)
	require.Len(t, brands[0].Competitors, 1)
	assert.Nil(t, brands[0].Competitors[0].SocialHandle)
	assert.NoError(t, mock.ExpectationsWereMet())
}
