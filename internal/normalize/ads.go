package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/octobees/brandintel/internal/entity"
)

var (
	adID        = fieldPath{"adArchiveId", "adId", "id"}
	adPageName  = fieldPath{"pageName", "pageInfo.name", "advertiserName"}
	adBody      = fieldPath{"adCreativeBody", "body", "snapshot.body.text"}
	adTitle     = fieldPath{"adCreativeLinkTitle", "title", "snapshot.title"}
	adCaption   = fieldPath{"adCreativeLinkCaption", "caption", "snapshot.caption"}
	adMediaType = fieldPath{"mediaType", "snapshot.cards.0.mediaType"}
	adMediaURL  = fieldPath{"mediaUrl", "imageUrl", "snapshot.images.0", "snapshot.images.0.originalImageUrl", "snapshot.videos.0.videoUrl"}
	adStart     = fieldPath{"startDate", "startedRunning"}
	adPlatforms = fieldPath{"platforms", "publisherPlatforms", "publisherPlatform"}
)

var defaultPlatforms = []string{"facebook", "instagram"}

// ParseAdItem maps a vendor ad onto canonical fields. The second return is
// false when the ad id had to be synthesized.
func ParseAdItem(raw json.RawMessage, competitorID uuid.UUID, now time.Time) (entity.CompetitorAd, bool, error) {
	if !gjson.ValidBytes(raw) {
		return entity.CompetitorAd{}, false, eris.New("item is not valid JSON")
	}
	item := gjson.ParseBytes(raw)

	ad := entity.CompetitorAd{
		CompetitorID: competitorID,
		PageName:     adPageName.str(item),
		Body:         adBody.str(item),
		Title:        adTitle.str(item),
		Caption:      adCaption.str(item),
		MediaType:    "unknown",
		MediaURL:     mediaURL(item),
		IsActive:     isActive(item),
		Platforms:    adPlatforms.stringList(item),
	}
	if mt := adMediaType.str(item); mt != nil {
		ad.MediaType = *mt
	}
	if r, ok := adStart.result(item); ok {
		ad.StartedAt = ParseReviewDate(r)
	}
	if len(ad.Platforms) == 0 {
		ad.Platforms = append([]string(nil), defaultPlatforms...)
	}

	stable := true
	if id := adID.str(item); id != nil {
		ad.AdID = *id
	} else {
		// Not stable across deliveries: such ads are never deduplicated.
		ad.AdID = fmt.Sprintf("%s-%d-%s", competitorID, now.UnixMilli(), uuid.NewString()[:8])
		stable = false
	}
	return ad, stable, nil
}

// mediaURL skips gjson object results so snapshot.images.0 only counts when it is a plain URL.
func mediaURL(item gjson.Result) *string {
	for _, path := range adMediaURL {
		r := item.Get(path)
		if r.Type == gjson.String && r.Str != "" {
			v := r.Str
			return &v
		}
	}
	return nil
}

// isActive holds unless the vendor marks the ad inactive or reports an end date.
func isActive(item gjson.Result) bool {
	if r := item.Get("isActive"); r.Exists() && r.Type == gjson.False {
		return false
	}
	end := item.Get("endDate")
	return !end.Exists() || end.Type == gjson.Null || (end.Type == gjson.String && end.Str == "")
}

// AdAdapter persists competitor_ads jobs.
type AdAdapter struct {
	store AdStore
	now   func() time.Time
	log   *zap.Logger
}

// NewAdAdapter builds an ad adapter.
func NewAdAdapter(store AdStore) *AdAdapter {
	return &AdAdapter{store: store, now: time.Now, log: zap.L().With(zap.String("component", "normalize.ads"))}
}

// Apply upserts every ad under the competitor recorded in the job metadata.
// Without that id no ad can be attributed, so the whole batch is skipped.
func (a *AdAdapter) Apply(ctx context.Context, job *entity.ScrapeJob, items []json.RawMessage) (Result, error) {
	res := Result{Items: len(items)}
	log := a.log.With(zap.String("run_id", job.ExternalRunID))

	meta, err := job.DecodeMetadata()
	if err != nil || meta.CompetitorID == nil {
		res.Skipped = len(items)
		log.Error("ad job carries no competitor id", zap.Error(err))
		return res, nil
	}

	for i, raw := range items {
		ad, stable, err := ParseAdItem(raw, *meta.CompetitorID, a.now())
		if err != nil {
			res.Skipped++
			log.Warn("skipping ad item", zap.Int("index", i), zap.Error(err))
			continue
		}
		if !stable {
			log.Warn("ad has no vendor id, using synthetic key", zap.String("ad_id", ad.AdID))
		}

		if err := a.store.Upsert(ctx, &ad); err != nil {
			res.Failed++
			log.Warn("ad upsert failed", zap.String("ad_id", ad.AdID), zap.Error(err))
			continue
		}
		res.Persisted++
	}
	return res, nil
}
