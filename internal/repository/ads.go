package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// AdsRepository persists competitor ads.
type AdsRepository interface {
	Upsert(ctx context.Context, ad *entity.CompetitorAd) error
	ListActiveForBrand(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.CompetitorAd, error)
}

// PGXAdsRepository implements AdsRepository with pgx.
type PGXAdsRepository struct {
	pool database.Pool
}

// NewPGXAdsRepository instantiates an ads repository.
func NewPGXAdsRepository(pool database.Pool) *PGXAdsRepository {
	return &PGXAdsRepository{pool: pool}
}

// Upsert inserts or refreshes an ad by its derived ad id.
func (r *PGXAdsRepository) Upsert(ctx context.Context, ad *entity.CompetitorAd) error {
	if ad.AdID == "" {
		return eris.New("ad id must not be empty")
	}
	mediaType := ad.MediaType
	if mediaType == "" {
		mediaType = "unknown"
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO competitor_ads (ad_id, competitor_id, page_name, body, title, caption, media_type, media_url, started_at, is_active, platforms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (ad_id) DO UPDATE SET
            page_name = EXCLUDED.page_name,
            body = EXCLUDED.body,
            title = EXCLUDED.title,
            caption = EXCLUDED.caption,
            media_type = EXCLUDED.media_type,
            media_url = EXCLUDED.media_url,
            started_at = COALESCE(EXCLUDED.started_at, competitor_ads.started_at),
            is_active = EXCLUDED.is_active,
            platforms = EXCLUDED.platforms,
            updated_at = now()
    `,
		ad.AdID,
		ad.CompetitorID,
		stringOrNil(ad.PageName),
		stringOrNil(ad.Body),
		stringOrNil(ad.Title),
		stringOrNil(ad.Caption),
		mediaType,
		stringOrNil(ad.MediaURL),
		timeOrNil(ad.StartedAt),
		ad.IsActive,
		stringSliceOrEmpty(ad.Platforms),
	)
	if err != nil {
		return eris.Wrapf(err, "upsert competitor ad %s", ad.AdID)
	}
	return nil
}

// ListActiveForBrand returns active ads of the brand's competitors, newest first.
func (r *PGXAdsRepository) ListActiveForBrand(ctx context.Context, brandID uuid.UUID, limit int) ([]entity.CompetitorAd, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT a.id, a.ad_id, a.competitor_id, k.name, a.body, a.started_at, a.platforms
        FROM competitor_ads a
        JOIN competitors k ON k.id = a.competitor_id
        WHERE k.brand_id = $1 AND a.is_active
        ORDER BY a.started_at DESC NULLS LAST, a.ad_id
        LIMIT $2
    `, brandID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "list active competitor ads")
	}
	defer rows.Close()

	var ads []entity.CompetitorAd
	for rows.Next() {
		var (
			ad        entity.CompetitorAd
			body      sql.NullString
			startedAt sql.NullTime
		)
		if err := rows.Scan(&ad.ID, &ad.AdID, &ad.CompetitorID, &ad.CompetitorName, &body, &startedAt, &ad.Platforms); err != nil {
			return nil, eris.Wrap(err, "scan competitor ad")
		}
		ad.Body = nullStringToPtr(body)
		ad.StartedAt = nullTimeToPtr(startedAt)
		ad.IsActive = true
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate competitor ads")
	}
	return ads, nil
}
