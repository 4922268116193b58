package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/octobees/brandintel/internal/database"
	"github.com/octobees/brandintel/internal/entity"
)

// ErrBrandNotFound is returned when a brand id does not resolve.
var ErrBrandNotFound = errors.New("brand not found")

// BrandsRepository reads brands, competitors and owner preferences. Those rows
// are written by the dashboard, so this repository is read-only.
type BrandsRepository interface {
	ListTracked(ctx context.Context, brandID *uuid.UUID) ([]entity.Brand, error)
	Get(ctx context.Context, brandID uuid.UUID) (*entity.Brand, error)
	ListReportable(ctx context.Context) ([]uuid.UUID, error)
	ListCompetitors(ctx context.Context, brandID uuid.UUID) ([]entity.Competitor, error)
}

// PGXBrandsRepository implements BrandsRepository with pgx.
type PGXBrandsRepository struct {
	pool database.Pool
}

// NewPGXBrandsRepository instantiates a brands repository.
func NewPGXBrandsRepository(pool database.Pool) *PGXBrandsRepository {
	return &PGXBrandsRepository{pool: pool}
}

// ListTracked returns every brand (or only brandID when set) with its competitors attached.
func (r *PGXBrandsRepository) ListTracked(ctx context.Context, brandID *uuid.UUID) ([]entity.Brand, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, user_id, name, social_handle, marketplace_product_urls, created_at
        FROM brands
        WHERE $1::uuid IS NULL OR id = $1
        ORDER BY created_at
    `, uuidOrNil(brandID))
	if err != nil {
		return nil, eris.Wrap(err, "list tracked brands")
	}
	defer rows.Close()

	var brands []entity.Brand
	for rows.Next() {
		var (
			brand  entity.Brand
			handle sql.NullString
		)
		if err := rows.Scan(&brand.ID, &brand.UserID, &brand.Name, &handle, &brand.MarketplaceProductURLs, &brand.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "scan brand row")
		}
		brand.SocialHandle = nullStringToPtr(handle)
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate brands")
	}
	rows.Close()

	for i := range brands {
		competitors, err := r.ListCompetitors(ctx, brands[i].ID)
		if err != nil {
			return nil, err
		}
		brands[i].Competitors = competitors
	}
	return brands, nil
}

// Get loads one brand with its competitors.
func (r *PGXBrandsRepository) Get(ctx context.Context, brandID uuid.UUID) (*entity.Brand, error) {
	brands, err := r.ListTracked(ctx, &brandID)
	if err != nil {
		return nil, err
	}
	if len(brands) == 0 {
		return nil, ErrBrandNotFound
	}
	return &brands[0], nil
}

// ListReportable returns brands whose owner finished onboarding.
func (r *PGXBrandsRepository) ListReportable(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT b.id
        FROM brands b
        JOIN profiles p ON p.id = b.user_id
        WHERE p.onboarding_completed
        ORDER BY b.created_at
    `)
	if err != nil {
		return nil, eris.Wrap(err, "list reportable brands")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "scan reportable brand")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate reportable brands")
	}
	return ids, nil
}

// ListCompetitors returns the competitors tracked for a brand.
func (r *PGXBrandsRepository) ListCompetitors(ctx context.Context, brandID uuid.UUID) ([]entity.Competitor, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, brand_id, name, social_handle
        FROM competitors
        WHERE brand_id = $1
        ORDER BY created_at, id
    `, brandID)
	if err != nil {
		return nil, eris.Wrap(err, "list competitors")
	}
	defer rows.Close()

	var competitors []entity.Competitor
	for rows.Next() {
		var (
			c      entity.Competitor
			handle sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.BrandID, &c.Name, &handle); err != nil {
			return nil, eris.Wrap(err, "scan competitor row")
		}
		c.SocialHandle = nullStringToPtr(handle)
		competitors = append(competitors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "iterate competitors")
	}
	return competitors, nil
}
