package entity

import (
	"time"

	"github.com/google/uuid"
)

// Brand is a tracked brand owned by a dashboard user.
type Brand struct {
	ID                     uuid.UUID    `json:"id"`
	UserID                 uuid.UUID    `json:"user_id"`
	Name                   string       `json:"name"`
	SocialHandle           *string      `json:"social_handle,omitempty"`
	MarketplaceProductURLs []string     `json:"marketplace_product_urls"`
	Competitors            []Competitor `json:"competitors,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
}

// Competitor is a rival brand tracked on behalf of a Brand.
type Competitor struct {
	ID           uuid.UUID `json:"id"`
	BrandID      uuid.UUID `json:"brand_id"`
	Name         string    `json:"name"`
	SocialHandle *string   `json:"social_handle,omitempty"`
}

// Recipient carries the delivery preferences of a brand owner.
type Recipient struct {
	UserID          uuid.UUID `json:"user_id"`
	BrandName       string    `json:"brand_name"`
	Email           *string   `json:"email,omitempty"`
	EmailOptedIn    bool      `json:"email_opted_in"`
	WhatsAppNumber  *string   `json:"whatsapp_number,omitempty"`
	WhatsAppOptedIn bool      `json:"whatsapp_opted_in"`
}
