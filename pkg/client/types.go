package client

import (
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type HealthResponse struct {
	Status   string    `json:"status"`
	ReadOnly bool      `json:"read_only"`
	Time     time.Time `json:"time"`
}

type CreateSiteRequest struct {
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Theme    string         `json:"theme"`
	Settings models.JSONMap `json:"settings,omitempty"`
}

// UpdateSiteRequest changes the fields that are set. Settings keys are merged into the
// existing settings.
type UpdateSiteRequest struct {
	Name      *string        `json:"name,omitempty"`
	Slug      *string        `json:"slug,omitempty"`
	Theme     *string        `json:"theme,omitempty"`
	Settings  models.JSONMap `json:"settings,omitempty"`
	Published *bool          `json:"published,omitempty"`
}

type PageRequest struct {
	Title    string         `json:"title"`
	Slug     string         `json:"slug,omitempty"`
	Position *int           `json:"position,omitempty"`
	Settings models.JSONMap `json:"settings,omitempty"`
}

type ItemRequest struct {
	Position *int           `json:"position,omitempty"`
	Content  models.JSONMap `json:"content"`
	Extra    models.JSONMap `json:"extra,omitempty"`
}

type SectionRequest struct {
	Type     string         `json:"type"`
	Content  models.JSONMap `json:"content"`
	Settings models.JSONMap `json:"settings,omitempty"`
	Items    []ItemRequest  `json:"items,omitempty"`
}

type ReorderRequest struct {
	IDs []models.SectionID `json:"ids"`
}

// DraftResponse acknowledges a section edit queued for debounced saving.
type DraftResponse struct {
	Status    string           `json:"status"`
	SectionID models.SectionID `json:"section_id"`
	DelayMS   int64            `json:"delay_ms"`
}

type ProductRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Price       int64          `json:"price"`
	Currency    string         `json:"currency"`
	Stock       *int           `json:"stock,omitempty"`
	Extra       models.JSONMap `json:"extra,omitempty"`
}

// Product is a product with its price formatted for the requester's locale.
type Product struct {
	*models.Product
	PriceDisplay string `json:"price_display"`
}

type OrderRequest struct {
	ProductID models.ProductID `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Gateway   string           `json:"gateway"`
}

type OrderResponse struct {
	Order             *models.Order    `json:"order"`
	Checkout          *models.Checkout `json:"checkout"`
	CheckoutReference string           `json:"checkout_reference"`
}

type ClickRequest struct {
	ItemID models.SectionItemID `json:"item_id"`
}

type AudienceRequest struct {
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Phone string         `json:"phone,omitempty"`
	Extra models.JSONMap `json:"extra,omitempty"`
}

type FolderRequest struct {
	Name string `json:"name"`
}

type Folder struct {
	*models.Folder
	MemberCount int64 `json:"member_count"`
}

type BookingServiceRequest struct {
	SiteID          *models.SiteID `json:"site_id,omitempty"`
	Name            string         `json:"name"`
	DurationMinutes int            `json:"duration_minutes"`
	Price           int64          `json:"price"`
	Currency        string         `json:"currency,omitempty"`
	Settings        models.JSONMap `json:"settings,omitempty"`
}

type BookingRequest struct {
	StartsAt time.Time `json:"starts_at"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
}

type Plan struct {
	*models.Plan
	PriceDisplay string `json:"price_display"`
}

type CheckoutRequest struct {
	PlanID  models.PlanID `json:"plan_id"`
	Gateway string        `json:"gateway"`
}

type WebhookResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}

type Maintenance struct {
	ReadOnly bool `json:"read_only"`
}

type MediaObject struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type AnalyticsSummary struct {
	Visits   int64 `json:"visits"`
	Clicks   int64 `json:"clicks"`
	TopItems []struct {
		ItemID models.SectionItemID `json:"item_id"`
		Clicks int64                `json:"clicks"`
	} `json:"top_items"`
}
