package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JSONMap holds the free-form builder configuration stored in the content, settings and
// extra columns. It is jsonb in PostgreSQL and a JSON text/blob in SQLite.
type JSONMap map[string]any

// Value implements the driver.Valuer interface for database storage
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database retrieval
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into JSONMap", value)
	}
	return json.Unmarshal(bytes, j)
}

// Merge returns a copy of j with the top-level keys of other laid over it.
func (j JSONMap) Merge(other JSONMap) JSONMap {
	out := make(JSONMap, len(j)+len(other))
	for k, v := range j {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// User is an account. Everything else in the system is owned by a user.
type User struct {
	ID            UserID         `gorm:"type:uuid;primary_key" json:"id"`
	Email         string         `gorm:"uniqueIndex;not null" json:"email"`
	Name          string         `gorm:"not null" json:"name"`
	PasswordHash  string         `gorm:"not null" json:"-"`
	IsAdmin       bool           `gorm:"not null;default:false" json:"is_admin"`
	PlanID        *PlanID        `gorm:"type:uuid" json:"plan_id,omitempty"`
	PlanExpiresAt *time.Time     `json:"plan_expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// AccessToken is the server-side record behind a bearer token. The token itself is a
// signed JWT whose jti is the record ID, so revoking the row revokes the token.
type AccessToken struct {
	ID         AccessTokenID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     UserID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string        `gorm:"not null" json:"name"`
	ExpiresAt  time.Time     `gorm:"not null" json:"expires_at"`
	LastUsedAt *time.Time    `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time    `json:"revoked_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (t *AccessToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewAccessTokenID()
	}
	return nil
}

// Active reports whether the token can still authenticate requests at now.
func (t *AccessToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// Site is a link-in-bio microsite. Theme holds the catalog theme ID and Settings starts
// out as that theme's default configuration.
type Site struct {
	ID        SiteID         `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`
	Theme     string         `gorm:"not null" json:"theme"`
	Settings  JSONMap        `gorm:"type:jsonb" json:"settings"`
	Published bool           `gorm:"not null;default:false" json:"published"`
	Pages     []*Page        `gorm:"-" json:"pages,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID.IsZero() {
		s.ID = NewSiteID()
	}
	return nil
}

// Page belongs to a site and holds ordered sections.
type Page struct {
	ID        PageID         `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID         `gorm:"type:uuid;not null;index" json:"user_id"`
	SiteID    SiteID         `gorm:"type:uuid;not null;index" json:"site_id"`
	Title     string         `gorm:"not null" json:"title"`
	Slug      string         `gorm:"not null" json:"slug"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Settings  JSONMap        `gorm:"type:jsonb" json:"settings"`
	Sections  []*Section     `gorm:"-" json:"sections,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (p *Page) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewPageID()
	}
	return nil
}

// Section is a content block on a page. Items are loaded and saved together with it.
type Section struct {
	ID        SectionID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID         `gorm:"type:uuid;not null;index" json:"user_id"`
	SiteID    SiteID         `gorm:"type:uuid;not null;index" json:"site_id"`
	PageID    PageID         `gorm:"type:uuid;not null;index" json:"page_id"`
	Type      string         `gorm:"not null" json:"type"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Content   JSONMap        `gorm:"type:jsonb" json:"content"`
	Settings  JSONMap        `gorm:"type:jsonb" json:"settings"`
	Items     []*SectionItem `gorm:"-" json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID.IsZero() {
		s.ID = NewSectionID()
	}
	return nil
}

// SectionItem is a child element of a section (a link, an image, a product card...).
type SectionItem struct {
	ID        SectionItemID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID        `gorm:"type:uuid;not null;index" json:"user_id"`
	SectionID SectionID     `gorm:"type:uuid;not null;index" json:"section_id"`
	Position  int           `gorm:"not null;default:0" json:"position"`
	Content   JSONMap       `gorm:"type:jsonb" json:"content"`
	Extra     JSONMap       `gorm:"type:jsonb" json:"extra"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (i *SectionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID.IsZero() {
		i.ID = NewSectionItemID()
	}
	return nil
}

// Product is something a site sells. Price is in minor units of Currency.
type Product struct {
	ID          ProductID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID      UserID         `gorm:"type:uuid;not null;index" json:"user_id"`
	SiteID      SiteID         `gorm:"type:uuid;not null;index" json:"site_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	Currency    string         `gorm:"not null;size:3" json:"currency"`
	Stock       *int           `json:"stock,omitempty"`
	Extra       JSONMap        `gorm:"type:jsonb" json:"extra"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewProductID()
	}
	return nil
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a purchase of a product by a site visitor. UserID is the site owner.
type Order struct {
	ID            OrderID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID        UserID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SiteID        SiteID      `gorm:"type:uuid;not null;index" json:"site_id"`
	ProductID     ProductID   `gorm:"type:uuid;not null" json:"product_id"`
	CustomerEmail string      `gorm:"not null" json:"customer_email"`
	CustomerName  string      `json:"customer_name"`
	Quantity      int         `gorm:"not null" json:"quantity"`
	Amount        int64       `gorm:"not null" json:"amount"`
	Currency      string      `gorm:"not null;size:3" json:"currency"`
	Status        OrderStatus `gorm:"not null" json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID.IsZero() {
		o.ID = NewOrderID()
	}
	if o.Status == "" {
		o.Status = OrderPending
	}
	return nil
}

// Audience is a CRM contact collected by a user.
type Audience struct {
	ID        AudienceID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID     `gorm:"type:uuid;not null;uniqueIndex:idx_audience_user_email" json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `gorm:"not null;uniqueIndex:idx_audience_user_email" json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Extra     JSONMap    `gorm:"type:jsonb" json:"extra"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (a *Audience) BeforeCreate(tx *gorm.DB) error {
	if a.ID.IsZero() {
		a.ID = NewAudienceID()
	}
	return nil
}

// Folder groups audience contacts.
type Folder struct {
	ID        FolderID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	if f.ID.IsZero() {
		f.ID = NewFolderID()
	}
	return nil
}

// FolderMember is a membership row joining a folder and a contact.
type FolderMember struct {
	FolderID   FolderID   `gorm:"type:uuid;primaryKey" json:"folder_id"`
	AudienceID AudienceID `gorm:"type:uuid;primaryKey" json:"audience_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// BookingService is a bookable offering, e.g. a 30 minute consultation.
type BookingService struct {
	ID              BookingServiceID `gorm:"type:uuid;primary_key" json:"id"`
	UserID          UserID           `gorm:"type:uuid;not null;index" json:"user_id"`
	SiteID          *SiteID          `gorm:"type:uuid" json:"site_id,omitempty"`
	Name            string           `gorm:"not null" json:"name"`
	DurationMinutes int              `gorm:"not null" json:"duration_minutes"`
	Price           int64            `gorm:"not null;default:0" json:"price"`
	Currency        string           `gorm:"size:3" json:"currency"`
	Settings        JSONMap          `gorm:"type:jsonb" json:"settings"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate ID if not set
func (b *BookingService) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewBookingServiceID()
	}
	return nil
}

// Duration is the length of one booking slot.
func (b *BookingService) Duration() time.Duration {
	return time.Duration(b.DurationMinutes) * time.Minute
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking reserves a slot of a booking service.
type Booking struct {
	ID            BookingID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID        UserID           `gorm:"type:uuid;not null;index" json:"user_id"`
	ServiceID     BookingServiceID `gorm:"type:uuid;not null;index" json:"service_id"`
	CustomerName  string           `gorm:"not null" json:"customer_name"`
	CustomerEmail string           `gorm:"not null" json:"customer_email"`
	StartsAt      time.Time        `gorm:"not null" json:"starts_at"`
	EndsAt        time.Time        `gorm:"not null" json:"ends_at"`
	Status        BookingStatus    `gorm:"not null" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewBookingID()
	}
	if b.Status == "" {
		b.Status = BookingConfirmed
	}
	return nil
}

// Plan is a subscription tier. Plans are seeded from the catalog.
type Plan struct {
	ID           PlanID    `gorm:"type:uuid;primary_key" json:"id"`
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`
	Name         string    `gorm:"not null" json:"name"`
	Price        int64     `gorm:"not null" json:"price"`
	Currency     string    `gorm:"not null;size:3" json:"currency"`
	IntervalDays int       `gorm:"not null" json:"interval_days"`
	Features     JSONMap   `gorm:"type:jsonb" json:"features"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate ID if not set
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewPlanID()
	}
	return nil
}

// CheckoutPurpose says what a checkout pays for.
type CheckoutPurpose string

const (
	PurposeOrder CheckoutPurpose = "order"
	PurposePlan  CheckoutPurpose = "plan"
)

// CheckoutStatus is the lifecycle state of a checkout.
type CheckoutStatus string

const (
	CheckoutPending CheckoutStatus = "pending"
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutFailed  CheckoutStatus = "failed"
)

// Checkout tracks a payment-gateway transaction to completion. UserID is the user who
// receives the money (orders) or the plan (plans).
type Checkout struct {
	ID        CheckoutID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Gateway   string          `gorm:"not null" json:"gateway"`
	Reference string          `gorm:"uniqueIndex;not null" json:"reference"`
	Purpose   CheckoutPurpose `gorm:"not null" json:"purpose"`
	OrderID   *OrderID        `gorm:"type:uuid" json:"order_id,omitempty"`
	PlanID    *PlanID         `gorm:"type:uuid" json:"plan_id,omitempty"`
	Amount    int64           `gorm:"not null" json:"amount"`
	Currency  string          `gorm:"not null;size:3" json:"currency"`
	Status    CheckoutStatus  `gorm:"not null" json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate hook to generate ID and reference if not set
func (c *Checkout) BeforeCreate(tx *gorm.DB) error {
	if c.ID.IsZero() {
		c.ID = NewCheckoutID()
	}
	if c.Reference == "" {
		c.Reference = "lf_" + c.ID.UUID().String()
	}
	if c.Status == "" {
		c.Status = CheckoutPending
	}
	return nil
}

// Transaction records a gateway callback that settled a checkout.
type Transaction struct {
	ID         TransactionID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     UserID         `gorm:"type:uuid;not null;index" json:"user_id"`
	CheckoutID CheckoutID     `gorm:"type:uuid;not null;index" json:"checkout_id"`
	Gateway    string         `gorm:"not null" json:"gateway"`
	ExternalID string         `json:"external_id"`
	Amount     int64          `gorm:"not null" json:"amount"`
	Currency   string         `gorm:"not null;size:3" json:"currency"`
	Status     CheckoutStatus `gorm:"not null" json:"status"`
	Payload    JSONMap        `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// BeforeCreate hook to generate ID if not set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewTransactionID()
	}
	return nil
}
