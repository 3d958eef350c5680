// Package store defines the persistence boundary of linkfolio.
//
// [Store] is implemented by [github.com/linkfolio/linkfolio/pkg/store/gormstore] on top of
// PostgreSQL or SQLite, and wrapped by [ReadOnlyStore] to implement maintenance mode.
//
// # Conventions
//
// Get methods return (nil, nil) when no record exists. Callers translate that into a
// not-found response. Lookups are by primary key only; ownership checks against the
// authenticated user happen in the HTTP layer, which reports foreign records as missing.
//
// List methods return records ordered by position where the entity has one, otherwise by
// creation time. An empty result is an empty slice, never an error.
//
// Writes that must be atomic ([SectionStore.SaveSection], [SiteStore.DeleteSite],
// [AudienceStore.DeleteFolder], [BillingStore.CompleteCheckout]) run inside a single
// database transaction.
package store

import (
	"context"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// Store is everything the application persists.
type Store interface {
	UserStore
	SiteStore
	SectionStore
	CommerceStore
	AudienceStore
	BookingStore
	BillingStore

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	CreateAccessToken(ctx context.Context, token *models.AccessToken) error
	GetAccessToken(ctx context.Context, id models.AccessTokenID) (*models.AccessToken, error)
	// TouchAccessToken records that the token authenticated a request at the given time.
	TouchAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error
	RevokeAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error
}

type SiteStore interface {
	CreateSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id models.SiteID) (*models.Site, error)
	// GetSiteBySlug returns the site including unpublished ones.
	GetSiteBySlug(ctx context.Context, slug string) (*models.Site, error)
	UpdateSite(ctx context.Context, site *models.Site) error
	// DeleteSite removes the site with its pages, sections and items.
	DeleteSite(ctx context.Context, id models.SiteID) error
	ListSites(ctx context.Context, userID models.UserID) ([]*models.Site, error)

	CreatePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, id models.PageID) (*models.Page, error)
	UpdatePage(ctx context.Context, page *models.Page) error
	// DeletePage removes the page with its sections and items.
	DeletePage(ctx context.Context, id models.PageID) error
	ListPages(ctx context.Context, siteID models.SiteID) ([]*models.Page, error)
}

type SectionStore interface {
	// CreateSection appends a section to the end of its page when Position is zero.
	CreateSection(ctx context.Context, section *models.Section) error
	// GetSection returns the section with its items.
	GetSection(ctx context.Context, id models.SectionID) (*models.Section, error)
	// SaveSection overwrites the section row, replaces all of its items with
	// section.Items and records a revision, in one transaction.
	SaveSection(ctx context.Context, section *models.Section) error
	// DeleteSection removes the section and its items.
	DeleteSection(ctx context.Context, id models.SectionID) error
	// ListSections returns the page's sections with their items.
	ListSections(ctx context.Context, pageID models.PageID) ([]*models.Section, error)
	// ReorderSections moves the listed sections to the front in the given order; the page's
	// other sections follow in their current order. Every ID must belong to the page.
	ReorderSections(ctx context.Context, pageID models.PageID, sectionIDs []models.SectionID) error
	// ListRevisions returns the newest revisions first.
	ListRevisions(ctx context.Context, sectionID models.SectionID, limit int) ([]*models.SectionRevision, error)

	CreateItem(ctx context.Context, item *models.SectionItem) error
	GetItem(ctx context.Context, id models.SectionItemID) (*models.SectionItem, error)
	UpdateItem(ctx context.Context, item *models.SectionItem) error
	DeleteItem(ctx context.Context, id models.SectionItemID) error
}

type CommerceStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id models.ProductID) error
	ListProducts(ctx context.Context, siteID models.SiteID) ([]*models.Product, error)

	// CreateOrder stores the order and its pending checkout together.
	CreateOrder(ctx context.Context, order *models.Order, checkout *models.Checkout) error
	GetOrder(ctx context.Context, id models.OrderID) (*models.Order, error)
	ListOrders(ctx context.Context, siteID models.SiteID) ([]*models.Order, error)
}

type AudienceStore interface {
	CreateAudience(ctx context.Context, audience *models.Audience) error
	GetAudience(ctx context.Context, id models.AudienceID) (*models.Audience, error)
	UpdateAudience(ctx context.Context, audience *models.Audience) error
	// DeleteAudience removes the contact and its folder memberships.
	DeleteAudience(ctx context.Context, id models.AudienceID) error
	ListAudience(ctx context.Context, userID models.UserID) ([]*models.Audience, error)

	CreateFolder(ctx context.Context, folder *models.Folder) error
	GetFolder(ctx context.Context, id models.FolderID) (*models.Folder, error)
	UpdateFolder(ctx context.Context, folder *models.Folder) error
	// DeleteFolder removes the folder and all of its membership rows.
	DeleteFolder(ctx context.Context, id models.FolderID) error
	ListFolders(ctx context.Context, userID models.UserID) ([]*models.Folder, error)

	// AddFolderMember is idempotent.
	AddFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error
	RemoveFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error
	ListFolderMembers(ctx context.Context, folderID models.FolderID) ([]*models.Audience, error)
	CountFolderMembers(ctx context.Context, folderID models.FolderID) (int64, error)
}

type BookingStore interface {
	CreateBookingService(ctx context.Context, service *models.BookingService) error
	GetBookingService(ctx context.Context, id models.BookingServiceID) (*models.BookingService, error)
	UpdateBookingService(ctx context.Context, service *models.BookingService) error
	DeleteBookingService(ctx context.Context, id models.BookingServiceID) error
	ListBookingServices(ctx context.Context, userID models.UserID) ([]*models.BookingService, error)

	// CreateBooking fails with apperr.ErrSlotTaken when a confirmed booking of the same
	// service overlaps [StartsAt, EndsAt).
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id models.BookingID) (*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	ListBookings(ctx context.Context, serviceID models.BookingServiceID) ([]*models.Booking, error)
}

type BillingStore interface {
	ListPlans(ctx context.Context) ([]*models.Plan, error)
	GetPlan(ctx context.Context, id models.PlanID) (*models.Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*models.Plan, error)
	// UpsertPlan inserts or updates a plan by slug.
	UpsertPlan(ctx context.Context, plan *models.Plan) error

	CreateCheckout(ctx context.Context, checkout *models.Checkout) error
	GetCheckoutByReference(ctx context.Context, reference string) (*models.Checkout, error)
	// CompleteCheckout moves a pending checkout to paid, records tx and fulfils the
	// checkout (order paid, or plan assigned to the user), atomically. A checkout that is
	// not pending any more yields apperr.ErrAlreadyPaid.
	CompleteCheckout(ctx context.Context, reference string, tx *models.Transaction, at time.Time) (*models.Checkout, error)
	// FailCheckout moves a pending checkout to failed and records tx.
	FailCheckout(ctx context.Context, reference string, tx *models.Transaction) (*models.Checkout, error)
	ListTransactions(ctx context.Context, userID models.UserID) ([]*models.Transaction, error)
}
