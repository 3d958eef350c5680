package store

import (
	"context"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
)

// ReadOnlyStore rejects every write with [apperr.ErrReadOnly] while isReadOnly reports true.
// Reads pass through untouched.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore wraps store. isReadOnly is consulted on every write, so the mode can be
// toggled at runtime.
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return apperr.ErrReadOnly
	}
	return nil
}

// TouchAccessToken is skipped in read-only mode so that authenticated reads keep working.
func (r *ReadOnlyStore) TouchAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error {
	if r.isReadOnly() {
		return nil
	}
	return r.Store.TouchAccessToken(ctx, id, at)
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateAccessToken(ctx, token)
}

func (r *ReadOnlyStore) RevokeAccessToken(ctx context.Context, id models.AccessTokenID, at time.Time) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.RevokeAccessToken(ctx, id, at)
}

func (r *ReadOnlyStore) CreateSite(ctx context.Context, site *models.Site) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateSite(ctx, site)
}

func (r *ReadOnlyStore) UpdateSite(ctx context.Context, site *models.Site) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateSite(ctx, site)
}

func (r *ReadOnlyStore) DeleteSite(ctx context.Context, id models.SiteID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteSite(ctx, id)
}

func (r *ReadOnlyStore) CreatePage(ctx context.Context, page *models.Page) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreatePage(ctx, page)
}

func (r *ReadOnlyStore) UpdatePage(ctx context.Context, page *models.Page) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdatePage(ctx, page)
}

func (r *ReadOnlyStore) DeletePage(ctx context.Context, id models.PageID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeletePage(ctx, id)
}

func (r *ReadOnlyStore) CreateSection(ctx context.Context, section *models.Section) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateSection(ctx, section)
}

func (r *ReadOnlyStore) SaveSection(ctx context.Context, section *models.Section) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.SaveSection(ctx, section)
}

func (r *ReadOnlyStore) DeleteSection(ctx context.Context, id models.SectionID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteSection(ctx, id)
}

func (r *ReadOnlyStore) ReorderSections(ctx context.Context, pageID models.PageID, sectionIDs []models.SectionID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderSections(ctx, pageID, sectionIDs)
}

func (r *ReadOnlyStore) CreateItem(ctx context.Context, item *models.SectionItem) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateItem(ctx, item)
}

func (r *ReadOnlyStore) UpdateItem(ctx context.Context, item *models.SectionItem) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateItem(ctx, item)
}

func (r *ReadOnlyStore) DeleteItem(ctx context.Context, id models.SectionItemID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteItem(ctx, id)
}

func (r *ReadOnlyStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateProduct(ctx, product)
}

func (r *ReadOnlyStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateProduct(ctx, product)
}

func (r *ReadOnlyStore) DeleteProduct(ctx context.Context, id models.ProductID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteProduct(ctx, id)
}

func (r *ReadOnlyStore) CreateOrder(ctx context.Context, order *models.Order, checkout *models.Checkout) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateOrder(ctx, order, checkout)
}

func (r *ReadOnlyStore) CreateAudience(ctx context.Context, audience *models.Audience) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateAudience(ctx, audience)
}

func (r *ReadOnlyStore) UpdateAudience(ctx context.Context, audience *models.Audience) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateAudience(ctx, audience)
}

func (r *ReadOnlyStore) DeleteAudience(ctx context.Context, id models.AudienceID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteAudience(ctx, id)
}

func (r *ReadOnlyStore) CreateFolder(ctx context.Context, folder *models.Folder) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateFolder(ctx, folder)
}

func (r *ReadOnlyStore) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateFolder(ctx, folder)
}

func (r *ReadOnlyStore) DeleteFolder(ctx context.Context, id models.FolderID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteFolder(ctx, id)
}

func (r *ReadOnlyStore) AddFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.AddFolderMember(ctx, folderID, audienceID)
}

func (r *ReadOnlyStore) RemoveFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.RemoveFolderMember(ctx, folderID, audienceID)
}

func (r *ReadOnlyStore) CreateBookingService(ctx context.Context, service *models.BookingService) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateBookingService(ctx, service)
}

func (r *ReadOnlyStore) UpdateBookingService(ctx context.Context, service *models.BookingService) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateBookingService(ctx, service)
}

func (r *ReadOnlyStore) DeleteBookingService(ctx context.Context, id models.BookingServiceID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteBookingService(ctx, id)
}

func (r *ReadOnlyStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateBooking(ctx, booking)
}

func (r *ReadOnlyStore) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateBooking(ctx, booking)
}

func (r *ReadOnlyStore) UpsertPlan(ctx context.Context, plan *models.Plan) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpsertPlan(ctx, plan)
}

func (r *ReadOnlyStore) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateCheckout(ctx, checkout)
}

func (r *ReadOnlyStore) CompleteCheckout(ctx context.Context, reference string, tx *models.Transaction, at time.Time) (*models.Checkout, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.CompleteCheckout(ctx, reference, tx, at)
}

func (r *ReadOnlyStore) FailCheckout(ctx context.Context, reference string, tx *models.Transaction) (*models.Checkout, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.FailCheckout(ctx, reference, tx)
}
