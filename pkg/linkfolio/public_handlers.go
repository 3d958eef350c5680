package linkfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/mux"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
)

// maxOrderQuantity bounds the quantity of a single public order.
const maxOrderQuantity = 1000

// publishedSite resolves the slug path variable. Unpublished sites do not exist publicly.
func (a *App) publishedSite(r *http.Request) (*models.Site, error) {
	site, err := a.store.GetSiteBySlug(r.Context(), strings.ToLower(mux.Vars(r)["slug"]))
	if err != nil {
		return nil, err
	}
	if site == nil || !site.Published {
		return nil, apperr.NotFound("site")
	}
	return site, nil
}

// handlePublicSite returns the published site with its pages, sections and items, and counts
// a visit.
func (a *App) handlePublicSite(w http.ResponseWriter, r *http.Request) {
	site, err := a.publishedSite(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	site.Pages, err = a.store.ListPages(ctx, site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	for _, page := range site.Pages {
		page.Sections, err = a.store.ListSections(ctx, page.ID)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	if err := a.analytics.RecordVisit(ctx, site.ID, r.Referer(), a.now()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("site_id", site.ID.String()).Msg("visit not recorded")
	}

	respondJSON(w, http.StatusOK, site)
}

func (a *App) handlePublicProducts(w http.ResponseWriter, r *http.Request) {
	site, err := a.publishedSite(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	products, err := a.store.ListProducts(r.Context(), site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, a.productViews(r, products))
}

func (a *App) handleRecordClick(w http.ResponseWriter, r *http.Request) {
	site, err := a.publishedSite(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ClickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.ItemID.IsZero() {
		respondError(w, r, apperr.Validation(map[string]string{"item_id": "is required"}))
		return
	}

	ctx := r.Context()
	if err := a.checkItemOnSite(ctx, req.ItemID, site.ID); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.analytics.RecordClick(ctx, site.ID, req.ItemID, a.now()); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) checkItemOnSite(ctx context.Context, itemID models.SectionItemID, siteID models.SiteID) error {
	item, err := a.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("item")
	}
	section, err := a.store.GetSection(ctx, item.SectionID)
	if err != nil {
		return err
	}
	if section == nil || section.SiteID != siteID {
		return apperr.NotFound("item")
	}
	return nil
}

// handlePublicOrder creates a pending order and its pending checkout. The buyer pays through
// the gateway using the returned checkout reference.
func (a *App) handlePublicOrder(w http.ResponseWriter, r *http.Request) {
	site, err := a.publishedSite(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	email := strings.TrimSpace(req.Email)

	var c apperr.Check
	c.Require("product_id", !req.ProductID.IsZero(), "is required")
	c.Require("quantity", req.Quantity > 0 && req.Quantity <= maxOrderQuantity,
		fmt.Sprintf("must be between 1 and %d", maxOrderQuantity))
	c.Require("email", validEmail(email), "must be a valid email address")
	c.Require("gateway", a.payments.HasGateway(req.Gateway), "is not available")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	product, err := a.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if product == nil || product.SiteID != site.ID {
		respondError(w, r, apperr.NotFound("product"))
		return
	}
	if product.Stock != nil && *product.Stock < req.Quantity {
		respondError(w, r, apperr.Validation(map[string]string{"quantity": "exceeds the available stock"}))
		return
	}
	if product.Price > math.MaxInt64/int64(req.Quantity) {
		respondError(w, r, apperr.Validation(map[string]string{"quantity": "order total is too large"}))
		return
	}

	order := &models.Order{
		UserID:        site.UserID,
		SiteID:        site.ID,
		ProductID:     product.ID,
		CustomerEmail: email,
		CustomerName:  strings.TrimSpace(req.Name),
		Quantity:      req.Quantity,
		Amount:        product.Price * int64(req.Quantity),
		Currency:      product.Currency,
	}
	checkout := &models.Checkout{Gateway: req.Gateway}
	if err := a.store.CreateOrder(ctx, order, checkout); err != nil {
		respondError(w, r, err)
		return
	}
	a.collectContact(ctx, site.UserID, order.CustomerName, email, "order")

	respondJSON(w, http.StatusCreated, client.OrderResponse{
		Order:             order,
		Checkout:          checkout,
		CheckoutReference: checkout.Reference,
	})
}

// handlePublicBooking reserves a slot of a booking service. Overlapping a confirmed booking
// is rejected with 409 slot_taken.
func (a *App) handlePublicBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID[models.BookingServiceID](r, "id", "booking service")
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	service, err := a.store.GetBookingService(ctx, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if service == nil {
		respondError(w, r, apperr.NotFound("booking service"))
		return
	}

	var req client.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)

	var c apperr.Check
	c.Require("starts_at", !req.StartsAt.IsZero(), "is required")
	c.Require("starts_at", req.StartsAt.After(a.now()), "must be in the future")
	c.Require("name", name != "", "is required")
	c.Require("email", validEmail(email), "must be a valid email address")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	booking := &models.Booking{
		UserID:        service.UserID,
		ServiceID:     service.ID,
		CustomerName:  name,
		CustomerEmail: email,
		StartsAt:      req.StartsAt,
		EndsAt:        req.StartsAt.Add(service.Duration()),
		Status:        models.BookingConfirmed,
	}
	if err := a.store.CreateBooking(ctx, booking); err != nil {
		respondError(w, r, err)
		return
	}
	a.collectContact(ctx, service.UserID, name, email, "booking")

	respondJSON(w, http.StatusCreated, booking)
}

// collectContact adds a buyer or booker to the owner's audience. Existing contacts are left as
// they are.
func (a *App) collectContact(ctx context.Context, owner models.UserID, name, email, source string) {
	contact := &models.Audience{
		UserID: owner,
		Name:   name,
		Email:  strings.ToLower(email),
		Extra:  models.JSONMap{"source": source},
	}
	err := a.store.CreateAudience(ctx, contact)
	if err != nil && !errors.Is(err, apperr.ErrConflict) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("source", source).Msg("contact not collected")
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
