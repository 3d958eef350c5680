package linkfolio

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/money"
)

// maxBookingMinutes is the longest bookable slot, one day.
const maxBookingMinutes = 24 * 60

func (a *App) applyBookingService(ctx context.Context, svc *models.BookingService, req client.BookingServiceRequest) error {
	name := strings.TrimSpace(req.Name)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))

	var c apperr.Check
	c.Require("name", name != "", "is required")
	c.Require("duration_minutes", req.DurationMinutes > 0 && req.DurationMinutes <= maxBookingMinutes, "must be between 1 and 1440")
	c.Require("price", req.Price >= 0, "must not be negative")
	if req.Price > 0 || currency != "" {
		c.Require("currency", money.ValidCurrency(currency), "must be an ISO 4217 code")
	}
	if err := c.Err(); err != nil {
		return err
	}

	if req.SiteID != nil && !req.SiteID.IsZero() {
		site, err := a.store.GetSite(ctx, *req.SiteID)
		if err != nil {
			return err
		}
		if site == nil || site.UserID != svc.UserID {
			return apperr.Validation(map[string]string{"site_id": "unknown site"})
		}
		svc.SiteID = &site.ID
	} else {
		svc.SiteID = nil
	}

	svc.Name = name
	svc.DurationMinutes = req.DurationMinutes
	svc.Price = req.Price
	svc.Currency = currency
	svc.Settings = orEmpty(req.Settings)
	return nil
}

func (a *App) handleListBookingServices(w http.ResponseWriter, r *http.Request) {
	services, err := a.store.ListBookingServices(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, services)
}

func (a *App) handleCreateBookingService(w http.ResponseWriter, r *http.Request) {
	var req client.BookingServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	svc := &models.BookingService{UserID: auth.UserFromContext(ctx).ID}
	if err := a.applyBookingService(ctx, svc, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.CreateBookingService(ctx, svc); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, svc)
}

func (a *App) handleGetBookingService(w http.ResponseWriter, r *http.Request) {
	svc, err := loadOwned(r, "id", "booking service", a.store.GetBookingService)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

func (a *App) handleUpdateBookingService(w http.ResponseWriter, r *http.Request) {
	svc, err := loadOwned(r, "id", "booking service", a.store.GetBookingService)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.BookingServiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.applyBookingService(ctx, svc, req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.UpdateBookingService(ctx, svc); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, svc)
}

func (a *App) handleDeleteBookingService(w http.ResponseWriter, r *http.Request) {
	svc, err := loadOwned(r, "id", "booking service", a.store.GetBookingService)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeleteBookingService(r.Context(), svc.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListBookings(w http.ResponseWriter, r *http.Request) {
	svc, err := loadOwned(r, "id", "booking service", a.store.GetBookingService)
	if err != nil {
		respondError(w, r, err)
		return
	}

	bookings, err := a.store.ListBookings(r.Context(), svc.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, bookings)
}

// handleCancelBooking frees the slot. Cancelling twice is a no-op.
func (a *App) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := loadOwned(r, "id", "booking", a.store.GetBooking)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if booking.Status != models.BookingCancelled {
		booking.Status = models.BookingCancelled
		if err := a.store.UpdateBooking(r.Context(), booking); err != nil {
			respondError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, booking)
}
