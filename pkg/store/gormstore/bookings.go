package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Booking service operations
func (s *Store) CreateBookingService(ctx context.Context, service *models.BookingService) error {
	return s.db.WithContext(ctx).Create(service).Error
}

func (s *Store) GetBookingService(ctx context.Context, id models.BookingServiceID) (*models.BookingService, error) {
	return get[models.BookingService](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateBookingService(ctx context.Context, service *models.BookingService) error {
	return s.db.WithContext(ctx).Save(service).Error
}

func (s *Store) DeleteBookingService(ctx context.Context, id models.BookingServiceID) error {
	return s.db.WithContext(ctx).Delete(&models.BookingService{}, "id = ?", id).Error
}

func (s *Store) ListBookingServices(ctx context.Context, userID models.UserID) ([]*models.BookingService, error) {
	var services []*models.BookingService
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&services).Error
	return services, err
}

// Booking operations

// CreateBooking checks for overlaps and inserts inside one transaction. The service row is
// locked first so that concurrent bookings of one service are serialised on PostgreSQL;
// SQLite has a single writer already. Times are stored in UTC at second precision so that
// they compare correctly as SQLite text.
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.StartsAt = normalizeTime(booking.StartsAt)
	booking.EndsAt = normalizeTime(booking.EndsAt)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service models.BookingService
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&service, "id = ?", booking.ServiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("booking service")
		}
		if err != nil {
			return err
		}

		var overlapping int64
		err = tx.Model(&models.Booking{}).
			Where("service_id = ? AND status = ? AND starts_at < ? AND ends_at > ?",
				booking.ServiceID, models.BookingConfirmed, booking.EndsAt, booking.StartsAt).
			Count(&overlapping).Error
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return apperr.New(apperr.CodeSlotTaken, "the requested slot overlaps an existing booking")
		}
		return tx.Create(booking).Error
	})
}

func (s *Store) GetBooking(ctx context.Context, id models.BookingID) (*models.Booking, error) {
	return get[models.Booking](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	booking.StartsAt = normalizeTime(booking.StartsAt)
	booking.EndsAt = normalizeTime(booking.EndsAt)
	return s.db.WithContext(ctx).Save(booking).Error
}

func (s *Store) ListBookings(ctx context.Context, serviceID models.BookingServiceID) ([]*models.Booking, error) {
	var bookings []*models.Booking
	err := s.db.WithContext(ctx).Where("service_id = ?", serviceID).Order("starts_at").Find(&bookings).Error
	return bookings, err
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
