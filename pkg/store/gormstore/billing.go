package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
)

// Plan operations
func (s *Store) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	err := s.db.WithContext(ctx).Order("price, slug").Find(&plans).Error
	return plans, err
}

func (s *Store) GetPlan(ctx context.Context, id models.PlanID) (*models.Plan, error) {
	return get[models.Plan](ctx, s.db, "id = ?", id)
}

func (s *Store) GetPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	return get[models.Plan](ctx, s.db, "slug = ?", slug)
}

func (s *Store) UpsertPlan(ctx context.Context, plan *models.Plan) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Plan
		err := tx.Where("slug = ?", plan.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(plan).Error
		case err != nil:
			return err
		}
		plan.ID = existing.ID
		plan.CreatedAt = existing.CreatedAt
		return tx.Save(plan).Error
	})
}

// Checkout operations
func (s *Store) CreateCheckout(ctx context.Context, checkout *models.Checkout) error {
	return translate(s.db.WithContext(ctx).Create(checkout).Error)
}

func (s *Store) GetCheckoutByReference(ctx context.Context, reference string) (*models.Checkout, error) {
	return get[models.Checkout](ctx, s.db, "reference = ?", reference)
}

// CompleteCheckout flips the checkout to paid with a conditional update. Two concurrent
// callbacks for the same reference race on that update and only one of them affects a row;
// the other gets apperr.ErrAlreadyPaid.
func (s *Store) CompleteCheckout(ctx context.Context, reference string, txn *models.Transaction, at time.Time) (*models.Checkout, error) {
	var checkout models.Checkout
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findCheckout(tx, reference, &checkout); err != nil {
			return err
		}

		res := tx.Model(&models.Checkout{}).
			Where("id = ? AND status <> ?", checkout.ID, models.CheckoutPaid).
			Updates(map[string]any{"status": models.CheckoutPaid, "paid_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.CodeAlreadyPaid, "checkout "+reference+" is already paid")
		}
		checkout.Status = models.CheckoutPaid
		checkout.PaidAt = &at

		if err := recordTransaction(tx, &checkout, txn, models.CheckoutPaid); err != nil {
			return err
		}
		return fulfil(tx, &checkout, at)
	})
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (s *Store) FailCheckout(ctx context.Context, reference string, txn *models.Transaction) (*models.Checkout, error) {
	var checkout models.Checkout
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findCheckout(tx, reference, &checkout); err != nil {
			return err
		}
		if checkout.Status == models.CheckoutPaid {
			return apperr.New(apperr.CodeAlreadyPaid, "checkout "+reference+" is already paid")
		}
		if err := tx.Model(&models.Checkout{}).
			Where("id = ?", checkout.ID).
			Update("status", models.CheckoutFailed).Error; err != nil {
			return err
		}
		checkout.Status = models.CheckoutFailed
		return recordTransaction(tx, &checkout, txn, models.CheckoutFailed)
	})
	if err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID models.UserID) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&txns).Error
	return txns, err
}

func findCheckout(tx *gorm.DB, reference string, checkout *models.Checkout) error {
	err := tx.Where("reference = ?", reference).First(checkout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.CodeUnknownCheckout, "no checkout with reference "+reference)
	}
	return err
}

func recordTransaction(tx *gorm.DB, checkout *models.Checkout, txn *models.Transaction, status models.CheckoutStatus) error {
	if txn == nil {
		txn = &models.Transaction{}
	}
	txn.UserID = checkout.UserID
	txn.CheckoutID = checkout.ID
	txn.Gateway = checkout.Gateway
	txn.Status = status
	if txn.Currency == "" {
		txn.Currency = checkout.Currency
	}
	return tx.Create(txn).Error
}

// fulfil applies what the checkout paid for.
func fulfil(tx *gorm.DB, checkout *models.Checkout, at time.Time) error {
	switch checkout.Purpose {
	case models.PurposeOrder:
		if checkout.OrderID == nil {
			return errors.New("order checkout without order")
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", *checkout.OrderID).
			Update("status", models.OrderPaid).Error

	case models.PurposePlan:
		if checkout.PlanID == nil {
			return errors.New("plan checkout without plan")
		}
		var plan models.Plan
		if err := tx.First(&plan, "id = ?", *checkout.PlanID).Error; err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, "id = ?", checkout.UserID).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"plan_id":         plan.ID,
				"plan_expires_at": planExpiry(user.PlanExpiresAt, plan.IntervalDays, at),
			}).Error

	default:
		return errors.New("unknown checkout purpose " + string(checkout.Purpose))
	}
}

// planExpiry extends a running subscription, or starts a new period at paidAt.
func planExpiry(current *time.Time, intervalDays int, paidAt time.Time) time.Time {
	start := paidAt
	if current != nil && current.After(paidAt) {
		start = *current
	}
	return start.AddDate(0, 0, intervalDays)
}
