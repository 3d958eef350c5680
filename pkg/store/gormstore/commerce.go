package gormstore

import (
	"context"

	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
)

// Product operations
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *Store) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	return get[models.Product](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

func (s *Store) DeleteProduct(ctx context.Context, id models.ProductID) error {
	return s.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (s *Store) ListProducts(ctx context.Context, siteID models.SiteID) ([]*models.Product, error) {
	var products []*models.Product
	err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("created_at").Find(&products).Error
	return products, err
}

// Order operations
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, checkout *models.Checkout) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		checkout.Purpose = models.PurposeOrder
		checkout.OrderID = &order.ID
		checkout.UserID = order.UserID
		checkout.Amount = order.Amount
		checkout.Currency = order.Currency
		return translate(tx.Create(checkout).Error)
	})
}

func (s *Store) GetOrder(ctx context.Context, id models.OrderID) (*models.Order, error) {
	return get[models.Order](ctx, s.db, "id = ?", id)
}

func (s *Store) ListOrders(ctx context.Context, siteID models.SiteID) ([]*models.Order, error) {
	var orders []*models.Order
	err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}
