package gormstore

import (
	"context"

	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
)

// Site operations
func (s *Store) CreateSite(ctx context.Context, site *models.Site) error {
	return translate(s.db.WithContext(ctx).Create(site).Error)
}

func (s *Store) GetSite(ctx context.Context, id models.SiteID) (*models.Site, error) {
	return get[models.Site](ctx, s.db, "id = ?", id)
}

func (s *Store) GetSiteBySlug(ctx context.Context, slug string) (*models.Site, error) {
	return get[models.Site](ctx, s.db, "slug = ?", slug)
}

func (s *Store) UpdateSite(ctx context.Context, site *models.Site) error {
	return translate(s.db.WithContext(ctx).Save(site).Error)
}

func (s *Store) DeleteSite(ctx context.Context, id models.SiteID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sectionIDs []models.SectionID
		if err := tx.Model(&models.Section{}).Where("site_id = ?", id).Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			if err := tx.Where("section_id IN ?", sectionIDs).Delete(&models.SectionItem{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("site_id = ?", id).Delete(&models.Section{}).Error; err != nil {
			return err
		}
		if err := tx.Where("site_id = ?", id).Delete(&models.Page{}).Error; err != nil {
			return err
		}
		// Soft-deleted rows keep their place in the unique slug index, so the slug is
		// released first.
		if err := tx.Model(&models.Site{}).Where("id = ?", id).Update("slug", releasedSlug(id)).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Site{}, "id = ?", id).Error
	})
}

// releasedSlug is what a deleted site's slug becomes. It can never pass slug validation.
func releasedSlug(id models.SiteID) string {
	return "~" + id.String()
}

func (s *Store) ListSites(ctx context.Context, userID models.UserID) ([]*models.Site, error) {
	var sites []*models.Site
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&sites).Error
	return sites, err
}

// Page operations
func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if page.Position == 0 {
			next, err := nextPosition(tx, &models.Page{}, "site_id = ?", page.SiteID)
			if err != nil {
				return err
			}
			page.Position = next
		}
		return translate(tx.Create(page).Error)
	})
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	return get[models.Page](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	return translate(s.db.WithContext(ctx).Save(page).Error)
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sectionIDs []models.SectionID
		if err := tx.Model(&models.Section{}).Where("page_id = ?", id).Pluck("id", &sectionIDs).Error; err != nil {
			return err
		}
		if len(sectionIDs) > 0 {
			if err := tx.Where("section_id IN ?", sectionIDs).Delete(&models.SectionItem{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("page_id = ?", id).Delete(&models.Section{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Page{}, "id = ?", id).Error
	})
}

func (s *Store) ListPages(ctx context.Context, siteID models.SiteID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("position, created_at").Find(&pages).Error
	return pages, err
}

// nextPosition returns one past the highest position among the rows matching the condition,
// or 0 when there are none.
func nextPosition(tx *gorm.DB, model any, query string, args ...any) (int, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	var max int
	err := tx.Model(model).Where(query, args...).Select("MAX(position)").Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
