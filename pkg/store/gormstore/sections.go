package gormstore

import (
	"context"
	"errors"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
)

// Section operations
func (s *Store) CreateSection(ctx context.Context, section *models.Section) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if section.Position == 0 {
			next, err := nextPosition(tx, &models.Section{}, "page_id = ?", section.PageID)
			if err != nil {
				return err
			}
			section.Position = next
		}
		if err := tx.Create(section).Error; err != nil {
			return err
		}
		return createItems(tx, section)
	})
}

func (s *Store) GetSection(ctx context.Context, id models.SectionID) (*models.Section, error) {
	section, err := get[models.Section](ctx, s.db, "id = ?", id)
	if err != nil || section == nil {
		return section, err
	}
	if err := loadItems(s.db.WithContext(ctx), []*models.Section{section}); err != nil {
		return nil, err
	}
	return section, nil
}

// SaveSection persists a whole-section snapshot. Ownership and placement (user, site, page)
// are taken from the stored row so that a snapshot cannot move a section.
func (s *Store) SaveSection(ctx context.Context, section *models.Section) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Section
		if err := tx.First(&existing, "id = ?", section.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("section")
			}
			return err
		}
		section.UserID = existing.UserID
		section.SiteID = existing.SiteID
		section.PageID = existing.PageID
		section.CreatedAt = existing.CreatedAt

		if err := tx.Save(section).Error; err != nil {
			return err
		}
		if err := tx.Where("section_id = ?", section.ID).Delete(&models.SectionItem{}).Error; err != nil {
			return err
		}
		if err := createItems(tx, section); err != nil {
			return err
		}
		return tx.Create(models.NewSectionRevision(section)).Error
	})
}

func (s *Store) DeleteSection(ctx context.Context, id models.SectionID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ?", id).Delete(&models.SectionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Section{}, "id = ?", id).Error
	})
}

func (s *Store) ListSections(ctx context.Context, pageID models.PageID) ([]*models.Section, error) {
	var sections []*models.Section
	db := s.db.WithContext(ctx)
	if err := db.Where("page_id = ?", pageID).Order("position, created_at").Find(&sections).Error; err != nil {
		return nil, err
	}
	if err := loadItems(db, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// ReorderSections puts the listed sections first, in the given order, and renumbers the
// page's other sections after them in their current order. Every listed ID must belong to
// the page and appear once.
func (s *Store) ReorderSections(ctx context.Context, pageID models.PageID, sectionIDs []models.SectionID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.SectionID
		if err := tx.Model(&models.Section{}).
			Where("page_id = ?", pageID).
			Order("position, created_at").
			Pluck("id", &current).Error; err != nil {
			return err
		}

		onPage := make(map[models.SectionID]bool, len(current))
		for _, id := range current {
			onPage[id] = true
		}
		listed := make(map[models.SectionID]bool, len(sectionIDs))
		for _, id := range sectionIDs {
			if !onPage[id] {
				return apperr.Validation(map[string]string{"ids": "must list sections of this page only"})
			}
			if listed[id] {
				return apperr.Validation(map[string]string{"ids": "must not repeat a section"})
			}
			listed[id] = true
		}

		order := append([]models.SectionID(nil), sectionIDs...)
		for _, id := range current {
			if !listed[id] {
				order = append(order, id)
			}
		}
		for i, id := range order {
			if err := tx.Model(&models.Section{}).Where("id = ?", id).Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListRevisions(ctx context.Context, sectionID models.SectionID, limit int) ([]*models.SectionRevision, error) {
	var revisions []*models.SectionRevision
	q := s.db.WithContext(ctx).Where("section_id = ?", sectionID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&revisions).Error
	return revisions, err
}

// Item operations
func (s *Store) CreateItem(ctx context.Context, item *models.SectionItem) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if item.Position == 0 {
			next, err := nextPosition(tx, &models.SectionItem{}, "section_id = ?", item.SectionID)
			if err != nil {
				return err
			}
			item.Position = next
		}
		return translate(tx.Create(item).Error)
	})
}

func (s *Store) GetItem(ctx context.Context, id models.SectionItemID) (*models.SectionItem, error) {
	return get[models.SectionItem](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateItem(ctx context.Context, item *models.SectionItem) error {
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeleteItem(ctx context.Context, id models.SectionItemID) error {
	return s.db.WithContext(ctx).Delete(&models.SectionItem{}, "id = ?", id).Error
}

// createItems inserts section.Items in slice order, numbering positions from zero.
func createItems(tx *gorm.DB, section *models.Section) error {
	if len(section.Items) == 0 {
		return nil
	}
	for i, item := range section.Items {
		item.SectionID = section.ID
		item.UserID = section.UserID
		item.Position = i
	}
	return translate(tx.Create(section.Items).Error)
}

// loadItems fills Items of every section with one query.
func loadItems(db *gorm.DB, sections []*models.Section) error {
	if len(sections) == 0 {
		return nil
	}
	ids := make([]models.SectionID, len(sections))
	byID := make(map[models.SectionID]*models.Section, len(sections))
	for i, section := range sections {
		ids[i] = section.ID
		byID[section.ID] = section
		section.Items = []*models.SectionItem{}
	}

	var items []*models.SectionItem
	if err := db.Where("section_id IN ?", ids).Order("position, created_at").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		if section, ok := byID[item.SectionID]; ok {
			section.Items = append(section.Items, item)
		}
	}
	return nil
}
