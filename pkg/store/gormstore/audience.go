package gormstore

import (
	"context"

	"github.com/linkfolio/linkfolio/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Audience operations
func (s *Store) CreateAudience(ctx context.Context, audience *models.Audience) error {
	audience.Email = normalizeEmail(audience.Email)
	return translate(s.db.WithContext(ctx).Create(audience).Error)
}

func (s *Store) GetAudience(ctx context.Context, id models.AudienceID) (*models.Audience, error) {
	return get[models.Audience](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateAudience(ctx context.Context, audience *models.Audience) error {
	audience.Email = normalizeEmail(audience.Email)
	return translate(s.db.WithContext(ctx).Save(audience).Error)
}

func (s *Store) DeleteAudience(ctx context.Context, id models.AudienceID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("audience_id = ?", id).Delete(&models.FolderMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Audience{}, "id = ?", id).Error
	})
}

func (s *Store) ListAudience(ctx context.Context, userID models.UserID) ([]*models.Audience, error) {
	var audience []*models.Audience
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&audience).Error
	return audience, err
}

// Folder operations
func (s *Store) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Create(folder).Error
}

func (s *Store) GetFolder(ctx context.Context, id models.FolderID) (*models.Folder, error) {
	return get[models.Folder](ctx, s.db, "id = ?", id)
}

func (s *Store) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	return s.db.WithContext(ctx).Save(folder).Error
}

// DeleteFolder removes the folder together with its membership rows. The contacts stay.
func (s *Store) DeleteFolder(ctx context.Context, id models.FolderID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("folder_id = ?", id).Delete(&models.FolderMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Folder{}, "id = ?", id).Error
	})
}

func (s *Store) ListFolders(ctx context.Context, userID models.UserID) ([]*models.Folder, error) {
	var folders []*models.Folder
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name").Find(&folders).Error
	return folders, err
}

func (s *Store) AddFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	member := &models.FolderMember{FolderID: folderID, AudienceID: audienceID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
}

func (s *Store) RemoveFolderMember(ctx context.Context, folderID models.FolderID, audienceID models.AudienceID) error {
	return s.db.WithContext(ctx).
		Where("folder_id = ? AND audience_id = ?", folderID, audienceID).
		Delete(&models.FolderMember{}).Error
}

func (s *Store) ListFolderMembers(ctx context.Context, folderID models.FolderID) ([]*models.Audience, error) {
	var audience []*models.Audience
	err := s.db.WithContext(ctx).
		Joins("JOIN folder_members ON folder_members.audience_id = audiences.id").
		Where("folder_members.folder_id = ?", folderID).
		Order("audiences.created_at").
		Find(&audience).Error
	return audience, err
}

func (s *Store) CountFolderMembers(ctx context.Context, folderID models.FolderID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FolderMember{}).Where("folder_id = ?", folderID).Count(&count).Error
	return count, err
}
