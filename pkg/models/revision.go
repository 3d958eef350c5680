package models

import (
	"time"

	"gorm.io/gorm"
)

// SectionRevision is a snapshot of a section written by every debounced save.
//
// Payload holds the section as it was persisted, items included, so a revision can be shown
// or restored without touching the live rows.
type SectionRevision struct {
	ID        RevisionID `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID     `gorm:"type:uuid;not null;index" json:"user_id"`
	SectionID SectionID  `gorm:"type:uuid;not null;index:idx_revision_section_created" json:"section_id"`
	Payload   JSONMap    `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time  `gorm:"index:idx_revision_section_created" json:"created_at"`
}

// TableName returns the table name for the revision model
func (SectionRevision) TableName() string {
	return "section_revisions"
}

// BeforeCreate hook to generate ID if not set
func (r *SectionRevision) BeforeCreate(tx *gorm.DB) error {
	if r.ID.IsZero() {
		r.ID = NewRevisionID()
	}
	return nil
}

// NewSectionRevision snapshots s, items included.
func NewSectionRevision(s *Section) *SectionRevision {
	items := make([]any, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, map[string]any{
			"id":       item.ID.String(),
			"position": item.Position,
			"content":  map[string]any(item.Content),
			"extra":    map[string]any(item.Extra),
		})
	}
	return &SectionRevision{
		UserID:    s.UserID,
		SectionID: s.ID,
		Payload: JSONMap{
			"type":     s.Type,
			"position": s.Position,
			"content":  map[string]any(s.Content),
			"settings": map[string]any(s.Settings),
			"items":    items,
		},
	}
}
