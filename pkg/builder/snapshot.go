package builder

import (
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
)

// MergeSnapshot pins snapshot to the stored section before it is saved or scheduled.
//
// Placement and position come from existing. Omitted type, content, settings and items keep
// their stored values; an empty items list clears them. Items that are not children of
// existing are treated as new. An item ID listed twice is a validation error.
func MergeSnapshot(existing, snapshot *models.Section) error {
	snapshot.ID = existing.ID
	snapshot.UserID = existing.UserID
	snapshot.SiteID = existing.SiteID
	snapshot.PageID = existing.PageID
	snapshot.Position = existing.Position
	snapshot.CreatedAt = existing.CreatedAt
	if strings.TrimSpace(snapshot.Type) == "" {
		snapshot.Type = existing.Type
	}
	if snapshot.Content == nil {
		snapshot.Content = existing.Content
	}
	if snapshot.Settings == nil {
		snapshot.Settings = existing.Settings
	}
	if snapshot.Items == nil {
		snapshot.Items = existing.Items
		return nil
	}

	children := make(map[models.SectionItemID]bool, len(existing.Items))
	for _, item := range existing.Items {
		children[item.ID] = true
	}
	seen := make(map[models.SectionItemID]bool, len(snapshot.Items))
	items := make([]*models.SectionItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if item == nil {
			continue
		}
		if !children[item.ID] {
			item.ID = models.SectionItemID{}
		}
		if !item.ID.IsZero() {
			if seen[item.ID] {
				return apperr.Validation(map[string]string{"items": "item " + item.ID.String() + " is listed more than once"})
			}
			seen[item.ID] = true
		}
		if item.Content == nil {
			item.Content = models.JSONMap{}
		}
		if item.Extra == nil {
			item.Extra = models.JSONMap{}
		}
		items = append(items, item)
	}
	snapshot.Items = items
	return nil
}
