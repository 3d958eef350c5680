package linkfolio

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/builder"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/rs/zerolog"
)

const (
	defaultRevisionLimit = 20
	maxRevisionLimit     = 100
)

func (a *App) handleListSections(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sections, err := a.store.ListSections(r.Context(), page.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sections)
}

func (a *App) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.SectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var c apperr.Check
	c.Require("type", strings.TrimSpace(req.Type) != "", "is required")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	section := &models.Section{
		UserID:   page.UserID,
		SiteID:   page.SiteID,
		PageID:   page.ID,
		Type:     strings.TrimSpace(req.Type),
		Content:  orEmpty(req.Content),
		Settings: orEmpty(req.Settings),
		Items:    make([]*models.SectionItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		section.Items = append(section.Items, &models.SectionItem{
			Content: orEmpty(item.Content),
			Extra:   orEmpty(item.Extra),
		})
	}

	ctx := r.Context()
	if err := a.store.CreateSection(ctx, section); err != nil {
		respondError(w, r, err)
		return
	}
	a.publish(ctx, events.TypeSectionSaved, section.SiteID, section.UserID, section)

	respondJSON(w, http.StatusCreated, section)
}

func (a *App) handleReorderSections(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	seen := make(map[models.SectionID]bool, len(req.IDs))
	unique := true
	for _, id := range req.IDs {
		if seen[id] {
			unique = false
		}
		seen[id] = true
	}
	var c apperr.Check
	c.Require("ids", len(req.IDs) > 0, "is required")
	c.Require("ids", unique, "must not repeat a section")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.store.ReorderSections(ctx, page.ID, req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	a.publish(ctx, events.TypeSectionsOrder, page.SiteID, page.UserID, map[string]any{
		"page_id": page.ID,
		"ids":     req.IDs,
	})

	sections, err := a.store.ListSections(ctx, page.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sections)
}

func (a *App) handleGetSection(w http.ResponseWriter, r *http.Request) {
	section, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, section)
}

// handleSaveSection writes a whole-section snapshot immediately.
func (a *App) handleSaveSection(w http.ResponseWriter, r *http.Request) {
	existing, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var snapshot models.Section
	if err := decodeJSON(w, r, &snapshot); err != nil {
		respondError(w, r, err)
		return
	}
	if err := builder.MergeSnapshot(existing, &snapshot); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.store.SaveSection(ctx, &snapshot); err != nil {
		respondError(w, r, err)
		return
	}
	a.publish(ctx, events.TypeSectionSaved, snapshot.SiteID, snapshot.UserID, &snapshot)

	respondJSON(w, http.StatusOK, &snapshot)
}

// handleSectionDraft queues a whole-section snapshot for the autosaver and answers 202 right
// away. Several drafts within the debounce delay produce a single write of the last one.
func (a *App) handleSectionDraft(w http.ResponseWriter, r *http.Request) {
	existing, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var snapshot models.Section
	if err := decodeJSON(w, r, &snapshot); err != nil {
		respondError(w, r, err)
		return
	}
	if a.IsReadOnly() {
		respondError(w, r, apperr.ErrReadOnly)
		return
	}
	if err := builder.MergeSnapshot(existing, &snapshot); err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.autosaver.Schedule(&snapshot); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, client.DraftResponse{
		Status:    "queued",
		SectionID: snapshot.ID,
		DelayMS:   a.autosaver.Delay().Milliseconds(),
	})
}

func (a *App) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	section, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.store.DeleteSection(ctx, section.ID); err != nil {
		respondError(w, r, err)
		return
	}
	a.publish(ctx, events.TypeSectionDeleted, section.SiteID, section.UserID, map[string]any{
		"id":      section.ID,
		"page_id": section.PageID,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	section, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	limit := min(max(queryInt(r, "limit", defaultRevisionLimit), 1), maxRevisionLimit)
	revisions, err := a.store.ListRevisions(r.Context(), section.ID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, revisions)
}

func (a *App) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	section, err := loadOwned(r, "id", "section", a.store.GetSection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Position != nil && *req.Position < 0 {
		respondError(w, r, apperr.Validation(map[string]string{"position": "must not be negative"}))
		return
	}

	item := &models.SectionItem{
		UserID:    section.UserID,
		SectionID: section.ID,
		Content:   orEmpty(req.Content),
		Extra:     orEmpty(req.Extra),
	}
	if req.Position != nil {
		item.Position = *req.Position
	}

	ctx := r.Context()
	if err := a.store.CreateItem(ctx, item); err != nil {
		respondError(w, r, err)
		return
	}
	a.announceSection(ctx, section.ID)

	respondJSON(w, http.StatusCreated, item)
}

func (a *App) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	item, err := loadOwned(r, "id", "item", a.store.GetItem)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Position != nil {
		if *req.Position < 0 {
			respondError(w, r, apperr.Validation(map[string]string{"position": "must not be negative"}))
			return
		}
		item.Position = *req.Position
	}
	if req.Content != nil {
		item.Content = req.Content
	}
	if req.Extra != nil {
		item.Extra = req.Extra
	}

	ctx := r.Context()
	if err := a.store.UpdateItem(ctx, item); err != nil {
		respondError(w, r, err)
		return
	}
	a.announceSection(ctx, item.SectionID)

	respondJSON(w, http.StatusOK, item)
}

func (a *App) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := loadOwned(r, "id", "item", a.store.GetItem)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := a.store.DeleteItem(ctx, item.ID); err != nil {
		respondError(w, r, err)
		return
	}
	a.announceSection(ctx, item.SectionID)

	w.WriteHeader(http.StatusNoContent)
}

// announceSection publishes the current state of a section after one of its items changed.
func (a *App) announceSection(ctx context.Context, id models.SectionID) {
	section, err := a.store.GetSection(ctx, id)
	if err != nil || section == nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("section_id", id.String()).Msg("section not announced")
		return
	}
	a.publish(ctx, events.TypeSectionSaved, section.SiteID, section.UserID, section)
}

// handleBuilderSocket authenticates with the token query parameter (or the Authorization
// header) and attaches the connection to the site's builder room.
func (a *App) handleBuilderSocket(w http.ResponseWriter, r *http.Request) {
	bearer := r.URL.Query().Get("token")
	if bearer == "" {
		bearer = auth.BearerToken(r.Header.Get("Authorization"))
	}
	if bearer == "" {
		respondError(w, r, apperr.ErrUnauthenticated)
		return
	}
	user, token, err := a.auth.Authenticate(r.Context(), bearer)
	if err != nil {
		respondError(w, r, err)
		return
	}
	r = r.WithContext(auth.WithIdentity(r.Context(), user, token))

	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	a.hub.Serve(w, r, site, user)
}

func orEmpty(m models.JSONMap) models.JSONMap {
	if m == nil {
		return models.JSONMap{}
	}
	return m
}
