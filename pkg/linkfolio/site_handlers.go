package linkfolio

import (
	"context"
	"net/http"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/client"
	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/models"
)

const slugRule = "must be lowercase letters, digits and dashes"

func (a *App) handleListThemes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.catalog.ThemeList())
}

func (a *App) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := a.store.ListSites(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sites)
}

// handleCreateSite stores the site with the theme's default settings and a "home" page.
func (a *App) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req client.CreateSiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	user := auth.UserFromContext(ctx)

	name := strings.TrimSpace(req.Name)
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = slugify(name)
	}
	theme, ok := a.catalog.Theme(req.Theme)

	var c apperr.Check
	c.Require("name", name != "", "is required")
	c.Require("slug", validSlug(slug), slugRule)
	c.Require("theme", ok, "unknown theme")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.checkSiteSlug(ctx, slug, models.SiteID{}); err != nil {
		respondError(w, r, err)
		return
	}

	site := &models.Site{
		UserID:   user.ID,
		Name:     name,
		Slug:     slug,
		Theme:    theme.ID,
		Settings: theme.Defaults.Merge(req.Settings),
	}
	if err := a.store.CreateSite(ctx, site); err != nil {
		if apperr.CodeOf(err) == apperr.CodeConflict {
			err = slugTaken(err)
		}
		respondError(w, r, err)
		return
	}

	home := &models.Page{
		UserID:   user.ID,
		SiteID:   site.ID,
		Title:    "Home",
		Slug:     "home",
		Settings: models.JSONMap{},
	}
	if err := a.store.CreatePage(ctx, home); err != nil {
		respondError(w, r, err)
		return
	}
	site.Pages = []*models.Page{home}

	respondJSON(w, http.StatusCreated, site)
}

// checkSiteSlug fails when slug belongs to a site other than self.
func (a *App) checkSiteSlug(ctx context.Context, slug string, self models.SiteID) error {
	existing, err := a.store.GetSiteBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return slugTaken(nil)
	}
	return nil
}

// slugTaken reports a slug conflict, including one caught by the unique index when two
// requests race past checkSiteSlug.
func slugTaken(cause error) error {
	return &apperr.Error{
		Code:    apperr.CodeConflict,
		Message: "site slug taken",
		Fields:  map[string]string{"slug": "is already taken"},
		Cause:   cause,
	}
}

func (a *App) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	site.Pages, err = a.store.ListPages(r.Context(), site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, site)
}

// handleUpdateSite applies the fields present in the request. Switching the theme resets the
// settings to the new theme's defaults before the requested settings are merged.
func (a *App) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.UpdateSiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	var c apperr.Check
	if req.Name != nil {
		site.Name = strings.TrimSpace(*req.Name)
		c.Require("name", site.Name != "", "is required")
	}
	slugChanged := false
	if req.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*req.Slug))
		c.Require("slug", validSlug(slug), slugRule)
		slugChanged = slug != site.Slug
		site.Slug = slug
	}
	if req.Theme != nil && *req.Theme != site.Theme {
		theme, ok := a.catalog.Theme(*req.Theme)
		c.Require("theme", ok, "unknown theme")
		site.Theme = theme.ID
		site.Settings = theme.Defaults
	}
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}
	if slugChanged {
		if err := a.checkSiteSlug(ctx, site.Slug, site.ID); err != nil {
			respondError(w, r, err)
			return
		}
	}
	if req.Settings != nil {
		site.Settings = site.Settings.Merge(req.Settings)
	}
	if req.Published != nil {
		site.Published = *req.Published
	}

	if err := a.store.UpdateSite(ctx, site); err != nil {
		if apperr.CodeOf(err) == apperr.CodeConflict {
			err = slugTaken(err)
		}
		respondError(w, r, err)
		return
	}
	a.publish(ctx, events.TypeSiteUpdated, site.ID, site.UserID, site)

	respondJSON(w, http.StatusOK, site)
}

func (a *App) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeleteSite(r.Context(), site.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleListPages(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pages, err := a.store.ListPages(r.Context(), site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, pages)
}

func (a *App) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.PageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	pages, err := a.store.ListPages(ctx, site.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page := &models.Page{
		UserID:   site.UserID,
		SiteID:   site.ID,
		Position: len(pages),
		Settings: models.JSONMap{},
	}
	if err := applyPage(page, req, pages); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.CreatePage(ctx, page); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, page)
}

// applyPage validates req and copies it onto page. siblings are the site's pages, used to keep
// page slugs unique within the site.
func applyPage(page *models.Page, req client.PageRequest, siblings []*models.Page) error {
	title := strings.TrimSpace(req.Title)
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = slugify(title)
	}

	taken := false
	for _, p := range siblings {
		if p.ID != page.ID && p.Slug == slug {
			taken = true
			break
		}
	}

	var c apperr.Check
	c.Require("title", title != "", "is required")
	c.Require("slug", validSlug(slug), slugRule)
	c.Require("slug", !taken, "is already used by another page of this site")
	if req.Position != nil {
		c.Require("position", *req.Position >= 0, "must not be negative")
	}
	if err := c.Err(); err != nil {
		return err
	}

	page.Title = title
	page.Slug = slug
	if req.Position != nil {
		page.Position = *req.Position
	}
	if req.Settings != nil {
		page.Settings = req.Settings
	}
	return nil
}

func (a *App) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	page.Sections, err = a.store.ListSections(r.Context(), page.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req client.PageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	siblings, err := a.store.ListPages(ctx, page.SiteID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := applyPage(page, req, siblings); err != nil {
		respondError(w, r, err)
		return
	}
	if err := a.store.UpdatePage(ctx, page); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	page, err := loadOwned(r, "id", "page", a.store.GetPage)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := a.store.DeletePage(r.Context(), page.ID); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
