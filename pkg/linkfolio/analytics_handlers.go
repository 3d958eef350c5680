package linkfolio

import (
	"net/http"
	"time"

	"github.com/linkfolio/linkfolio/pkg/apperr"
)

const defaultAnalyticsWindow = 30 * 24 * time.Hour

// handleSiteAnalytics summarises visits and clicks in [since, until). Both bounds are RFC 3339
// timestamps; the default window is the last 30 days.
func (a *App) handleSiteAnalytics(w http.ResponseWriter, r *http.Request) {
	site, err := loadOwned(r, "id", "site", a.store.GetSite)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The upper bound is exclusive; include events recorded this millisecond.
	until := a.now().Add(time.Millisecond)
	since := until.Add(-defaultAnalyticsWindow)
	var c apperr.Check
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		c.Require("until", err == nil, "must be an RFC 3339 timestamp")
		until = t
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		c.Require("since", err == nil, "must be an RFC 3339 timestamp")
		since = t
	}
	c.Require("since", since.Before(until), "must be before until")
	if err := c.Err(); err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := a.analytics.Summary(r.Context(), site.ID, since, until)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
