// Package analytics records visits to published sites and clicks on their section items, and
// summarises them for the site owner.
//
// Two backends exist: [SQLiteRecorder], a standalone SQLite file managed with goose migrations,
// and [SurrealRecorder], which writes events to SurrealDB.
package analytics

import (
	"context"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
)

// TopItemsLimit bounds Summary.TopItems.
const TopItemsLimit = 10

const (
	kindVisit = "visit"
	kindClick = "click"
)

type Recorder interface {
	RecordVisit(ctx context.Context, siteID models.SiteID, referrer string, at time.Time) error
	RecordClick(ctx context.Context, siteID models.SiteID, itemID models.SectionItemID, at time.Time) error
	// Summary counts events in [since, until).
	Summary(ctx context.Context, siteID models.SiteID, since, until time.Time) (*Summary, error)
	Close() error
}

type Summary struct {
	Visits   int64       `json:"visits"`
	Clicks   int64       `json:"clicks"`
	TopItems []ItemCount `json:"top_items"`
}

type ItemCount struct {
	ItemID models.SectionItemID `json:"item_id"`
	Clicks int64                `json:"clicks"`
}

// Discard returns a Recorder that drops every event and reports empty summaries.
func Discard() Recorder {
	return discard{}
}

type discard struct{}

func (discard) RecordVisit(context.Context, models.SiteID, string, time.Time) error { return nil }

func (discard) RecordClick(context.Context, models.SiteID, models.SectionItemID, time.Time) error {
	return nil
}

func (discard) Summary(context.Context, models.SiteID, time.Time, time.Time) (*Summary, error) {
	return &Summary{TopItems: []ItemCount{}}, nil
}

func (discard) Close() error { return nil }
