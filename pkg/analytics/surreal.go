package analytics

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

const surrealTable = "analytics_events"

// SurrealOptions locates the SurrealDB database events are written to.
type SurrealOptions struct {
	URL       string // ws:// or wss:// endpoint, e.g. ws://localhost:8000/rpc
	Namespace string
	Database  string
	Username  string
	Password  string
}

// SurrealRecorder stores events as records of the analytics_events table.
type SurrealRecorder struct {
	db *surrealdb.DB
}

var _ Recorder = (*SurrealRecorder)(nil)

type surrealEvent struct {
	Kind       string    `json:"kind"`
	SiteID     string    `json:"site_id"`
	ItemID     string    `json:"item_id,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DialSurreal connects with the surrealcbor codec so time.Time values round-trip as datetimes.
func DialSurreal(ctx context.Context, opts SurrealOptions) (*SurrealRecorder, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if opts.Username != "" && opts.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": opts.Username,
			"pass": opts.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, opts.Namespace, opts.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &SurrealRecorder{db: db}, nil
}

func (r *SurrealRecorder) Close() error {
	return r.db.Close(context.Background())
}

func (r *SurrealRecorder) RecordVisit(ctx context.Context, siteID models.SiteID, referrer string, at time.Time) error {
	return r.create(ctx, surrealEvent{
		Kind:       kindVisit,
		SiteID:     siteID.String(),
		Referrer:   referrer,
		OccurredAt: at.UTC(),
	})
}

func (r *SurrealRecorder) RecordClick(ctx context.Context, siteID models.SiteID, itemID models.SectionItemID, at time.Time) error {
	return r.create(ctx, surrealEvent{
		Kind:       kindClick,
		SiteID:     siteID.String(),
		ItemID:     itemID.String(),
		OccurredAt: at.UTC(),
	})
}

func (r *SurrealRecorder) create(ctx context.Context, ev surrealEvent) error {
	if _, err := surrealdb.Create[surrealEvent](ctx, r.db, surrealTable, ev); err != nil {
		return fmt.Errorf("failed to record %s: %w", ev.Kind, err)
	}
	return nil
}

func (r *SurrealRecorder) Summary(ctx context.Context, siteID models.SiteID, since, until time.Time) (*Summary, error) {
	params := map[string]any{
		"site":  siteID.String(),
		"since": since.UTC(),
		"until": until.UTC(),
	}
	const where = "site_id = $site AND occurred_at >= $since AND occurred_at < $until"

	visits, err := r.count(ctx, where+" AND kind = 'visit'", params)
	if err != nil {
		return nil, err
	}
	clicks, err := r.count(ctx, where+" AND kind = 'click'", params)
	if err != nil {
		return nil, err
	}

	type row struct {
		ItemID string `json:"item_id"`
		Clicks int64  `json:"clicks"`
	}
	query := fmt.Sprintf("SELECT item_id, count() AS clicks FROM %s WHERE %s AND kind = 'click' GROUP BY item_id ORDER BY clicks DESC LIMIT %d",
		surrealTable, where, TopItemsLimit)
	result, err := surrealdb.Query[[]row](ctx, r.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}

	summary := &Summary{Visits: visits, Clicks: clicks, TopItems: []ItemCount{}}
	if result != nil && len(*result) > 0 {
		for _, rw := range (*result)[0].Result {
			item, err := toItemCount(itemRow{ItemID: rw.ItemID, Clicks: rw.Clicks})
			if err != nil {
				return nil, err
			}
			summary.TopItems = append(summary.TopItems, item)
		}
	}
	return summary, nil
}

func (r *SurrealRecorder) count(ctx context.Context, where string, params map[string]any) (int64, error) {
	type row struct {
		N int64 `json:"n"`
	}
	query := fmt.Sprintf("SELECT count() AS n FROM %s WHERE %s GROUP ALL", surrealTable, where)
	result, err := surrealdb.Query[[]row](ctx, r.db, query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	if result == nil || len(*result) == 0 || len((*result)[0].Result) == 0 {
		return 0, nil
	}
	return (*result)[0].Result[0].N, nil
}
