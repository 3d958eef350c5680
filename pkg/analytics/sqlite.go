package analytics

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteRecorder stores events in their own SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
}

var _ Recorder = (*SQLiteRecorder)(nil)

// OpenSQLite opens (creating if needed) the SQLite file at path and applies all pending
// migrations.
func OpenSQLite(path string) (*SQLiteRecorder, error) {
	db, err := sqlx.Connect("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("connecting to analytics db: %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("closing analytics db: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordVisit(ctx context.Context, siteID models.SiteID, referrer string, at time.Time) error {
	query := `INSERT INTO analytics_events (kind, site_id, referrer, occurred_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, kindVisit, siteID.String(), referrer, at.UnixMilli()); err != nil {
		return fmt.Errorf("inserting visit: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordClick(ctx context.Context, siteID models.SiteID, itemID models.SectionItemID, at time.Time) error {
	query := `INSERT INTO analytics_events (kind, site_id, item_id, occurred_at) VALUES (?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, kindClick, siteID.String(), itemID.String(), at.UnixMilli()); err != nil {
		return fmt.Errorf("inserting click: %w", err)
	}
	return nil
}

type countRow struct {
	Visits int64 `db:"visits"`
	Clicks int64 `db:"clicks"`
}

type itemRow struct {
	ItemID string `db:"item_id"`
	Clicks int64  `db:"clicks"`
}

func (r *SQLiteRecorder) Summary(ctx context.Context, siteID models.SiteID, since, until time.Time) (*Summary, error) {
	var counts countRow
	query := `SELECT
                COALESCE(SUM(CASE WHEN kind = 'visit' THEN 1 ELSE 0 END), 0) AS visits,
                COALESCE(SUM(CASE WHEN kind = 'click' THEN 1 ELSE 0 END), 0) AS clicks
              FROM analytics_events
              WHERE site_id = ? AND occurred_at >= ? AND occurred_at < ?`

	err := r.db.GetContext(ctx, &counts, query, siteID.String(), since.UnixMilli(), until.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}

	var rows []itemRow
	query = `SELECT item_id, COUNT(*) AS clicks
             FROM analytics_events
             WHERE site_id = ? AND kind = 'click' AND occurred_at >= ? AND occurred_at < ?
             GROUP BY item_id
             ORDER BY clicks DESC, item_id
             LIMIT ?`

	err = r.db.SelectContext(ctx, &rows, query, siteID.String(), since.UnixMilli(), until.UnixMilli(), TopItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("getting top items: %w", err)
	}

	summary := &Summary{Visits: counts.Visits, Clicks: counts.Clicks, TopItems: []ItemCount{}}
	for _, row := range rows {
		item, err := toItemCount(row)
		if err != nil {
			return nil, err
		}
		summary.TopItems = append(summary.TopItems, item)
	}
	return summary, nil
}

func toItemCount(row itemRow) (ItemCount, error) {
	var id models.SectionItemID
	if err := id.UnmarshalText([]byte(row.ItemID)); err != nil {
		return ItemCount{}, fmt.Errorf("parsing item id %q: %w", row.ItemID, err)
	}
	return ItemCount{ItemID: id, Clicks: row.Clicks}, nil
}
