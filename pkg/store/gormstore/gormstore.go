// Package gormstore implements [github.com/linkfolio/linkfolio/pkg/store.Store] with GORM.
//
// PostgreSQL is the production database. SQLite (through the pure-Go modernc.org/sqlite
// driver) serves development setups and the test suites, so the same code paths run in both.
//
// The schema is created by [Store.Migrate] with GORM's AutoMigrate. Multi-row writes run inside
// [gorm.DB.Transaction]; inside a transaction every statement goes through the transaction
// handle, never through the store's root handle.
//
// # Usage Example
//
//	st, err := gormstore.Open(gormstore.DriverSQLite, "file:linkfolio.db?_pragma=foreign_keys(1)")
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	if err := st.Migrate(ctx); err != nil {
//		return err
//	}
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/store"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements the store.Store interface using GORM.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database identified by driver and dsn.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; serialising connections avoids SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db), nil
}

// New wraps an open GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for tests and maintenance tasks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates missing tables, columns and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.Site{},
		&models.Page{},
		&models.Section{},
		&models.SectionItem{},
		&models.SectionRevision{},
		&models.Product{},
		&models.Order{},
		&models.Audience{},
		&models.Folder{},
		&models.FolderMember{},
		&models.BookingService{},
		&models.Booking{},
		&models.Plan{},
		&models.Checkout{},
		&models.Transaction{},
	)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// get loads one record by primary key, returning (nil, nil) when it does not exist.
func get[T any](ctx context.Context, db *gorm.DB, query string, args ...any) (*T, error) {
	var out T
	err := db.WithContext(ctx).Where(query, args...).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// translate maps constraint violations onto domain errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return apperr.Wrap(apperr.CodeConflict, "already exists", err)
	}
	return err
}

// isUniqueViolation catches drivers whose errors GORM cannot translate.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
