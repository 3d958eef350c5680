// Package linkfolio wires the linkfolio service together: configuration, stores, the autosaver,
// the event bus, the builder hub and the HTTP API.
package linkfolio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/linkfolio/linkfolio/pkg/analytics"
	"github.com/linkfolio/linkfolio/pkg/auth"
	"github.com/linkfolio/linkfolio/pkg/builder"
	"github.com/linkfolio/linkfolio/pkg/catalog"
	"github.com/linkfolio/linkfolio/pkg/config"
	"github.com/linkfolio/linkfolio/pkg/events"
	"github.com/linkfolio/linkfolio/pkg/media"
	"github.com/linkfolio/linkfolio/pkg/models"
	"github.com/linkfolio/linkfolio/pkg/payments"
	"github.com/linkfolio/linkfolio/pkg/realtime"
	"github.com/linkfolio/linkfolio/pkg/store"
	"github.com/linkfolio/linkfolio/pkg/store/gormstore"
	"github.com/linkfolio/linkfolio/pkg/telemetry"
	"github.com/rs/zerolog"
)

const serviceName = "linkfolio"

// Dependencies overrides parts of the wiring New would otherwise build from the configuration.
// Zero fields are built as usual.
type Dependencies struct {
	Store     store.Store
	Bus       events.Bus
	Storage   media.Storage
	Analytics analytics.Recorder
	Catalog   *catalog.Catalog
	Gateways  []payments.Gateway
}

// App holds the application state.
type App struct {
	config *config.Config
	logger zerolog.Logger

	// raw is the unwrapped store, used for migrations and health checks.
	raw       store.Store
	store     store.Store
	catalog   *catalog.Catalog
	auth      *auth.Service
	bus       events.Bus
	autosaver *builder.Autosaver
	hub       *realtime.Hub
	media     *media.Service
	files     http.Handler
	analytics analytics.Recorder
	payments  *payments.Service

	readOnly        atomic.Bool
	shutdownTracing func(context.Context) error
	now             func() time.Time
}

// New creates an application from cfg.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, deps Dependencies) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
	a.readOnly.Store(cfg.ReadOnly)

	var err error
	a.shutdownTracing, err = telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	a.catalog = deps.Catalog
	if a.catalog == nil {
		if a.catalog, err = catalog.Load(cfg.CatalogPath); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	a.raw = deps.Store
	if a.raw == nil {
		db, err := gormstore.Open(cfg.DBDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DBDriver, err)
		}
		a.raw = db
		logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")
	}
	a.store = store.NewReadOnlyStore(a.raw, a.IsReadOnly)

	tokens, err := auth.NewTokens([]byte(cfg.AppKey), cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	a.auth = auth.NewService(a.store, tokens)

	a.bus = deps.Bus
	if a.bus == nil {
		if a.bus, err = a.openBus(); err != nil {
			return nil, err
		}
	}

	a.autosaver = builder.New(a.store, a.bus, cfg.AutosaveDelay, logger)
	a.hub = realtime.NewHub(realtime.Options{
		Bus:       a.bus,
		Scheduler: a.autosaver,
		Sections:  a.store,
		Logger:    logger,
		ReadOnly:  a.IsReadOnly,
	})

	storage := deps.Storage
	if storage == nil {
		if storage, err = a.openStorage(ctx); err != nil {
			return nil, err
		}
	}
	a.media = media.NewService(storage)
	if h, ok := storage.(http.Handler); ok {
		a.files = h
	}

	a.analytics = deps.Analytics
	if a.analytics == nil {
		if a.analytics, err = a.openAnalytics(ctx); err != nil {
			return nil, err
		}
	}

	gateways := deps.Gateways
	if gateways == nil {
		if secret := cfg.Payments.StripeSecret; secret != "" {
			gateways = append(gateways, payments.NewStripe(secret))
		}
		if secret := cfg.Payments.PaystackSecret; secret != "" {
			gateways = append(gateways, payments.NewPaystack(secret))
		}
	}
	a.payments = payments.NewService(a.store, logger, gateways...)

	logger.Info().
		Bool("read_only", a.IsReadOnly()).
		Strs("gateways", a.payments.Gateways()).
		Dur("autosave_delay", a.autosaver.Delay()).
		Msg("application ready")
	return a, nil
}

func (a *App) openBus() (events.Bus, error) {
	if a.config.AMQPURL == "" {
		return events.NewLocalBus(a.logger), nil
	}
	bus, err := events.DialAMQP(a.config.AMQPURL, a.config.AMQPExchange, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	a.logger.Info().Str("exchange", a.config.AMQPExchange).Msg("connected to AMQP broker")
	return bus, nil
}

func (a *App) openStorage(ctx context.Context) (media.Storage, error) {
	m := a.config.Media
	if m.Backend != config.MediaS3 {
		return media.NewDirStorage(m.Dir, m.BaseURL), nil
	}
	s3, err := media.NewS3Storage(ctx, media.S3Options{
		Bucket:    m.S3Bucket,
		Region:    m.S3Region,
		Endpoint:  m.S3Endpoint,
		PathStyle: m.S3PathStyle,
		PublicURL: m.S3PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 storage: %w", err)
	}
	return s3, nil
}

func (a *App) openAnalytics(ctx context.Context) (analytics.Recorder, error) {
	c := a.config.Analytics
	switch c.Backend {
	case config.AnalyticsSurreal:
		rec, err := analytics.DialSurreal(ctx, analytics.SurrealOptions{
			URL:       c.SurrealURL,
			Namespace: c.SurrealNS,
			Database:  c.SurrealDB,
			Username:  c.SurrealUser,
			Password:  c.SurrealPass,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		return rec, nil
	case config.AnalyticsDisabled:
		return analytics.Discard(), nil
	default:
		rec, err := analytics.OpenSQLite(c.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open analytics database: %w", err)
		}
		return rec, nil
	}
}

// SetReadOnly toggles maintenance mode at runtime.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Warn().Bool("read_only", readOnly).Msg("maintenance mode changed")
}

func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}

func (a *App) isAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || slices.ContainsFunc(a.config.AdminEmails, func(email string) bool {
		return strings.EqualFold(strings.TrimSpace(email), user.Email)
	})
}

// publish announces ev on the bus. Failures are logged, never returned: the write that
// caused the event has already happened.
func (a *App) publish(ctx context.Context, typ string, siteID models.SiteID, userID models.UserID, payload any) {
	ev, err := events.New(typ, siteID, userID, payload)
	if err == nil {
		err = a.bus.Publish(ctx, ev)
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("type", typ).Msg("failed to publish event")
	}
}

// Close flushes pending section saves and releases every resource.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.autosaver.Close(ctx)

	var errs []error
	if err := a.hub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("hub: %w", err))
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bus: %w", err))
	}
	if err := a.analytics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("analytics: %w", err))
	}
	if err := a.raw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := a.shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	return errors.Join(errs...)
}
