// Package config loads linkfolio's configuration from LINKFOLIO_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "LINKFOLIO_"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	MediaLocal = "local"
	MediaS3    = "s3"

	AnalyticsSQLite   = "sqlite"
	AnalyticsSurreal  = "surrealdb"
	AnalyticsDisabled = "none"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8080"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:linkfolio.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"`

	// AppKey signs bearer tokens. At least 32 bytes.
	AppKey   string        `env:"APP_KEY"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	AutosaveDelay time.Duration `env:"AUTOSAVE_DELAY" envDefault:"1500ms"`
	ReadOnly      bool          `env:"READ_ONLY"`

	// AdminEmails may toggle maintenance mode in addition to users flagged is_admin.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogConsole bool   `env:"LOG_CONSOLE"`
	LogFile    string `env:"LOG_FILE"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"linkfolio.events"`

	CatalogPath string `env:"CATALOG_PATH"`

	Media     Media     `envPrefix:"MEDIA_"`
	Analytics Analytics `envPrefix:"ANALYTICS_"`
	Payments  Payments  `envPrefix:"PAYMENTS_"`
}

type Media struct {
	Backend string `env:"BACKEND" envDefault:"local"`
	Dir     string `env:"DIR" envDefault:"media"`
	BaseURL string `env:"BASE_URL" envDefault:"/media"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PathStyle bool   `env:"S3_PATH_STYLE"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

type Analytics struct {
	Backend string `env:"BACKEND" envDefault:"sqlite"`
	Path    string `env:"PATH" envDefault:"linkfolio-analytics.db"`

	SurrealURL  string `env:"SURREALDB_URL" envDefault:"ws://localhost:8000/rpc"`
	SurrealNS   string `env:"SURREALDB_NS" envDefault:"linkfolio"`
	SurrealDB   string `env:"SURREALDB_DB" envDefault:"analytics"`
	SurrealUser string `env:"SURREALDB_USER"`
	SurrealPass string `env:"SURREALDB_PASS"`
}

// Payments holds the webhook secrets. A gateway without a secret is disabled.
type Payments struct {
	StripeSecret   string `env:"STRIPE_SECRET"`
	PaystackSecret string `env:"PAYSTACK_SECRET"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate checks what serving requires.
func (c *Config) Validate() error {
	var problems []string
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("%sDB_DRIVER must be %q or %q", Prefix, DriverPostgres, DriverSQLite))
	}
	if len(c.AppKey) < 32 {
		problems = append(problems, Prefix+"APP_KEY must be at least 32 bytes")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, Prefix+"TOKEN_TTL must be positive")
	}
	switch c.Media.Backend {
	case MediaLocal:
	case MediaS3:
		if c.Media.S3Bucket == "" {
			problems = append(problems, Prefix+"MEDIA_S3_BUCKET is required for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("%sMEDIA_BACKEND must be %q or %q", Prefix, MediaLocal, MediaS3))
	}
	switch c.Analytics.Backend {
	case AnalyticsSQLite, AnalyticsSurreal, AnalyticsDisabled:
	default:
		problems = append(problems, fmt.Sprintf("%sANALYTICS_BACKEND must be %q, %q or %q", Prefix, AnalyticsSQLite, AnalyticsSurreal, AnalyticsDisabled))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
