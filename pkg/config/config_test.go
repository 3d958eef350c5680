package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("k", 32)

func TestDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutosaveDelay)
	assert.Equal(t, 720*time.Hour, cfg.TokenTTL)
	assert.Equal(t, config.MediaLocal, cfg.Media.Backend)
	assert.Equal(t, "/media", cfg.Media.BaseURL)
	assert.Equal(t, config.AnalyticsSQLite, cfg.Analytics.Backend)
	assert.Equal(t, "linkfolio.events", cfg.AMQPExchange)
	assert.False(t, cfg.ReadOnly)
}

func TestOverrides(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"LINKFOLIO_ADDR":                   ":9999",
		"LINKFOLIO_DB_DRIVER":              "postgres",
		"LINKFOLIO_APP_KEY":                testKey,
		"LINKFOLIO_AUTOSAVE_DELAY":         "250ms",
		"LINKFOLIO_READ_ONLY":              "true",
		"LINKFOLIO_MEDIA_BACKEND":          "s3",
		"LINKFOLIO_MEDIA_S3_BUCKET":        "uploads",
		"LINKFOLIO_MEDIA_S3_PATH_STYLE":    "true",
		"LINKFOLIO_ANALYTICS_BACKEND":      "surrealdb",
		"LINKFOLIO_PAYMENTS_STRIPE_SECRET": "whsec",
		"LINKFOLIO_ADMIN_EMAILS":           "ops@example.com,root@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, config.DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.AutosaveDelay)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, "uploads", cfg.Media.S3Bucket)
	assert.True(t, cfg.Media.S3PathStyle)
	assert.Equal(t, config.AnalyticsSurreal, cfg.Analytics.Backend)
	assert.Equal(t, "whsec", cfg.Payments.StripeSecret)
	assert.Equal(t, []string{"ops@example.com", "root@example.com"}, cfg.AdminEmails)
	require.NoError(t, cfg.Validate())
}

func TestInvalidDuration(t *testing.T) {
	_, err := config.LoadFrom(map[string]string{"LINKFOLIO_AUTOSAVE_DELAY": "soon"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"LINKFOLIO_APP_KEY":       "short",
		"LINKFOLIO_DB_DRIVER":     "mysql",
		"LINKFOLIO_MEDIA_BACKEND": "s3",
	})
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_KEY")
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "MEDIA_S3_BUCKET")
}
