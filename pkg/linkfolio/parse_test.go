package linkfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/linkfolio/linkfolio/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(env map[string]string) func() (*config.Config, error) {
	return func() (*config.Config, error) {
		return config.LoadFrom(env)
	}
}

func TestParse(t *testing.T) {
	env := map[string]string{
		"LINKFOLIO_ADDR":           ":7000",
		"LINKFOLIO_LOG_LEVEL":      "warn",
		"LINKFOLIO_AUTOSAVE_DELAY": "2s",
	}

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cmd Command, cfg *config.Config)
		wantErr string
	}{
		{
			name: "environment only",
			args: []string{"run"},
			check: func(t *testing.T, cmd Command, cfg *config.Config) {
				assert.IsType(t, &RunCommand{}, cmd)
				assert.Equal(t, ":7000", cfg.Addr)
				assert.Equal(t, "warn", cfg.LogLevel)
				assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)
				assert.False(t, cfg.ReadOnly)
			},
		},
		{
			name: "flags override",
			args: []string{"-addr", ":9090", "-read-only", "-autosave-delay", "250ms", "-log-console", "run"},
			check: func(t *testing.T, cmd Command, cfg *config.Config) {
				assert.Equal(t, ":9090", cfg.Addr)
				assert.True(t, cfg.ReadOnly)
				assert.True(t, cfg.LogConsole)
				assert.Equal(t, 250*time.Millisecond, cfg.AutosaveDelay)
				assert.Equal(t, "warn", cfg.LogLevel)
			},
		},
		{
			name: "migrate",
			args: []string{"-skip-plans", "-catalog", "extra.yaml", "migrate"},
			check: func(t *testing.T, cmd Command, cfg *config.Config) {
				require.IsType(t, &MigrateCommand{}, cmd)
				assert.True(t, cmd.(*MigrateCommand).SkipPlans)
				assert.Equal(t, "migrate", cmd.Name())
				assert.Equal(t, "extra.yaml", cfg.CatalogPath)
			},
		},
		{
			name:    "missing subcommand",
			args:    []string{"-addr", ":1"},
			wantErr: "subcommand required",
		},
		{
			name:    "unknown subcommand",
			args:    []string{"serve"},
			wantErr: "unknown command: serve",
		},
		{
			name:    "negative delay",
			args:    []string{"-autosave-delay", "-1s", "run"},
			wantErr: "invalid autosave delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, cfg, err := parse(tt.args, loadFrom(env))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cmd, cfg)
		})
	}
}

func TestParseLoadError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := parse([]string{"run"}, func() (*config.Config, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}
