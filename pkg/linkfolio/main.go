package linkfolio

import (
	"context"
	"fmt"

	"github.com/linkfolio/linkfolio/pkg/logger"
)

// Main parses args, builds the application and runs the selected command until ctx is done.
func Main(ctx context.Context, args []string) error {
	cmd, cfg, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	logData, err := logger.New().
		FromPath(cfg.LogFile).
		WithLevel(cfg.LogLevel).
		Console(cfg.LogConsole).
		Make()
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logData.Close()

	app, err := New(ctx, cfg, logData.Logger, Dependencies{})
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logData.Logger.Error().Err(err).Msg("shutdown incomplete")
		}
	}()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
