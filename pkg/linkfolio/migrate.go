package linkfolio

import (
	"context"
	"fmt"
)

// Migrate creates or updates the schema, then upserts the catalog plans by slug.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.logger.Info().Msg("running database migrations")
	if err := a.raw.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if cmd.SkipPlans {
		a.logger.Info().Msg("migrations completed, plans not seeded")
		return nil
	}

	plans := a.catalog.PlanModels()
	for _, plan := range plans {
		if err := a.raw.UpsertPlan(ctx, plan); err != nil {
			return fmt.Errorf("failed to seed plan %q: %w", plan.Slug, err)
		}
	}
	a.logger.Info().Int("plans", len(plans)).Msg("migrations completed")
	return nil
}
