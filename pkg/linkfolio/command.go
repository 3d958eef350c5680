package linkfolio

// Command is a parsed subcommand.
type Command interface {
	Name() string
}

type RunCommand struct {
}

func (c *RunCommand) Name() string {
	return "run"
}

// MigrateCommand creates or updates the schema and seeds the catalog plans.
type MigrateCommand struct {
	// SkipPlans leaves the plans table untouched.
	SkipPlans bool
}

func (c *MigrateCommand) Name() string {
	return "migrate"
}
