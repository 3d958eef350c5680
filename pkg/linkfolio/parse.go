package linkfolio

import (
	"flag"
	"fmt"

	"github.com/linkfolio/linkfolio/pkg/config"
)

const usage = `subcommand required

Usage: linkfolio [flags] <command>

Commands:
  run       Start the linkfolio server
  migrate   Create or update the schema and seed plans from the catalog

Configuration is read from LINKFOLIO_* environment variables; flags override them.

Examples:
  linkfolio run
  linkfolio -addr :9090 -log-level debug -log-console run
  linkfolio -read-only run                    # start in maintenance mode
  linkfolio -catalog ./catalog.yaml migrate`

// Parse reads flags from args on top of the environment configuration.
func Parse(args []string) (Command, *config.Config, error) {
	return parse(args, config.Load)
}

func parse(args []string, load func() (*config.Config, error)) (Command, *config.Config, error) {
	flagSet := flag.NewFlagSet("linkfolio", flag.ContinueOnError)

	var (
		addr          = flagSet.String("addr", "", "Listen address (LINKFOLIO_ADDR)")
		readOnly      = flagSet.Bool("read-only", false, "Start in read-only maintenance mode (LINKFOLIO_READ_ONLY)")
		logLevel      = flagSet.String("log-level", "", "Log level: debug, info, warn, error (LINKFOLIO_LOG_LEVEL)")
		logConsole    = flagSet.Bool("log-console", false, "Human-readable log output (LINKFOLIO_LOG_CONSOLE)")
		catalogPath   = flagSet.String("catalog", "", "Catalog YAML merged over the built-in one (LINKFOLIO_CATALOG_PATH)")
		autosaveDelay = flagSet.Duration("autosave-delay", 0, "Quiet period before a section edit is saved (LINKFOLIO_AUTOSAVE_DELAY)")
		skipPlans     = flagSet.Bool("skip-plans", false, "migrate: do not seed plans from the catalog")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf(usage)
	}

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{SkipPlans: *skipPlans}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate", remainingArgs[0])
	}

	cfg, err := load()
	if err != nil {
		return nil, nil, err
	}

	// Only flags given explicitly override the environment.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "read-only":
			cfg.ReadOnly = *readOnly
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-console":
			cfg.LogConsole = *logConsole
		case "catalog":
			cfg.CatalogPath = *catalogPath
		case "autosave-delay":
			cfg.AutosaveDelay = *autosaveDelay
		}
	})
	if cfg.AutosaveDelay < 0 {
		return nil, nil, fmt.Errorf("invalid autosave delay: %s", cfg.AutosaveDelay)
	}

	return cmd, cfg, nil
}
