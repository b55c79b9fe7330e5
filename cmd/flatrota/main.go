package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/flatrota/internal/config"
	"github.com/dukerupert/flatrota/internal/logging"
)

// globalFlags override values loaded from the environment when set.
type globalFlags struct {
	envFile   string
	dbPath    string
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "flatrota",
		Short:         "Shared-flat chore rota service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Optional .env file with FLATROTA_* settings")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides FLATROTA_DB_PATH)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newPlanCmd(),
		newGenerateCmd(g),
		newUserCmd(g),
		newFlatCmd(g),
	)
	return root
}

// load resolves configuration (flags > environment > .env > defaults) and
// installs the default logger.
func (g *globalFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return nil, nil, err
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.Log.Level, cfg.Log.Format), nil
}
