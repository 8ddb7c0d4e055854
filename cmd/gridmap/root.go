package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/banshee-data/gridmap/internal/config"
	"github.com/banshee-data/gridmap/internal/monitoring"
	"github.com/banshee-data/gridmap/internal/opstore"
	"github.com/banshee-data/gridmap/internal/regrid"
	"github.com/banshee-data/gridmap/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	dbPath   string
	logLevel string
	console  bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "gridmap",
		Short: "Build, store and apply regrid operators",
		Long: `gridmap regrids NetCDF fields between spherical or Cartesian grids.

Operators are built once from a source field and a destination grid, stored
in a SQLite database and reapplied to any field on the same source grid.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.GitSHA, version.BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(g.logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			monitoring.SetOutput(os.Stderr, level, g.console)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&g.dbPath, "db", "gridmap.db", "operator database path")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.console, "console", true, "human-readable log output")

	root.AddCommand(newBuildCommand(g))
	root.AddCommand(newApplyCommand(g))
	root.AddCommand(newRegridCommand())
	root.AddCommand(newOpsCommand(g))
	root.AddCommand(newPlotCommand())
	root.AddCommand(newMigrateCommand(g))
	root.AddCommand(newVersionCommand())
	return root
}

// openStore opens the operator database and refuses to use it until its
// schema is current.
func openStore(path string) (*opstore.Store, error) {
	s, err := opstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	current, dirty, err := s.MigrateVersion()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	latest, err := opstore.LatestMigrationVersion()
	if err != nil {
		s.Close()
		return nil, err
	}
	if dirty {
		s.Close()
		return nil, fmt.Errorf("database is in a dirty state (version %d)", current)
	}
	if current != latest {
		s.Close()
		return nil, fmt.Errorf("database schema is out of date (version %d, need %d); run 'gridmap migrate up'", current, latest)
	}
	return s, nil
}

// loadOptions returns the regrid options from an optional config file.
func loadOptions(path string) (regrid.Options, error) {
	if path == "" {
		return config.DefaultRegridConfig().ToOptions(), nil
	}
	cfg, err := config.LoadRegridConfig(path)
	if err != nil {
		return regrid.Options{}, err
	}
	return cfg.ToOptions(), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridmap %s\ncommit: %s\nbuilt: %s\n",
				version.Version, version.GitSHA, version.BuildTime)
		},
	}
}
