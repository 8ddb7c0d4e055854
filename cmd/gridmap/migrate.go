package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridmap/internal/opstore"
)

func newMigrateCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the operator database schema",
	}
	withStore := func(run func(cmd *cobra.Command, s *opstore.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := opstore.Open(g.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer s.Close()
			return run(cmd, s)
		}
	}
	printVersion := func(cmd *cobra.Command, s *opstore.Store) error {
		v, dirty, err := s.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := opstore.LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d (dirty: %t)\n", v, latest, dirty)
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s *opstore.Store) error {
			if err := s.MigrateUp(); err != nil {
				return err
			}
			return printVersion(cmd, s)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, s *opstore.Store) error {
			if err := s.MigrateDown(); err != nil {
				return err
			}
			return printVersion(cmd, s)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE:  withStore(printVersion),
	})
	return cmd
}
