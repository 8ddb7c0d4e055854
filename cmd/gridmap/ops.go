package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newOpsCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Manage stored operators",
	}
	cmd.AddCommand(newOpsListCommand(g))
	cmd.AddCommand(newOpsDeleteCommand(g))
	return cmd
}

func newOpsListCommand(g *globalFlags) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored operators, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(g.dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			infos, err := s.List()
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tMETHOD\tCOORDS\tSRC\tDST\tWEIGHTS\tLABEL")
			for _, in := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%v\t%d\t%s\n",
					in.ID, in.CreatedAt.Format(time.RFC3339), in.Method, in.CoordSys,
					in.SrcShape, in.DstShape, in.WeightCount, in.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newOpsDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete stored operators",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, len(args))
			for i, a := range args {
				id, err := uuid.Parse(a)
				if err != nil {
					return fmt.Errorf("invalid operator id %q: %w", a, err)
				}
				ids[i] = id
			}
			s, err := openStore(g.dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			for _, id := range ids {
				if err := s.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}
