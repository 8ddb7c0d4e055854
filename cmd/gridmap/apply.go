package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/banshee-data/gridmap/internal/ncio"
	"github.com/banshee-data/gridmap/internal/regrid"
)

func newApplyCommand(g *globalFlags) *cobra.Command {
	var srcPath, srcVar, cfgPath, out, opID string
	cmd := &cobra.Command{
		Use:     "apply",
		Short:   "Apply a stored operator to a field",
		Example: `  gridmap apply --op 3f0c... --src tas_2025.nc --var tas -o tas_2025_regridded.nc`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(opID)
			if err != nil {
				return fmt.Errorf("invalid --op: %w", err)
			}
			opts, err := loadOptions(cfgPath)
			if err != nil {
				return err
			}

			s, err := openStore(g.dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			op, err := s.Load(id)
			if err != nil {
				return err
			}

			src, err := ncio.ReadField(srcPath, srcVar)
			if err != nil {
				return err
			}
			opts.CoordSys = op.CoordSys()
			result, err := regrid.RegridWith(src, op, opts)
			if err != nil {
				return err
			}
			return ncio.WriteField(out, result)
		},
	}
	cmd.Flags().StringVar(&opID, "op", "", "stored operator id")
	cmd.Flags().StringVar(&srcPath, "src", "", "source NetCDF file")
	cmd.Flags().StringVar(&srcVar, "var", "", "source variable")
	cmd.Flags().StringVar(&cfgPath, "config", "", "regrid config file; only check_coordinates and axis settings apply")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output NetCDF file")
	for _, f := range []string{"op", "src", "var", "out"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}
