package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridmap/internal/config"
	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/ncio"
	"github.com/banshee-data/gridmap/internal/regrid"
)

// destinationFlags select a destination grid file or NetCDF field.
type destinationFlags struct {
	grid   string
	dst    string
	dstVar string
}

func (d *destinationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.grid, "grid", "", "destination grid file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&d.dst, "dst", "", "destination NetCDF file")
	cmd.Flags().StringVar(&d.dstVar, "dst-var", "", "destination variable in --dst")
	cmd.MarkFlagsMutuallyExclusive("grid", "dst")
	cmd.MarkFlagsOneRequired("grid", "dst")
	cmd.MarkFlagsRequiredTogether("dst", "dst-var")
}

// buildOperator builds an operator from src onto the selected destination.
func (d *destinationFlags) buildOperator(src *field.Field, opts regrid.Options) (*regrid.Operator, error) {
	if d.grid != "" {
		g, err := config.LoadGridFile(d.grid)
		if err != nil {
			return nil, err
		}
		opts.CoordSys = g.GetCoordSys()
		return regrid.BuildOperatorToSpec(src, g.GridSpec(), opts)
	}
	dst, err := ncio.ReadField(d.dst, d.dstVar)
	if err != nil {
		return nil, err
	}
	return regrid.BuildOperator(src, dst, opts)
}

func newBuildCommand(g *globalFlags) *cobra.Command {
	var (
		srcPath, srcVar string
		cfgPath, label  string
		dest            destinationFlags
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a regrid operator and store it",
		Example: `  # Conservative operator onto a grid file
  gridmap build --src tas.nc --var tas --grid half_degree.yaml --config conservative.yaml

  # Operator onto the grid of another field
  gridmap build --src tas.nc --var tas --dst obs.nc --dst-var pr`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cfgPath)
			if err != nil {
				return err
			}
			src, err := ncio.ReadField(srcPath, srcVar)
			if err != nil {
				return err
			}
			op, err := dest.buildOperator(src, opts)
			if err != nil {
				return err
			}

			s, err := openStore(g.dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := s.Save(op, label)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&srcPath, "src", "", "source NetCDF file")
	cmd.Flags().StringVar(&srcVar, "var", "", "source variable")
	cmd.Flags().StringVar(&cfgPath, "config", "", "regrid config file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&label, "label", "", "label stored with the operator")
	dest.register(cmd)
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("var")
	return cmd
}

func newRegridCommand() *cobra.Command {
	var (
		srcPath, srcVar string
		cfgPath, out    string
		dest            destinationFlags
	)
	cmd := &cobra.Command{
		Use:   "regrid",
		Short: "Regrid a field without storing the operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cfgPath)
			if err != nil {
				return err
			}
			src, err := ncio.ReadField(srcPath, srcVar)
			if err != nil {
				return err
			}
			op, err := dest.buildOperator(src, opts)
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
	cmd.Flags().StringVar(&srcPath, "src", "", "source NetCDF file")
	cmd.Flags().StringVar(&srcVar, "var", "", "source variable")
	cmd.Flags().StringVar(&cfgPath, "config", "", "regrid config file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output NetCDF file")
	dest.register(cmd)
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("var")
	cmd.MarkFlagRequired("out")
	return cmd
}
