package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gridmap/internal/field"
	"github.com/banshee-data/gridmap/internal/gridplot"
	"github.com/banshee-data/gridmap/internal/ncio"
)

func newPlotCommand() *cobra.Command {
	var srcPath, srcVar, out string
	var profiles bool
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot a 2-d field with X and Y dimension coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ncio.ReadField(srcPath, srcVar)
			if err != nil {
				return err
			}
			arr, xs, ys, err := plotGrid(f)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%s)", f.Name, f.Units)
			if profiles {
				return gridplot.Profiles(arr, xs, ys, title, out)
			}
			return gridplot.Heatmap(arr, xs, ys, title, out)
		},
	}
	cmd.Flags().StringVar(&srcPath, "src", "", "NetCDF file")
	cmd.Flags().StringVar(&srcVar, "var", "", "variable to plot")
	cmd.Flags().StringVarP(&out, "out", "o", "", "image file (.png, .svg or .pdf)")
	cmd.Flags().BoolVar(&profiles, "profiles", false, "draw one line per Y value instead of a heat map")
	for _, f := range []string{"src", "var", "out"} {
		cmd.MarkFlagRequired(f)
	}
	return cmd
}

// plotGrid returns f's data arranged as (Y, X) together with the X and Y
// coordinate values.
func plotGrid(f *field.Field) (*field.MaskedArray, []float64, []float64, error) {
	if f.IsDomain() || f.Data().NDim() != 2 {
		return nil, nil, nil, fmt.Errorf("plot needs a 2-d field")
	}
	xKey, x, ok := f.DimensionCoordinate("X")
	if !ok {
		return nil, nil, nil, fmt.Errorf("field %q has no X dimension coordinate", f.Name)
	}
	yKey, y, ok := f.DimensionCoordinate("Y")
	if !ok {
		return nil, nil, nil, fmt.Errorf("field %q has no Y dimension coordinate", f.Name)
	}
	xAxis, yAxis := f.ConstructAxes(xKey)[0], f.ConstructAxes(yKey)[0]
	axes := f.DataAxes()
	arr := f.Data()
	if axes[0] == xAxis && axes[1] == yAxis {
		t, err := arr.Transpose([]int{1, 0})
		if err != nil {
			return nil, nil, nil, err
		}
		arr = t
	} else if axes[0] != yAxis || axes[1] != xAxis {
		return nil, nil, nil, fmt.Errorf("field %q data does not span its X and Y axes", f.Name)
	}
	return arr, x.Data.Elements, y.Data.Elements, nil
}
