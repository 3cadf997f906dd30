/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gomoduli/readfiles"
)

// InspectCmd represents the inspect command
var InspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print the grid and data arrays of a legacy VTK file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var grid *readfiles.VTKGrid
		if grid, err = readfiles.ReadVTK(args[0], false); err != nil {
			return
		}
		PrintGrid(cmd.OutOrStdout(), args[0], grid)
		return
	},
}

func init() {
	rootCmd.AddCommand(InspectCmd)
}

func PrintGrid(out io.Writer, path string, grid *readfiles.VTKGrid) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "File:\t%s\n", path)
	fmt.Fprintf(w, "Title:\t%s\n", grid.Title)
	fmt.Fprintf(w, "Version:\t%s\n", grid.Version)
	fmt.Fprintf(w, "Encoding:\t%s\n", grid.Encoding)
	fmt.Fprintf(w, "Dataset:\t%s\n", grid.Dataset)
	fmt.Fprintf(w, "Dimensions:\t%d x %d x %d\n", grid.Dims[0], grid.Dims[1], grid.Dims[2])
	fmt.Fprintf(w, "Cells:\t%d\n", grid.CellCount())
	fmt.Fprintf(w, "Points:\t%d\n", grid.PointCount())
	w.Flush()

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\nSECTION\tKIND\tNAME\tCOMPONENTS\tTUPLES\tMIN\tMEAN\tMAX\n")
	for _, sec := range []struct {
		name  string
		attrs *readfiles.Attributes
	}{
		{"FIELD", grid.FieldData},
		{"CELL_DATA", grid.CellData},
		{"POINT_DATA", grid.PointData},
	} {
		if sec.attrs == nil {
			continue
		}
		for _, kind := range readfiles.AttributeKinds {
			for _, da := range sec.attrs.Arrays {
				if da.Kind == kind {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", sec.name, da.Kind, da.Name, da.NumComponents, da.NumTuples,
						arrayStats(grid, sec.attrs == grid.CellData, da))
				}
			}
		}
	}
	w.Flush()
}

// arrayStats summarizes an array as min, mean and max columns. Cell scalars
// and vectors are taken per cell, vectors by magnitude; other arrays over all values.
func arrayStats(grid *readfiles.VTKGrid, cellData bool, da *readfiles.DataArray) string {
	var (
		values = da.Values
		err    error
	)
	switch {
	case cellData && da.Kind == readfiles.ATTR_Scalars:
		values, err = grid.ScalarField(da.Name)
	case cellData && da.Kind == readfiles.ATTR_Vectors:
		var v [3][]float64
		if v, err = grid.VectorField(da.Name); err == nil {
			values = make([]float64, len(v[0]))
			for i := range values {
				values[i] = math.Sqrt(v[0][i]*v[0][i] + v[1][i]*v[1][i] + v[2][i]*v[2][i])
			}
		}
	}
	if err != nil || len(values) == 0 {
		return "-\t-\t-"
	}
	return fmt.Sprintf("%.6g\t%.6g\t%.6g", floats.Min(values), stat.Mean(values, nil), floats.Max(values))
}
