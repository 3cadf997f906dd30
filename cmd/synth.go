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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notargets/gomoduli/moduli"
	"github.com/notargets/gomoduli/readfiles"
)

// SynthCmd represents the synth command
var SynthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write the three load case VTK files of an isotropic material",
	Long: `
Writes uniform stress, strain and plastic strain fields for uniaxial strain
along X, Y and Z, named so the moduli command can read them back.

gomoduli synth -D results -E 110e3 --nu 0.32 && gomoduli moduli -D results`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			sp  = &SynthParameters{}
			iso moduli.Isotropic
		)
		f := cmd.Flags()
		sp.Dir, _ = f.GetString("dir")
		sp.Prefix, _ = f.GetString("prefix")
		sp.Material, _ = f.GetString("material")
		sp.Simulation, _ = f.GetInt("simulation")
		sp.Cycle, _ = f.GetInt("cycle")
		sp.E, _ = f.GetFloat64("youngsModulus")
		sp.Nu, _ = f.GetFloat64("nu")
		sp.Strain, _ = f.GetFloat64("strain")
		sp.N, _ = f.GetInt("n")
		sp.Length, _ = f.GetFloat64("length")
		labels, _ := f.GetString("directions")
		if sp.Directions, err = ParseDirections(labels); err != nil {
			return
		}
		if iso, err = moduli.NewIsotropic(sp.E, sp.Nu); err != nil {
			return
		}
		var files []string
		if files, err = WriteIsotropicLoadCases(sp, iso); err != nil {
			return
		}
		for _, file := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(SynthCmd)
	SynthCmd.Flags().StringP("dir", "D", "", "output directory, created if missing")
	SynthCmd.Flags().StringP("prefix", "p", "mks_alphaTi", "file name prefix")
	SynthCmd.Flags().StringP("material", "m", "random", "material label in the file names")
	SynthCmd.Flags().Int("simulation", 0, "simulation index in the file names")
	SynthCmd.Flags().Int("cycle", 1, "load cycle, the file step index is 2*cycle-1")
	SynthCmd.Flags().Float64P("youngsModulus", "E", 110.e3, "Young's modulus")
	SynthCmd.Flags().Float64("nu", 0.32, "Poisson ratio")
	SynthCmd.Flags().Float64("strain", 1.e-3, "applied uniaxial strain")
	SynthCmd.Flags().IntP("n", "n", 4, "cells per side of the cubic grid")
	SynthCmd.Flags().Float64("length", 1, "side length of the cubic grid")
	SynthCmd.Flags().String("directions", "X,Y,Z", "comma separated load directions to write, X or Xdir style")
}

type SynthParameters struct {
	Dir, Prefix, Material string
	Simulation, Cycle     int
	E, Nu, Strain         float64
	N                     int // cells per side
	Length                float64
	// Load directions written, all three when empty
	Directions []moduli.Direction
}

// ParseDirections reads a comma separated list of direction labels.
func ParseDirections(labels string) (dirs []moduli.Direction, err error) {
	for _, label := range strings.Split(labels, ",") {
		if label = strings.TrimSpace(label); label == "" {
			continue
		}
		var dir moduli.Direction
		if dir, err = moduli.NewDirection(label); err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	if len(dirs) == 0 {
		err = fmt.Errorf("no load directions in %q", labels)
	}
	return
}

// WriteIsotropicLoadCases writes the load case file of each direction and returns their paths.
func WriteIsotropicLoadCases(sp *SynthParameters, iso moduli.Isotropic) (files []string, err error) {
	if sp.N < 1 {
		err = fmt.Errorf("grid must have at least one cell per side, got %d", sp.N)
		return
	}
	if sp.Dir != "" {
		if err = os.MkdirAll(sp.Dir, 0755); err != nil {
			return
		}
	}
	p := moduli.Parameters{Dir: sp.Dir, Prefix: sp.Prefix, Material: sp.Material}
	dirs := sp.Directions
	if len(dirs) == 0 {
		dirs = moduli.Directions[:]
	}
	for _, dir := range dirs {
		file := p.FileName(dir, sp.Simulation, sp.Cycle)
		title := fmt.Sprintf("%s load case, E = %g, nu = %g, strain = %g", dir.Label(), iso.E, iso.Nu, sp.Strain)
		files = append(files, file)
		if err = writeLoadCaseFile(file, title, iso.LoadCase(dir, sp.Strain, sp.N*sp.N*sp.N), sp.N, sp.Length); err != nil {
			return
		}
	}
	return
}

func writeLoadCaseFile(path, title string, src moduli.FieldSource, n int, length float64) (err error) {
	var file *os.File
	if file, err = os.Create(filepath.Clean(path)); err != nil {
		return
	}
	if err = WriteLoadCase(file, title, src, n, length); err != nil {
		file.Close()
		return
	}
	return file.Close()
}

// WriteLoadCase writes the stress, strain and plastic strain tensors of src,
// in that order, on an n^3 cell rectilinear grid.
func WriteLoadCase(w io.Writer, title string, src moduli.FieldSource, n int, length float64) (err error) {
	var (
		coords = readfiles.UniformCoordinates(n, length)
		vw     = readfiles.NewVTKWriter(w)
		grain  = make([]int, src.NumElements())
	)
	vw.Header(title, coords, coords, coords, src.NumElements())
	for _, kind := range []moduli.TensorKind{moduli.Stress, moduli.Strain, moduli.PlasticStrain} {
		var c [6][]float64
		for i, comp := range []moduli.Component{moduli.C00, moduli.C01, moduli.C02, moduli.C11, moduli.C12, moduli.C22} {
			if c[i], err = src.TensorComponent(kind, comp); err != nil {
				return
			}
		}
		vw.Tensors(tensorArrayName(kind), c[0], c[1], c[2], c[3], c[4], c[5])
	}
	for i := range grain {
		grain[i] = i + 1
	}
	vw.IntScalars("GrainID", grain)
	return vw.Flush()
}

func tensorArrayName(kind moduli.TensorKind) string {
	return [...]string{"Stress", "Strain", "PlasticStrain"}[kind]
}
