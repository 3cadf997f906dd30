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
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/gomoduli/InputParameters"
	"github.com/notargets/gomoduli/moduli"
	"github.com/notargets/gomoduli/readfiles"
	"github.com/notargets/gomoduli/utils"
)

// ModuliCmd represents the moduli command
var ModuliCmd = &cobra.Command{
	Use:   "moduli",
	Short: "Compute directional elastic moduli from load case VTK files",
	Long: `
Reads the X, Y and Z load case files of every simulation and cycle, volume
averages the element stress and strain tensors and inverts the assembled
stiffness matrix for E_11, E_22 and E_33.

Files are named {prefix}_{X|Y|Z}dir_IDval_{material}_sn{simulation}_step{2*cycle-1}.vtk

gomoduli moduli -D results -p mks_alphaTi -m random --simulations 4 --cycles 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			ip      *InputParameters.ModuliParameters
			format  string
			verbose bool
			perf    bool
		)
		if ip, err = moduliParameters(cmd); err != nil {
			return
		}
		format, _ = cmd.Flags().GetString("format")
		verbose, _ = cmd.Flags().GetBool("verbose")
		perf, _ = cmd.Flags().GetBool("perf")
		if format != "text" && format != "yaml" {
			return fmt.Errorf("unknown output format %q, use text or yaml", format)
		}
		if verbose && format == "text" {
			ip.Fprint(cmd.OutOrStdout())
		}
		return RunModuli(ip, format, verbose, perf, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(ModuliCmd)
	def := InputParameters.NewModuliParameters()
	ModuliCmd.Flags().StringP("dir", "D", def.Directory, "directory holding the load case VTK files")
	ModuliCmd.Flags().StringP("prefix", "p", def.Prefix, "file name prefix")
	ModuliCmd.Flags().StringP("material", "m", def.Material, "material label in the file names")
	ModuliCmd.Flags().Int("simulations", def.Simulations, "number of simulations")
	ModuliCmd.Flags().Int("firstSimulation", def.FirstSimulation, "index of the first simulation in the file names")
	ModuliCmd.Flags().Int("cycles", def.Cycles, "number of load cycles per simulation")
	ModuliCmd.Flags().String("stressTensor", "", "name of the stress tensor array (default: first tensor)")
	ModuliCmd.Flags().String("strainTensor", "", "name of the strain tensor array (default: second tensor)")
	ModuliCmd.Flags().String("plasticStrainTensor", "", "name of the plastic strain tensor array (default: third tensor)")
	ModuliCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file for run parameters like:\n\t- Directory\n\t- Prefix, Material\n\t- Simulations, Cycles")
	ModuliCmd.Flags().StringP("format", "f", "text", "output format: text or yaml")
	ModuliCmd.Flags().BoolP("verbose", "v", false, "print stiffness, compliance and shear averages")
}

// moduliSetting copies the value keyed by its flag name from a viper instance into the parameters.
type moduliSetting struct {
	flag string
	set  func(ip *InputParameters.ModuliParameters, v *viper.Viper, key string)
}

func stringSetting(flag string, field func(*InputParameters.ModuliParameters) *string) moduliSetting {
	return moduliSetting{flag: flag, set: func(ip *InputParameters.ModuliParameters, v *viper.Viper, key string) {
		*field(ip) = v.GetString(key)
	}}
}

func intSetting(flag string, field func(*InputParameters.ModuliParameters) *int) moduliSetting {
	return moduliSetting{flag: flag, set: func(ip *InputParameters.ModuliParameters, v *viper.Viper, key string) {
		*field(ip) = v.GetInt(key)
	}}
}

func tensorSetting(flag string, kind moduli.TensorKind) moduliSetting {
	return moduliSetting{flag: flag, set: func(ip *InputParameters.ModuliParameters, v *viper.Viper, key string) {
		ip.SetTensorName(kind, v.GetString(key))
	}}
}

var moduliSettings = []moduliSetting{
	stringSetting("dir", func(ip *InputParameters.ModuliParameters) *string { return &ip.Directory }),
	stringSetting("prefix", func(ip *InputParameters.ModuliParameters) *string { return &ip.Prefix }),
	stringSetting("material", func(ip *InputParameters.ModuliParameters) *string { return &ip.Material }),
	intSetting("simulations", func(ip *InputParameters.ModuliParameters) *int { return &ip.Simulations }),
	intSetting("firstSimulation", func(ip *InputParameters.ModuliParameters) *int { return &ip.FirstSimulation }),
	intSetting("cycles", func(ip *InputParameters.ModuliParameters) *int { return &ip.Cycles }),
	tensorSetting("stressTensor", moduli.Stress),
	tensorSetting("strainTensor", moduli.Strain),
	tensorSetting("plasticStrainTensor", moduli.PlasticStrain),
}

// moduliParameters layers the run parameters: defaults, then config file and
// GOMODULI_* environment, then the -I input file, then flags set on the command line.
func moduliParameters(cmd *cobra.Command) (ip *InputParameters.ModuliParameters, err error) {
	var (
		fileName string
		data     []byte
		flags    = viper.New()
	)
	ip = InputParameters.NewModuliParameters()
	for _, s := range moduliSettings {
		if viper.IsSet(s.flag) {
			s.set(ip, viper.GetViper(), s.flag)
		}
	}
	if fileName, err = cmd.Flags().GetString("inputParametersFile"); err != nil {
		return
	}
	if len(fileName) != 0 {
		if data, err = ioutil.ReadFile(fileName); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			err = fmt.Errorf("unable to parse input parameters file %s: %w", fileName, err)
			return
		}
	}
	for _, s := range moduliSettings {
		if cmd.Flags().Changed(s.flag) {
			if err = flags.BindPFlag(s.flag, cmd.Flags().Lookup(s.flag)); err != nil {
				return
			}
			s.set(ip, flags, s.flag)
		}
	}
	err = ip.Validate()
	return
}

// RunModuli processes every unit named by ip and writes the moduli to out.
// Progress goes to out for text output and to errOut for YAML output.
func RunModuli(ip *InputParameters.ModuliParameters, format string, verbose, perf bool, out, errOut io.Writer) (err error) {
	var (
		progress = out
		results  []moduli.Result
		names    [3]string
	)
	if format == "yaml" {
		progress = errOut
	}
	for _, kind := range []moduli.TensorKind{moduli.Stress, moduli.Strain, moduli.PlasticStrain} {
		names[kind] = ip.TensorName(kind)
	}
	var readLog io.Writer
	if verbose {
		readLog = progress
	}
	runner := moduli.NewRunner(ip.ToParameters(), vtkOpener(names, readLog), progress)
	if format == "text" {
		runner.Report = func(res moduli.Result) { printResult(out, res, verbose) }
	}
	run := func() (err error) {
		results, err = runner.Run()
		return
	}
	if perf {
		var (
			instructions uint64
			perfErr      error
		)
		instructions, perfErr, err = utils.CountInstructions(run)
		if perfErr != nil {
			fmt.Fprintf(errOut, "instruction count unavailable: %v\n", perfErr)
		} else {
			fmt.Fprintf(errOut, "CPU instructions: %d\n", instructions)
		}
	} else {
		err = run()
	}
	if format == "yaml" && len(results) != 0 {
		var (
			data []byte
			werr error
		)
		if data, werr = yaml.Marshal(newResultDocs(results, verbose)); werr == nil {
			_, werr = out.Write(data)
		}
		err = errors.Join(err, werr)
	}
	return
}

func printResult(w io.Writer, res moduli.Result, verbose bool) {
	if verbose {
		fmt.Fprintf(w, "    C = %v\n", res.Stiffness)
		fmt.Fprintf(w, "    S = %v\n", res.Compliance)
		minSV, maxSV := res.Stiffness.SingularValues()
		fmt.Fprintf(w, "    Condition number = %8.5g, singular values [%8.5g, %8.5g]\n", res.ConditionNumber, minSV, maxSV)
		for i, avg := range res.Averages {
			fmt.Fprintf(w, "    %s shear stress (01, 02, 12) = %v, shear strain = %v\n",
				moduli.Directions[i], avg.StressShear, avg.StrainShear)
		}
	}
	fmt.Fprintf(w, "    X-direction: E_11 = %v\n", res.Moduli.E11)
	fmt.Fprintf(w, "    Y-direction: E_22 = %v\n", res.Moduli.E22)
	fmt.Fprintf(w, "    Z-direction: E_33 = %v\n", res.Moduli.E33)
}

type resultDoc struct {
	Simulation      int                   `json:"Simulation"`
	Cycle           int                   `json:"Cycle"`
	Files           [3]string             `json:"Files"`
	Moduli          moduli.Moduli         `json:"Moduli"`
	ConditionNumber float64               `json:"ConditionNumber"`
	Stiffness       [][]float64           `json:"Stiffness,omitempty"`
	Compliance      [][]float64           `json:"Compliance,omitempty"`
	StressShear     map[string][3]float64 `json:"StressShear,omitempty"`
	StrainShear     map[string][3]float64 `json:"StrainShear,omitempty"`
}

func newResultDocs(results []moduli.Result, verbose bool) (docs []resultDoc) {
	docs = make([]resultDoc, len(results))
	for i, res := range results {
		doc := resultDoc{
			Simulation:      res.Simulation,
			Cycle:           res.Cycle,
			Files:           res.Files,
			Moduli:          res.Moduli,
			ConditionNumber: res.ConditionNumber,
		}
		if verbose {
			doc.Stiffness = rows(res.Stiffness)
			doc.Compliance = rows(res.Compliance)
			doc.StressShear = make(map[string][3]float64)
			doc.StrainShear = make(map[string][3]float64)
			for j, avg := range res.Averages {
				doc.StressShear[moduli.Directions[j].Label()] = avg.StressShear
				doc.StrainShear[moduli.Directions[j].Label()] = avg.StrainShear
			}
		}
		docs[i] = doc
	}
	return
}

func rows(m utils.Matrix) (r [][]float64) {
	nr, nc := m.Dims()
	r = make([][]float64, nr)
	for i := range r {
		r[i] = make([]float64, nc)
		for j := range r[i] {
			r[i][j] = m.At(i, j)
		}
	}
	return
}

// vtkSource serves the load case tensors of a VTK grid, selected by name or,
// for an empty name, by their position among the cell tensors.
type vtkSource struct {
	grid  *readfiles.VTKGrid
	names [3]string
}

// vtkOpener reads grids, reporting each file read to readLog unless it is nil.
func vtkOpener(names [3]string, readLog io.Writer) moduli.SourceOpener {
	return func(path string) (src moduli.FieldSource, err error) {
		var grid *readfiles.VTKGrid
		if grid, err = readfiles.OpenVTK(path, readLog); err != nil {
			return
		}
		src = &vtkSource{grid: grid, names: names}
		return
	}
}

func (vs *vtkSource) NumElements() int { return vs.grid.CellCount() }

func (vs *vtkSource) TensorComponent(kind moduli.TensorKind, comp moduli.Component) (v []float64, err error) {
	if name := vs.names[kind]; name != "" {
		v, err = vs.grid.TensorComponent(name, int(comp))
	} else {
		v, err = vs.grid.NthTensorComponent(int(kind), int(comp))
	}
	if errors.Is(err, readfiles.ErrFieldNotFound) {
		err = fmt.Errorf("%w: %w", moduli.ErrTensorNotFound, err)
	}
	return
}
