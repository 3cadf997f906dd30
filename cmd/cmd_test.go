package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gomoduli/moduli"
	"github.com/notargets/gomoduli/readfiles"
)

// execute runs the root command with args, starting from default flag values.
func execute(t *testing.T, args ...string) (out, errOut string, err error) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
	var o, e bytes.Buffer
	rootCmd.SetOut(&o)
	rootCmd.SetErr(&e)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return o.String(), e.String(), err
}

// captureStdout returns what f writes to os.Stdout.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	saved := os.Stdout
	os.Stdout = w
	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()
	defer func() { os.Stdout = saved }()
	f()
	os.Stdout = saved
	require.NoError(t, w.Close())
	captured := <-done
	require.NoError(t, r.Close())
	return captured
}

func synthesize(t *testing.T, dir string, args ...string) {
	t.Helper()
	out, _, err := execute(t, append([]string{"synth", "-D", dir, "-n", "2"}, args...)...)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Wrote "))
}

// parseModuli collects the E values printed per unit in text output.
func parseModuli(t *testing.T, out string) (E [][3]float64) {
	t.Helper()
	var cur [3]float64
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		for i, prefix := range []string{"X-direction: E_11 = ", "Y-direction: E_22 = ", "Z-direction: E_33 = "} {
			if strings.HasPrefix(line, prefix) {
				_, err := fmt.Sscan(strings.TrimPrefix(line, prefix), &cur[i])
				require.NoError(t, err)
				if i == 2 {
					E = append(E, cur)
				}
			}
		}
	}
	return
}

func TestSynthThenModuli(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir, "-E", "200e3", "--nu", "0.3")
	for _, dirLabel := range []string{"Xdir", "Ydir", "Zdir"} {
		assert.FileExists(t, filepath.Join(dir, "mks_alphaTi_"+dirLabel+"_IDval_random_sn0_step1.vtk"))
	}

	out, _, err := execute(t, "moduli", "-D", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Simulation: 1\n  Cycle: 1\n    Direction: 1\n    Direction: 2\n    Direction: 3\n"))
	E := parseModuli(t, out)
	require.Len(t, E, 1)
	for _, e := range E[0] {
		assert.InEpsilon(t, 200.e3, e, 1.e-4)
	}
}

func TestModuliMultipleUnits(t *testing.T) {
	dir := t.TempDir()
	for sim := 0; sim < 2; sim++ {
		for cycle := 1; cycle <= 2; cycle++ {
			synthesize(t, dir, "--simulation", fmt.Sprint(sim), "--cycle", fmt.Sprint(cycle),
				"-E", fmt.Sprint(100.e3*float64(1+sim)), "-m", "rolled")
		}
	}
	out, _, err := execute(t, "moduli", "-D", dir, "-m", "rolled", "--simulations", "2", "--cycles", "2")
	require.NoError(t, err)
	E := parseModuli(t, out)
	require.Len(t, E, 4)
	assert.InEpsilon(t, 100.e3, E[1][1], 1.e-4)
	assert.InEpsilon(t, 200.e3, E[3][2], 1.e-4)
	assert.Contains(t, out, "Simulation: 2\n  Cycle: 1\n")
}

func TestModuliMissingDirection(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir, "--simulation", "0")
	// Simulation 1 lacks its Y load case
	out, _, err := execute(t, "synth", "-D", dir, "-n", "2", "--simulation", "1", "--directions", "Xdir, Z")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Wrote "))
	assert.NotContains(t, out, "Ydir")

	out, _, err = execute(t, "moduli", "-D", dir, "--simulations", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "simulation 1, cycle 1")
	assert.Contains(t, err.Error(), "mks_alphaTi_Ydir_IDval_random_sn1_step1.vtk")
	// Simulation 0 is still reported
	assert.Len(t, parseModuli(t, out), 1)
	assert.Contains(t, out, "Simulation: 2\n  Cycle: 1\n")

	_, _, err = execute(t, "synth", "-D", dir, "--directions", "W")
	assert.Error(t, err)
}

func TestParseDirections(t *testing.T) {
	dirs, err := ParseDirections("Z, Xdir,,Y")
	require.NoError(t, err)
	assert.Equal(t, []moduli.Direction{moduli.Z, moduli.X, moduli.Y}, dirs)
	_, err = ParseDirections(" , ")
	assert.Error(t, err)
	_, err = ParseDirections("X,Q")
	assert.Error(t, err)
}

func TestModuliYAML(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir, "-E", "110e3", "--nu", "0.32")
	var (
		out, errOut string
		err         error
	)
	stdout := captureStdout(t, func() {
		out, errOut, err = execute(t, "moduli", "-D", dir, "-f", "yaml", "-v")
	})
	require.NoError(t, err)
	assert.Contains(t, errOut, "Simulation: 1")
	// File reads are reported with the progress, never on the process stdout
	assert.Contains(t, errOut, "Reading VTK file named: ")
	assert.Empty(t, stdout)
	assert.NotContains(t, out, "Reading VTK file")

	var docs []resultDoc
	require.NoError(t, yaml.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.InEpsilon(t, 110.e3, docs[0].Moduli.E33, 1.e-4)
	require.Len(t, docs[0].Stiffness, 3)
	assert.Len(t, docs[0].Compliance[2], 3)
	assert.Contains(t, docs[0].Files[0], "Xdir")
	assert.Equal(t, [3]float64{}, docs[0].StrainShear["Ydir"])
}

func TestModuliVerboseText(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir)
	out, _, err := execute(t, "moduli", "-D", dir, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "Reading VTK file named: ")
	assert.Contains(t, out, "= Material")
	assert.Contains(t, out, "Condition number =")
	assert.Contains(t, out, "C = ")
	assert.Len(t, parseModuli(t, out), 1)
}

func TestModuliParameterPrecedence(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir, "-p", "p1", "-m", "m1")
	input := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(input, []byte("Material: m1\nCycles: 1\n"), 0644))

	// Environment supplies the prefix, the input file overrides the environment material
	t.Setenv("GOMODULI_PREFIX", "p1")
	t.Setenv("GOMODULI_MATERIAL", "bogus")
	out, _, err := execute(t, "moduli", "-D", dir, "-I", input)
	require.NoError(t, err)
	assert.Len(t, parseModuli(t, out), 1)

	// Flags override the input file
	_, _, err = execute(t, "moduli", "-D", dir, "-I", input, "-m", "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "p1_Xdir_IDval_other_sn0_step1.vtk")
}

func TestModuliTensorNames(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir)
	out, _, err := execute(t, "moduli", "-D", dir, "--stressTensor", "Stress", "--strainTensor", "Strain")
	require.NoError(t, err)
	assert.Len(t, parseModuli(t, out), 1)

	_, _, err = execute(t, "moduli", "-D", dir, "--strainTensor", "TotalStrain")
	require.Error(t, err)
	assert.ErrorIs(t, err, moduli.ErrTensorNotFound)
	assert.ErrorIs(t, err, readfiles.ErrFieldNotFound)
	assert.Contains(t, err.Error(), "strain 00")
}

func TestModuliErrors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "moduli", "-D", dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(t, "moduli", "-D", dir, "-f", "xml")
	assert.Error(t, err)

	_, _, err = execute(t, "moduli", "--cycles", "0")
	assert.Error(t, err)

	_, _, err = execute(t, "--profile", "bogus", "version")
	assert.Error(t, err)
}

func TestModuliPerf(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir)
	out, errOut, err := execute(t, "moduli", "-D", dir, "--perf")
	require.NoError(t, err)
	assert.Len(t, parseModuli(t, out), 1)
	assert.True(t, strings.Contains(errOut, "CPU instructions:") || strings.Contains(errOut, "instruction count unavailable"))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	synthesize(t, dir)
	file := filepath.Join(dir, "mks_alphaTi_Xdir_IDval_random_sn0_step1.vtk")
	out, _, err := execute(t, "inspect", file)
	require.NoError(t, err)
	assert.Contains(t, out, "RECTILINEAR_GRID")
	assert.Contains(t, out, "3 x 3 x 3")
	for _, name := range []string{"Stress", "Strain", "PlasticStrain", "GrainID"} {
		assert.Contains(t, out, name)
	}
	// Rows are grouped by kind, scalars before tensors
	assert.Less(t, strings.Index(out, "GrainID"), strings.Index(out, "PlasticStrain"))
	// Cell scalars are summarized per cell, tensors over all components
	assert.Equal(t, []string{"CELL_DATA", "SCALARS", "GrainID", "1", "8", "1", "4.5", "8"}, tableRow(out, "GrainID"))
	assert.Equal(t, []string{"0", "0.000111111", "0.001"}, tableRow(out, "Strain")[5:])

	_, _, err = execute(t, "inspect")
	assert.Error(t, err)
}

// tableRow returns the fields of the inspect table row for the named array.
func tableRow(out, name string) []string {
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 2 && fields[2] == name {
			return fields
		}
	}
	return nil
}

func TestPrintGridStats(t *testing.T) {
	var buf bytes.Buffer
	vw := readfiles.NewVTKWriter(&buf)
	vw.Header("stats", []float64{0, 1, 2}, []float64{0, 1}, []float64{0, 1}, 2)
	vw.Vectors("velocity", [3][]float64{{3, 0}, {4, 0}, {0, 0}})
	vw.Scalars("pressure", []float64{-1, 3})
	require.NoError(t, vw.Flush())
	grid, err := readfiles.ParseVTK(&buf)
	require.NoError(t, err)
	// A scalar array shorter than the cell count has no summary
	grid.CellData.Arrays = append(grid.CellData.Arrays, &readfiles.DataArray{
		Name: "short", Kind: readfiles.ATTR_Scalars, DataType: "float", NumComponents: 1, NumTuples: 1, Values: []float64{7},
	})

	var out bytes.Buffer
	PrintGrid(&out, "stats.vtk", grid)
	assert.Equal(t, []string{"0", "2.5", "5"}, tableRow(out.String(), "velocity")[5:])
	assert.Equal(t, []string{"-1", "1", "3"}, tableRow(out.String(), "pressure")[5:])
	assert.Equal(t, []string{"-", "-", "-"}, tableRow(out.String(), "short")[5:])
	assert.Regexp(t, `Cells:\s+2\n`, out.String())
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gomoduli v"+Version)
}

func TestWriteLoadCase(t *testing.T) {
	iso, err := moduli.NewIsotropic(1.e3, 0.25)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteLoadCase(&buf, "x case", iso.LoadCase(moduli.X, 1.e-2, 8), 2, 1))
	grid, err := readfiles.ParseVTK(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, grid.CellCount())
	assert.Equal(t, []string{"Stress", "Strain", "PlasticStrain"}, grid.CellData.Names(readfiles.ATTR_Tensors))
	strain, err := grid.TensorComponent("Strain", 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.e-2, strain[7], 1.e-12)

	_, err = WriteIsotropicLoadCases(&SynthParameters{N: 0}, iso)
	assert.Error(t, err)
}
