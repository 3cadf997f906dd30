package moduli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
)

// Parameters select the load case files of a run. A Parameters value is built
// once per run and never modified by the pipeline.
type Parameters struct {
	Dir             string
	Prefix          string
	Material        string
	FirstSimulation int
	NumSimulations  int
	NumCycles       int
}

func (p Parameters) Validate() (err error) {
	switch {
	case p.Prefix == "":
		err = fmt.Errorf("file name prefix must be set")
	case p.Material == "":
		err = fmt.Errorf("material label must be set")
	case p.FirstSimulation < 0:
		err = fmt.Errorf("first simulation index must be >= 0, got %d", p.FirstSimulation)
	case p.NumSimulations < 1:
		err = fmt.Errorf("number of simulations must be >= 1, got %d", p.NumSimulations)
	case p.NumCycles < 1:
		err = fmt.Errorf("number of cycles must be >= 1, got %d", p.NumCycles)
	}
	return
}

// StepIndex is the output step holding the peak load of a cycle, counted from 1.
func StepIndex(cycle int) int { return 2*cycle - 1 }

// FileName follows {prefix}_{X|Y|Zdir}_IDval_{material}_sn{sim}_step{2*cycle-1}.vtk
func (p Parameters) FileName(dir Direction, sim, cycle int) string {
	name := fmt.Sprintf("%s_%s_IDval_%s_sn%d_step%d.vtk",
		p.Prefix, dir.Label(), p.Material, sim, StepIndex(cycle))
	if p.Dir != "" {
		return filepath.Join(p.Dir, name)
	}
	return name
}

// Result is the outcome of one (simulation, cycle) unit.
type Result struct {
	Simulation int
	Cycle      int
	Files      [NumDirections]string
	Averages   [NumDirections]LoadCaseAverage
	Solution
}

// Runner drives the pipeline over every (simulation, cycle) unit of Params.
type Runner struct {
	Params Parameters
	Open   SourceOpener
	// Progress receives progress lines, nil is silent
	Progress io.Writer
	// Report is called with each solved unit before the next one starts
	Report func(Result)
}

func NewRunner(p Parameters, open SourceOpener, progress io.Writer) *Runner {
	return &Runner{
		Params:   p,
		Open:     open,
		Progress: progress,
	}
}

func (r *Runner) printf(format string, args ...interface{}) {
	if r.Progress != nil {
		fmt.Fprintf(r.Progress, format, args...)
	}
}

// Run processes every unit. A failing unit is skipped and its error is
// returned joined with the others after all units have been attempted.
func (r *Runner) Run() (results []Result, err error) {
	var (
		p    = r.Params
		errs []error
	)
	if err = p.Validate(); err != nil {
		return
	}
	if r.Open == nil {
		err = fmt.Errorf("no field source opener configured")
		return
	}
	for sim := p.FirstSimulation; sim < p.FirstSimulation+p.NumSimulations; sim++ {
		r.printf("Simulation: %d\n", sim+1)
		for cycle := 1; cycle <= p.NumCycles; cycle++ {
			r.printf("  Cycle: %d\n", cycle)
			res, uerr := r.RunUnit(sim, cycle)
			if uerr != nil {
				errs = append(errs, fmt.Errorf("simulation %d, cycle %d: %w", sim, cycle, uerr))
				continue
			}
			if r.Report != nil {
				r.Report(res)
			}
			results = append(results, res)
		}
	}
	err = errors.Join(errs...)
	return
}

// RunUnit reads the three load directions of one unit and solves for the moduli.
func (r *Runner) RunUnit(sim, cycle int) (res Result, err error) {
	res.Simulation, res.Cycle = sim, cycle
	for i, dir := range Directions {
		r.printf("    Direction: %d\n", i+1)
		path := r.Params.FileName(dir, sim, cycle)
		res.Files[i] = path
		if res.Averages[i], err = r.averageFile(path, dir); err != nil {
			return
		}
	}
	if res.Solution, err = Solve(res.Averages); err != nil {
		var lce *LoadCaseError
		if errors.As(err, &lce) && lce.Direction.Valid() {
			lce.Path = res.Files[lce.Direction]
		}
	}
	return
}

func (r *Runner) averageFile(path string, dir Direction) (avg LoadCaseAverage, err error) {
	var (
		src FieldSource
	)
	if src, err = r.Open(path); err != nil {
		err = &LoadCaseError{Path: path, Direction: dir, Err: err}
		return
	}
	if avg, err = AverageLoadCase(src, dir); err != nil {
		var lce *LoadCaseError
		if errors.As(err, &lce) {
			lce.Path = path
		} else {
			err = &LoadCaseError{Path: path, Direction: dir, Err: err}
		}
	}
	return
}
