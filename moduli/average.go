package moduli

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gomoduli/utils"
)

// LoadCaseFields holds the per element components read for one load direction.
type LoadCaseFields struct {
	Direction                  Direction
	StressNormal, StrainNormal [3][]float64 // 00, 11, 22
	StressShear, StrainShear   [3][]float64 // 01, 02, 12, optional
}

// LoadCaseAverage holds the volume averaged normal stress and strain of one
// load direction on the diagonals of Stress and Strain. The off-diagonal
// averages are kept in the Shear arrays only; the matrices keep zeros there.
type LoadCaseAverage struct {
	Direction                Direction
	Stress, Strain           utils.Matrix
	StressShear, StrainShear [3]float64 // 01, 02, 12
}

func NewLoadCaseAverage(dir Direction, stressNormal, strainNormal [3]float64) LoadCaseAverage {
	return LoadCaseAverage{
		Direction: dir,
		Stress:    utils.NewDiagMatrix(stressNormal[:]),
		Strain:    utils.NewDiagMatrix(strainNormal[:]),
	}
}

// Mean is the arithmetic mean of x. An empty x is an error instead of NaN.
func Mean(x []float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptyField
	}
	return stat.Mean(x, nil), nil
}

// ReadLoadCase fetches the normal and shear components of stress and strain
// for direction dir from src.
func ReadLoadCase(src FieldSource, dir Direction) (f LoadCaseFields, err error) {
	f.Direction = dir
	read := func(kind TensorKind, comps [3]Component, dst *[3][]float64) error {
		for i, comp := range comps {
			var v []float64
			if v, err = src.TensorComponent(kind, comp); err != nil {
				return &LoadCaseError{Direction: dir, Field: fieldName(kind, comp), Err: err}
			}
			dst[i] = v
		}
		return nil
	}
	if err = read(Stress, NormalComponents, &f.StressNormal); err != nil {
		return
	}
	if err = read(Strain, NormalComponents, &f.StrainNormal); err != nil {
		return
	}
	if err = read(Stress, ShearComponents, &f.StressShear); err != nil {
		return
	}
	err = read(Strain, ShearComponents, &f.StrainShear)
	return
}

// Average reduces the fields to their arithmetic means.
func (f LoadCaseFields) Average() (avg LoadCaseAverage, err error) {
	var (
		stress, strain [3]float64
	)
	mean := func(x []float64, kind TensorKind, comp Component) (m float64, err error) {
		if m, err = Mean(x); err != nil {
			err = &LoadCaseError{Direction: f.Direction, Field: fieldName(kind, comp), Err: err}
		}
		return
	}
	for i, comp := range NormalComponents {
		if stress[i], err = mean(f.StressNormal[i], Stress, comp); err != nil {
			return
		}
		if strain[i], err = mean(f.StrainNormal[i], Strain, comp); err != nil {
			return
		}
	}
	avg = NewLoadCaseAverage(f.Direction, stress, strain)
	for i, comp := range ShearComponents {
		if f.StressShear[i] != nil {
			if avg.StressShear[i], err = mean(f.StressShear[i], Stress, comp); err != nil {
				return
			}
		}
		if f.StrainShear[i] != nil {
			if avg.StrainShear[i], err = mean(f.StrainShear[i], Strain, comp); err != nil {
				return
			}
		}
	}
	return
}

// AverageLoadCase reads and averages one load direction.
func AverageLoadCase(src FieldSource, dir Direction) (avg LoadCaseAverage, err error) {
	var f LoadCaseFields
	if f, err = ReadLoadCase(src, dir); err != nil {
		return
	}
	return f.Average()
}

func fieldName(kind TensorKind, comp Component) string {
	return fmt.Sprintf("%s %s", kind, comp)
}
