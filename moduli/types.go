// Package moduli computes directional elastic moduli from volume averaged
// stress and strain fields of three uniaxial strain load cases.
package moduli

import (
	"errors"
	"fmt"
)

// NumDirections is the number of load cases needed to assemble the 3x3 stiffness matrix.
const NumDirections = 3

// Direction is the axis along which a load case applies its uniaxial strain.
type Direction uint8

const (
	X Direction = iota
	Y
	Z
)

var Directions = [NumDirections]Direction{X, Y, Z}

func (d Direction) String() string {
	switch d {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Label is the token used for the direction in load case file names.
func (d Direction) Label() string {
	return d.String() + "dir"
}

func (d Direction) Valid() bool { return d < NumDirections }

// Normal is the row-major component index of the normal term along d.
func (d Direction) Normal() Component { return Component(4 * int(d)) }

func NewDirection(label string) (d Direction, err error) {
	for _, dd := range Directions {
		if label == dd.String() || label == dd.Label() {
			return dd, nil
		}
	}
	err = fmt.Errorf("unknown load direction %q", label)
	return
}

// TensorKind selects which per element tensor field is read from a source.
type TensorKind uint8

const (
	Stress TensorKind = iota
	Strain
	PlasticStrain
)

func (k TensorKind) String() string {
	switch k {
	case Stress:
		return "stress"
	case Strain:
		return "strain"
	case PlasticStrain:
		return "plastic strain"
	}
	return fmt.Sprintf("TensorKind(%d)", uint8(k))
}

// Component indexes a flattened 3x3 tensor in row-major order.
type Component uint8

const (
	C00 Component = iota
	C01
	C02
	C10
	C11
	C12
	C20
	C21
	C22
)

func NewComponent(i, j int) Component { return Component(3*i + j) }

func (c Component) Valid() bool        { return c <= C22 }
func (c Component) RowCol() (i, j int) { return int(c) / 3, int(c) % 3 }
func (c Component) String() string {
	i, j := c.RowCol()
	return fmt.Sprintf("%d%d", i, j)
}

var (
	NormalComponents = [3]Component{C00, C11, C22}
	ShearComponents  = [3]Component{C01, C02, C12}
)

// FieldSource fetches component comp of tensor kind for every element of a
// single load case. Each returned slice has NumElements values.
type FieldSource interface {
	NumElements() int
	TensorComponent(kind TensorKind, comp Component) ([]float64, error)
}

// SourceOpener opens the field source stored at path.
type SourceOpener func(path string) (FieldSource, error)

var (
	ErrEmptyField           = errors.New("empty element array, mean is undefined")
	ErrTensorNotFound       = errors.New("tensor field not found")
	ErrComponentRange       = errors.New("tensor component out of range")
	ErrZeroStrain           = errors.New("zero average normal strain in the loaded direction")
	ErrSingularMatrix       = errors.New("non-invertible stiffness matrix")
	ErrDegenerateCompliance = errors.New("zero diagonal term in compliance matrix")
	ErrDirectionCount       = errors.New("three load directions are required")
)

// SingularMatrixError reports a stiffness matrix that cannot be inverted.
// It matches ErrSingularMatrix with errors.Is.
type SingularMatrixError struct {
	ConditionNumber float64
	Err             error
}

func (e *SingularMatrixError) Error() string {
	msg := fmt.Sprintf("%s (condition number %g)", ErrSingularMatrix, e.ConditionNumber)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SingularMatrixError) Is(target error) bool { return target == ErrSingularMatrix }
func (e *SingularMatrixError) Unwrap() error        { return e.Err }

// LoadCaseError identifies the file, direction and field that failed while a
// load case was read or averaged.
type LoadCaseError struct {
	Path      string
	Direction Direction
	Field     string
	Err       error
}

func (e *LoadCaseError) Error() string {
	msg := fmt.Sprintf("load direction %s", e.Direction)
	if e.Path != "" {
		msg += fmt.Sprintf(", file %s", e.Path)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(", field %s", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

func (e *LoadCaseError) Unwrap() error { return e.Err }
