package moduli

import (
	"fmt"
	"math"

	"github.com/notargets/gomoduli/utils"
)

// MaxConditionNumber is the largest stiffness condition number accepted before
// the matrix is treated as singular.
const MaxConditionNumber = 1.e12

// Moduli are the directional Young's moduli, in the stress units of the input.
type Moduli struct {
	E11 float64 `json:"E11"`
	E22 float64 `json:"E22"`
	E33 float64 `json:"E33"`
}

func (m Moduli) Values() [NumDirections]float64 { return [NumDirections]float64{m.E11, m.E22, m.E33} }

type Solution struct {
	Stiffness, Compliance utils.Matrix
	ConditionNumber       float64
	Moduli                Moduli
}

// AssembleStiffness builds C[i][j] = stress_i[j][j] / strain_i[i][i], where
// stress_i and strain_i are the averages of load direction i.
func AssembleStiffness(avgs [NumDirections]LoadCaseAverage) (C utils.Matrix, err error) {
	C = utils.NewMatrix(NumDirections, NumDirections)
	for i, avg := range avgs {
		if avg.Direction != Direction(i) {
			err = fmt.Errorf("load case %d holds direction %s, want %s", i, avg.Direction, Direction(i))
			return
		}
		eps := avg.Strain.At(i, i)
		if eps == 0 {
			err = &LoadCaseError{Direction: avg.Direction, Field: fieldName(Strain, avg.Direction.Normal()), Err: ErrZeroStrain}
			return
		}
		for j := 0; j < NumDirections; j++ {
			C.Set(i, j, avg.Stress.At(j, j)/eps)
		}
	}
	C.SetReadOnly("C")
	return
}

// Compliance inverts the stiffness matrix C.
func Compliance(C utils.Matrix) (S utils.Matrix, cond float64, err error) {
	cond = C.ConditionNumber()
	if math.IsNaN(cond) || cond > MaxConditionNumber {
		err = &SingularMatrixError{ConditionNumber: cond}
		return
	}
	if S, err = C.Inverse(); err != nil {
		err = &SingularMatrixError{ConditionNumber: cond, Err: err}
		return
	}
	for _, val := range S.RawMatrix().Data {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			err = &SingularMatrixError{ConditionNumber: cond, Err: fmt.Errorf("inverse has non-finite terms")}
			return
		}
	}
	S.SetReadOnly("S")
	return
}

// DiagonalModuli returns E_ii = 1 / S[i][i].
func DiagonalModuli(S utils.Matrix) (m Moduli, err error) {
	var e [NumDirections]float64
	for i := range e {
		s := S.At(i, i)
		if s == 0 {
			err = fmt.Errorf("%w: S[%d][%d]", ErrDegenerateCompliance, i, i)
			return
		}
		e[i] = 1. / s
	}
	m = Moduli{E11: e[0], E22: e[1], E33: e[2]}
	return
}

// Solve assembles the stiffness matrix, inverts it and extracts the moduli.
func Solve(avgs [NumDirections]LoadCaseAverage) (sol Solution, err error) {
	if sol.Stiffness, err = AssembleStiffness(avgs); err != nil {
		return
	}
	if sol.Compliance, sol.ConditionNumber, err = Compliance(sol.Stiffness); err != nil {
		return
	}
	sol.Moduli, err = DiagonalModuli(sol.Compliance)
	return
}
