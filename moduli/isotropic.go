package moduli

import (
	"fmt"
)

// Isotropic is a linear elastic isotropic material.
type Isotropic struct {
	E, Nu float64
}

func NewIsotropic(E, nu float64) (iso Isotropic, err error) {
	switch {
	case E <= 0:
		err = fmt.Errorf("young's modulus must be positive, got %g", E)
	case nu <= -1 || nu >= 0.5:
		err = fmt.Errorf("poisson ratio must be in (-1, 0.5), got %g", nu)
	default:
		iso = Isotropic{E: E, Nu: nu}
	}
	return
}

// Lame returns the Lame constants lambda and mu.
func (iso Isotropic) Lame() (lambda, mu float64) {
	lambda = iso.E * iso.Nu / ((1 + iso.Nu) * (1 - 2*iso.Nu))
	mu = iso.E / (2 * (1 + iso.Nu))
	return
}

// UniaxialStrain returns the strain and stress tensors of a uniaxial strain
// eps applied along dir.
func (iso Isotropic) UniaxialStrain(dir Direction, eps float64) (strain, stress [9]float64) {
	lambda, mu := iso.Lame()
	strain[dir.Normal()] = eps
	for _, comp := range NormalComponents {
		stress[comp] = lambda * eps
	}
	stress[dir.Normal()] += 2 * mu * eps
	return
}

// LoadCase builds a uniform FieldSet of numElements elements for a uniaxial
// strain eps along dir. The plastic strain field is zero.
func (iso Isotropic) LoadCase(dir Direction, eps float64, numElements int) (fs *FieldSet) {
	strain, stress := iso.UniaxialStrain(dir, eps)
	fs = NewFieldSet(numElements)
	fs.SetUniform(Stress, stress)
	fs.SetUniform(Strain, strain)
	fs.SetUniform(PlasticStrain, [9]float64{})
	return
}
