package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ConditionNumber is the 2-norm condition number, the ratio of the largest to
// the smallest singular value. A numerically rank deficient matrix returns +Inf.
func (m Matrix) ConditionNumber() float64 {
	var svd mat.SVD
	if !svd.Factorize(m.M, mat.SVDNone) {
		return math.Inf(1)
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return math.Inf(1)
	}
	// Singular values are in descending order
	minVal, maxVal := values[len(values)-1], values[0]
	if maxVal == 0 || minVal <= maxVal*MACHINE_EPS {
		return math.Inf(1)
	}
	return maxVal / minVal
}

// For getting singular values (useful for debugging)
func (m Matrix) SingularValues() (min, max float64) {
	var svd mat.SVD
	if !svd.Factorize(m.M, mat.SVDNone) {
		return 0, math.Inf(1)
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0, math.Inf(1)
	}
	return values[len(values)-1], values[0]
}
