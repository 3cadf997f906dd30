package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix(t *testing.T) {
	// Copy does not alias
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		A := M.Copy()
		A.Set(0, 0, 10)
		assert.Equal(t, 1., M.At(0, 0))
		assert.Equal(t, 10., A.At(0, 0))
		assert.Equal(t, 6., A.At(1, 2))
	}
	// Negative indices count from the end
	{
		M := NewMatrix(2, 2)
		M.Set(-1, -1, 7)
		assert.Equal(t, 7., M.At(1, 1))
	}
	// Diag
	{
		M := NewDiagMatrix([]float64{1, 2, 3})
		assert.Equal(t, []float64{1, 2, 3}, M.Diag())
		assert.Equal(t, 0., M.At(0, 2))
	}
	// Read only
	{
		M := NewMatrix(2, 2)
		M.SetReadOnly("M")
		assert.Equal(t, "M", M.Name())
		assert.Panics(t, func() { M.Set(0, 0, 1) })
	}
}

func TestMatrixInverse(t *testing.T) {
	{ // Diagonal inverts element-wise
		M := NewDiagMatrix([]float64{2, 4, 8})
		R, err := M.Inverse()
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.125}, R.Diag(), NODETOL)
		assert.Equal(t, 0., R.At(0, 1))
	}
	{ // General 3x3, check M * Minv = I
		M := NewMatrix(3, 3, []float64{
			4, 1, 2,
			1, 5, 1,
			2, 1, 6,
		})
		R, err := M.Inverse()
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				var sum float64
				for k := 0; k < 3; k++ {
					sum += M.At(i, k) * R.At(k, j)
				}
				if i == j {
					assert.InDelta(t, 1., sum, NODETOL)
				} else {
					assert.InDelta(t, 0., sum, NODETOL)
				}
			}
		}
		// Receiver unchanged
		assert.Equal(t, 4., M.At(0, 0))
	}
	{ // Singular
		M := NewMatrix(3, 3, []float64{
			1, 2, 3,
			1, 2, 3,
			4, 5, 7,
		})
		_, err := M.Inverse()
		assert.Error(t, err)
	}
	{ // Not square
		_, err := NewMatrix(2, 3).Inverse()
		assert.Error(t, err)
	}
}

func TestConditionNumber(t *testing.T) {
	assert.InDelta(t, 1., NewDiagMatrix([]float64{3, 3, 3}).ConditionNumber(), NODETOL)
	assert.InDelta(t, 100., NewDiagMatrix([]float64{1, 100, 10}).ConditionNumber(), 1.e-9)
	assert.True(t, math.IsInf(NewDiagMatrix([]float64{1, 0, 1}).ConditionNumber(), 1))
	minSV, maxSV := NewDiagMatrix([]float64{2, 5}).SingularValues()
	assert.InDelta(t, 2., minSV, NODETOL)
	assert.InDelta(t, 5., maxSV, NODETOL)
}

func TestCountInstructions(t *testing.T) {
	var calls int
	_, _, err := CountInstructions(func() error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
