package InputParameters

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gomoduli/moduli"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Alpha Ti texture study
Directory: runs/alpha
Prefix: mks_alphaTi
Material: rolled
Simulations: 4
Cycles: 2
TensorNames:
  Stress: Stress
  Strain: TotalStrain
`)
	ip := NewModuliParameters()
	require.NoError(t, ip.Parse(fileInput))
	require.NoError(t, ip.Validate())
	assert.Equal(t, "rolled", ip.Material)
	assert.Equal(t, 4, ip.Simulations)
	assert.Equal(t, 2, ip.Cycles)
	// Keys absent from the file keep their defaults
	assert.Equal(t, moduli.NumDirections, ip.Directions)
	assert.Equal(t, 0, ip.FirstSimulation)
	assert.Equal(t, "TotalStrain", ip.TensorName(moduli.Strain))
	assert.Equal(t, "", ip.TensorName(moduli.PlasticStrain))
	ip.Print()
	var buf bytes.Buffer
	ip.Fprint(&buf)
	assert.Contains(t, buf.String(), "[rolled]\t\t= Material\n")
	assert.Contains(t, buf.String(), "TensorNames[Strain] = TotalStrain\n")

	p := ip.ToParameters()
	assert.Equal(t, filepath.Join("runs/alpha", "mks_alphaTi_Zdir_IDval_rolled_sn3_step3.vtk"), p.FileName(moduli.Z, 3, 2))
}

func TestValidate(t *testing.T) {
	ip := NewModuliParameters()
	require.NoError(t, ip.Validate())

	ip.Directions = 2
	assert.ErrorIs(t, ip.Validate(), moduli.ErrDirectionCount)

	ip = NewModuliParameters()
	ip.TensorNames["BackStress"] = "X"
	assert.Error(t, ip.Validate())

	ip = NewModuliParameters()
	ip.Cycles = 0
	assert.Error(t, ip.Validate())

	ip = NewModuliParameters()
	assert.Error(t, ip.Parse([]byte("Simulations: [1, 2]")))
}

func TestTensorKeys(t *testing.T) {
	ip := &ModuliParameters{}
	ip.SetTensorName(moduli.PlasticStrain, "Ep")
	assert.Equal(t, "Ep", ip.TensorName(moduli.PlasticStrain))
	kind, err := TensorKindFromKey("Strain")
	require.NoError(t, err)
	assert.Equal(t, moduli.Strain, kind)
}
