package InputParameters

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/gomoduli/moduli"
)

// Parameters obtained from the YAML input file
type ModuliParameters struct {
	Title           string            `yaml:"Title"`
	Directory       string            `yaml:"Directory"`
	Prefix          string            `yaml:"Prefix"`
	Material        string            `yaml:"Material"`
	FirstSimulation int               `yaml:"FirstSimulation"`
	Simulations     int               `yaml:"Simulations"`
	Cycles          int               `yaml:"Cycles"`
	Directions      int               `yaml:"Directions"`
	TensorNames     map[string]string `yaml:"TensorNames"` // Keyed by Stress, Strain, PlasticStrain
}

// NewModuliParameters returns the defaults: a single simulation and cycle of
// the three load directions.
func NewModuliParameters() *ModuliParameters {
	return &ModuliParameters{
		Title:       "Elastic Moduli",
		Prefix:      "mks_alphaTi",
		Material:    "random",
		Simulations: 1,
		Cycles:      1,
		Directions:  moduli.NumDirections,
		TensorNames: make(map[string]string),
	}
}

// Parse overlays the YAML document onto ip, keys absent from data keep their values.
func (ip *ModuliParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *ModuliParameters) Validate() (err error) {
	if ip.Directions != moduli.NumDirections {
		return fmt.Errorf("%w, got %d", moduli.ErrDirectionCount, ip.Directions)
	}
	for key := range ip.TensorNames {
		if _, err = TensorKindFromKey(key); err != nil {
			return
		}
	}
	return ip.ToParameters().Validate()
}

func (ip *ModuliParameters) ToParameters() moduli.Parameters {
	return moduli.Parameters{
		Dir:             ip.Directory,
		Prefix:          ip.Prefix,
		Material:        ip.Material,
		FirstSimulation: ip.FirstSimulation,
		NumSimulations:  ip.Simulations,
		NumCycles:       ip.Cycles,
	}
}

// TensorName is the configured array name for kind, empty when the tensor is
// selected by its position in the file.
func (ip *ModuliParameters) TensorName(kind moduli.TensorKind) string {
	return ip.TensorNames[TensorKey(kind)]
}

func (ip *ModuliParameters) SetTensorName(kind moduli.TensorKind, name string) {
	if ip.TensorNames == nil {
		ip.TensorNames = make(map[string]string)
	}
	ip.TensorNames[TensorKey(kind)] = name
}

func TensorKey(kind moduli.TensorKind) string {
	return [...]string{"Stress", "Strain", "PlasticStrain"}[kind]
}

func TensorKindFromKey(key string) (kind moduli.TensorKind, err error) {
	for _, k := range []moduli.TensorKind{moduli.Stress, moduli.Strain, moduli.PlasticStrain} {
		if TensorKey(k) == key {
			return k, nil
		}
	}
	err = fmt.Errorf("unknown tensor key %q in TensorNames, use Stress, Strain or PlasticStrain", key)
	return
}

func (ip *ModuliParameters) Print() { ip.Fprint(os.Stdout) }

func (ip *ModuliParameters) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%s]\t\t= Directory\n", ip.Directory)
	fmt.Fprintf(w, "[%s]\t\t= Prefix\n", ip.Prefix)
	fmt.Fprintf(w, "[%s]\t\t= Material\n", ip.Material)
	fmt.Fprintf(w, "[%d]\t\t\t= First Simulation\n", ip.FirstSimulation)
	fmt.Fprintf(w, "[%d]\t\t\t= Simulations\n", ip.Simulations)
	fmt.Fprintf(w, "[%d]\t\t\t= Cycles\n", ip.Cycles)
	fmt.Fprintf(w, "[%d]\t\t\t= Directions\n", ip.Directions)
	keys := make([]string, len(ip.TensorNames))
	i := 0
	for k := range ip.TensorNames {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "TensorNames[%s] = %v\n", key, ip.TensorNames[key])
	}
}
