package moduli

import (
	"fmt"
)

// FieldSet is an in-memory FieldSource holding whole 3x3 tensors per element.
type FieldSet struct {
	n       int
	tensors map[TensorKind][]float64 // 9 values per element, row-major
}

func NewFieldSet(numElements int) *FieldSet {
	if numElements < 0 {
		numElements = 0
	}
	return &FieldSet{
		n:       numElements,
		tensors: make(map[TensorKind][]float64),
	}
}

func (fs *FieldSet) NumElements() int { return fs.n }

func (fs *FieldSet) HasTensor(kind TensorKind) bool {
	_, ok := fs.tensors[kind]
	return ok
}

// SetTensor stores one tensor per element.
func (fs *FieldSet) SetTensor(kind TensorKind, values [][9]float64) (err error) {
	if len(values) != fs.n {
		err = fmt.Errorf("%s tensor has %d elements, field set has %d", kind, len(values), fs.n)
		return
	}
	data := make([]float64, 9*fs.n)
	for k, t := range values {
		copy(data[9*k:9*k+9], t[:])
	}
	fs.tensors[kind] = data
	return
}

// SetUniform stores the same tensor for every element.
func (fs *FieldSet) SetUniform(kind TensorKind, t [9]float64) {
	data := make([]float64, 9*fs.n)
	for k := 0; k < fs.n; k++ {
		copy(data[9*k:9*k+9], t[:])
	}
	fs.tensors[kind] = data
}

// SetComponent overwrites one component of a tensor field, creating a zero
// field of that kind first if needed.
func (fs *FieldSet) SetComponent(kind TensorKind, comp Component, values []float64) (err error) {
	if !comp.Valid() {
		err = fmt.Errorf("%w: %d", ErrComponentRange, comp)
		return
	}
	if len(values) != fs.n {
		err = fmt.Errorf("%s component %s has %d elements, field set has %d", kind, comp, len(values), fs.n)
		return
	}
	data, ok := fs.tensors[kind]
	if !ok {
		data = make([]float64, 9*fs.n)
		fs.tensors[kind] = data
	}
	for k, val := range values {
		data[9*k+int(comp)] = val
	}
	return
}

func (fs *FieldSet) TensorComponent(kind TensorKind, comp Component) (v []float64, err error) {
	if !comp.Valid() {
		err = fmt.Errorf("%w: %d", ErrComponentRange, comp)
		return
	}
	data, ok := fs.tensors[kind]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrTensorNotFound, kind)
		return
	}
	v = make([]float64, fs.n)
	for k := range v {
		v[k] = data[9*k+int(comp)]
	}
	return
}
