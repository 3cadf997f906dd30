package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// VTKWriter writes ASCII legacy VTK rectilinear grids with cell data. The
// first write error is kept and returned by Flush; later writes are no-ops.
type VTKWriter struct {
	w       *bufio.Writer
	err     error
	PerLine int // values per line for scalar and vector data
}

func NewVTKWriter(w io.Writer) *VTKWriter {
	return &VTKWriter{
		w:       bufio.NewWriter(w),
		PerLine: 6,
	}
}

func (vw *VTKWriter) printf(format string, args ...interface{}) {
	if vw.err != nil {
		return
	}
	_, vw.err = fmt.Fprintf(vw.w, format, args...)
}

func (vw *VTKWriter) endOfValue(i, n int) {
	i++
	if i%vw.perLine() == 0 || i == n {
		vw.printf("\n")
	}
}

func (vw *VTKWriter) perLine() int {
	if vw.PerLine < 1 {
		return 1
	}
	return vw.PerLine
}

// Header writes the file preamble, the rectilinear grid coordinates and opens
// the CELL_DATA section for numCells cells.
func (vw *VTKWriter) Header(title string, X, Y, Z []float64, numCells int) {
	vw.printf("# vtk DataFile Version 2.0\n")
	vw.printf("%s\n", strings.ReplaceAll(title, "\n", " "))
	vw.printf("ASCII\n")
	vw.printf("DATASET RECTILINEAR_GRID\n")
	vw.printf("DIMENSIONS %d %d %d\n", len(X), len(Y), len(Z))
	for i, coords := range [3][]float64{X, Y, Z} {
		vw.printf("%c_COORDINATES %d float\n", 'X'+i, len(coords))
		for _, c := range coords {
			vw.printf("% 2.6f ", c)
		}
		vw.printf("\n")
	}
	vw.printf("CELL_DATA %d\n", numCells)
}

func (vw *VTKWriter) Scalars(name string, data []float64) {
	vw.printf("SCALARS %s float 1\n", encodeName(name))
	vw.printf("LOOKUP_TABLE default\n")
	for i, val := range data {
		vw.printf("% 2.6E ", val)
		vw.endOfValue(i, len(data))
	}
}

func (vw *VTKWriter) IntScalars(name string, data []int) {
	vw.printf("SCALARS %s int 1\n", encodeName(name))
	vw.printf("LOOKUP_TABLE default\n")
	for i, val := range data {
		vw.printf("% 5d ", val)
		vw.endOfValue(i, len(data))
	}
}

func (vw *VTKWriter) Vectors(name string, data [3][]float64) {
	vw.printf("VECTORS %s float\n", encodeName(name))
	n := len(data[0])
	for i := 0; i < n; i++ {
		vw.printf(" % +2.6E % +2.6E % +2.6E    ", data[0][i], data[1][i], data[2][i])
		vw.endOfValue(i, n)
	}
}

// Tensors writes symmetric tensors from their six independent components, one tensor per line.
func (vw *VTKWriter) Tensors(name string, d00, d01, d02, d11, d12, d22 []float64) {
	vw.printf("TENSORS %s float\n", encodeName(name))
	for i := range d00 {
		vw.printf(" % +2.6E % +2.6E % +2.6E % +2.6E % +2.6E % +2.6E % +2.6E % +2.6E % +2.6E \n",
			d00[i], d01[i], d02[i],
			d01[i], d11[i], d12[i],
			d02[i], d12[i], d22[i])
	}
}

func (vw *VTKWriter) Flush() error {
	if vw.err != nil {
		return vw.err
	}
	vw.err = vw.w.Flush()
	return vw.err
}

// encodeName percent-escapes name so it is a single token that decodeName restores.
func encodeName(name string) string {
	if name == "" {
		return "data"
	}
	return url.PathEscape(name)
}

// UniformCoordinates returns n+1 equally spaced coordinates spanning [0, length].
func UniformCoordinates(n int, length float64) (c []float64) {
	c = make([]float64, n+1)
	for i := range c {
		c[i] = length * float64(i) / float64(n)
	}
	return
}
