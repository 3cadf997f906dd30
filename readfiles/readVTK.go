package readfiles

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Legacy VTK file format:
// https://vtk.org/wp-content/uploads/2015/04/file-formats.pdf

// MaxValues bounds the number of values a single section may declare.
const MaxValues = 1 << 30

// readChunk is the number of values allocated ahead of the data actually read.
const readChunk = 1 << 16

type VTKEncoding uint8

const (
	VTK_ASCII VTKEncoding = iota
	VTK_BINARY
)

func (e VTKEncoding) String() string {
	return [...]string{"ASCII", "BINARY"}[e]
}

type AttributeKind uint8

const (
	ATTR_Scalars AttributeKind = iota
	ATTR_ColorScalars
	ATTR_LookupTable
	ATTR_Vectors
	ATTR_Normals
	ATTR_TextureCoordinates
	ATTR_Tensors
	ATTR_Field
)

func (k AttributeKind) String() string {
	return [...]string{"SCALARS", "COLOR_SCALARS", "LOOKUP_TABLE", "VECTORS", "NORMALS",
		"TEXTURE_COORDINATES", "TENSORS", "FIELD"}[k]
}

var AttributeKinds = []AttributeKind{
	ATTR_Scalars, ATTR_ColorScalars, ATTR_LookupTable, ATTR_Vectors,
	ATTR_Normals, ATTR_TextureCoordinates, ATTR_Tensors, ATTR_Field,
}

var ErrFieldNotFound = errors.New("field not found")

// ParseError locates a malformed legacy VTK file by line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// DataArray is one named attribute, stored as NumTuples x NumComponents values.
type DataArray struct {
	Name          string
	Kind          AttributeKind
	DataType      string
	NumComponents int
	NumTuples     int
	Values        []float64
}

// Component extracts component comp of the first n tuples.
func (da *DataArray) Component(comp, n int) (v []float64, err error) {
	if comp < 0 || comp >= da.NumComponents {
		err = fmt.Errorf("component %d out of range for %s %q with %d components",
			comp, da.Kind, da.Name, da.NumComponents)
		return
	}
	if n < 0 || n > da.NumTuples {
		err = fmt.Errorf("%s %q has %d tuples, need %d", da.Kind, da.Name, da.NumTuples, n)
		return
	}
	v = make([]float64, n)
	for i := range v {
		v[i] = da.Values[i*da.NumComponents+comp]
	}
	return
}

// Attributes holds the arrays of a CELL_DATA or POINT_DATA section in file order.
type Attributes struct {
	NumTuples int
	Arrays    []*DataArray
}

// Find returns the named array of kind. An empty name selects the first one.
func (a *Attributes) Find(kind AttributeKind, name string) (*DataArray, error) {
	if a != nil {
		for _, da := range a.Arrays {
			if da.Kind == kind && (name == "" || da.Name == name) {
				return da, nil
			}
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no %s arrays", ErrFieldNotFound, kind)
	}
	return nil, fmt.Errorf("%w: %s %q", ErrFieldNotFound, kind, name)
}

// Nth returns the n-th array of kind, counted from 0 in file order.
func (a *Attributes) Nth(kind AttributeKind, n int) (*DataArray, error) {
	var count int
	if a != nil {
		for _, da := range a.Arrays {
			if da.Kind != kind {
				continue
			}
			if count == n {
				return da, nil
			}
			count++
		}
	}
	return nil, fmt.Errorf("%w: %s array number %d of %d", ErrFieldNotFound, kind, n+1, count)
}

func (a *Attributes) Names(kind AttributeKind) (names []string) {
	if a == nil {
		return
	}
	for _, da := range a.Arrays {
		if da.Kind == kind {
			names = append(names, da.Name)
		}
	}
	return
}

type VTKGrid struct {
	Version     string
	Title       string
	Encoding    VTKEncoding
	Dataset     string
	Dims        [3]int
	Origin      [3]float64
	Spacing     [3]float64
	Coordinates [3][]float64 // RECTILINEAR_GRID
	Points      []float64    // STRUCTURED_GRID, 3 per point
	FieldData   *Attributes  // dataset level FIELD arrays
	CellData    *Attributes
	PointData   *Attributes
}

// CellCount is the number of cells implied by the grid dimensions.
func (g *VTKGrid) CellCount() int {
	n := 1
	for _, d := range g.Dims {
		if d < 2 {
			return 0
		}
		n *= d - 1
	}
	return n
}

func (g *VTKGrid) PointCount() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Tensor returns the named cell tensor array, or the first when name is empty.
func (g *VTKGrid) Tensor(name string) (*DataArray, error) {
	return g.CellData.Find(ATTR_Tensors, name)
}

// NthTensor returns the n-th cell tensor array in file order.
func (g *VTKGrid) NthTensor(n int) (*DataArray, error) {
	return g.CellData.Nth(ATTR_Tensors, n)
}

// TensorComponent returns row-major component comp of the named cell tensor for every cell.
func (g *VTKGrid) TensorComponent(name string, comp int) ([]float64, error) {
	da, err := g.Tensor(name)
	if err != nil {
		return nil, err
	}
	return da.Component(comp, g.CellCount())
}

func (g *VTKGrid) NthTensorComponent(n, comp int) ([]float64, error) {
	da, err := g.NthTensor(n)
	if err != nil {
		return nil, err
	}
	return da.Component(comp, g.CellCount())
}

// VectorField returns the named cell vector array as three component arrays.
func (g *VTKGrid) VectorField(name string) (v [3][]float64, err error) {
	var da *DataArray
	if da, err = g.CellData.Find(ATTR_Vectors, name); err != nil {
		return
	}
	for i := range v {
		if v[i], err = da.Component(i, g.CellCount()); err != nil {
			return
		}
	}
	return
}

// ScalarField returns the first component of the named cell scalar array.
func (g *VTKGrid) ScalarField(name string) (v []float64, err error) {
	var da *DataArray
	if da, err = g.CellData.Find(ATTR_Scalars, name); err != nil {
		return
	}
	return da.Component(0, g.CellCount())
}

// ReadVTK reads filename, printing progress to stdout when verbose.
func ReadVTK(filename string, verbose bool) (grid *VTKGrid, err error) {
	var progress io.Writer
	if verbose {
		progress = os.Stdout
	}
	return OpenVTK(filename, progress)
}

// OpenVTK reads filename and reports progress to the progress writer, nil is silent.
func OpenVTK(filename string, progress io.Writer) (grid *VTKGrid, err error) {
	var (
		file *os.File
	)
	if progress != nil {
		fmt.Fprintf(progress, "Reading VTK file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		return
	}
	defer file.Close()
	if grid, err = ParseVTK(file); err != nil {
		err = fmt.Errorf("unable to read VTK file %s: %w", filename, err)
		return
	}
	if progress != nil {
		fmt.Fprintf(progress, "Read %s %s with dimensions %v, %d cells, tensors %v\n",
			grid.Encoding, grid.Dataset, grid.Dims, grid.CellCount(), grid.CellData.Names(ATTR_Tensors))
	}
	return
}

// ParseVTK reads a legacy VTK structured dataset from r.
func ParseVTK(r io.Reader) (grid *VTKGrid, err error) {
	p := &vtkParser{
		r:    bufio.NewReader(r),
		grid: &VTKGrid{},
	}
	if err = p.readPreamble(); err != nil {
		return
	}
	for {
		var fields []string
		if fields, err = p.nextHeader(); err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			return
		}
		if err = p.section(fields); err != nil {
			return
		}
	}
	if p.grid.Dataset == "" {
		err = p.errorf("missing DATASET section")
		return
	}
	grid = p.grid
	return
}

type vtkParser struct {
	r       *bufio.Reader
	line    int
	pending []string // tokens of a header line pushed back into the data stream
	grid    *VTKGrid
	current *Attributes
}

func (p *vtkParser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *vtkParser) readLine() (line string, err error) {
	line, err = p.r.ReadString('\n')
	if err == io.EOF && len(line) != 0 {
		err = nil
	}
	if err != nil {
		return
	}
	p.line++
	line = strings.TrimRight(line, "\r\n")
	return
}

// nextHeader returns the fields of the next non blank line.
func (p *vtkParser) nextHeader() (fields []string, err error) {
	if len(p.pending) != 0 {
		fields, p.pending = p.pending, nil
		return
	}
	for {
		var line string
		if line, err = p.readLine(); err != nil {
			return
		}
		if fields = strings.Fields(line); len(fields) != 0 {
			return
		}
	}
}

func (p *vtkParser) readPreamble() (err error) {
	var line string
	if line, err = p.readLine(); err != nil {
		return p.errorf("missing VTK header: %v", err)
	}
	const magic = "# vtk DataFile Version"
	if !strings.HasPrefix(strings.TrimSpace(line), magic) {
		return p.errorf("not a legacy VTK file, header is %q", line)
	}
	p.grid.Version = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), magic))
	if p.grid.Title, err = p.readLine(); err != nil {
		return p.errorf("missing title line: %v", err)
	}
	var fields []string
	if fields, err = p.nextHeader(); err != nil {
		return p.errorf("missing file encoding: %v", err)
	}
	switch strings.ToUpper(fields[0]) {
	case "ASCII":
		p.grid.Encoding = VTK_ASCII
	case "BINARY":
		p.grid.Encoding = VTK_BINARY
	default:
		return p.errorf("unknown file encoding %q", fields[0])
	}
	return
}

func (p *vtkParser) section(fields []string) (err error) {
	var (
		g       = p.grid
		keyword = strings.ToUpper(fields[0])
		args    = fields[1:]
	)
	need := func(n int) error {
		if len(args) < n {
			return p.errorf("%s needs %d arguments, got %d", keyword, n, len(args))
		}
		return nil
	}
	switch keyword {
	case "DATASET":
		if err = need(1); err != nil {
			return
		}
		g.Dataset = strings.ToUpper(args[0])
		switch g.Dataset {
		case "STRUCTURED_POINTS", "STRUCTURED_GRID", "RECTILINEAR_GRID":
		default:
			return p.errorf("unsupported dataset %s", g.Dataset)
		}
	case "DIMENSIONS":
		if err = need(3); err != nil {
			return
		}
		for i := range g.Dims {
			if g.Dims[i], err = p.atoi(args[i]); err != nil {
				return
			}
			if g.Dims[i] < 0 {
				return p.errorf("negative dimension %d", g.Dims[i])
			}
		}
		var n int
		if n, err = p.count(g.Dims[0], g.Dims[1]); err != nil {
			return
		}
		if _, err = p.count(n, g.Dims[2]); err != nil {
			return
		}
	case "ORIGIN", "SPACING", "ASPECT_RATIO":
		if err = need(3); err != nil {
			return
		}
		dst := &g.Origin
		if keyword != "ORIGIN" {
			dst = &g.Spacing
		}
		for i := range dst {
			if dst[i], err = p.atof(args[i]); err != nil {
				return
			}
		}
	case "X_COORDINATES", "Y_COORDINATES", "Z_COORDINATES":
		if err = need(2); err != nil {
			return
		}
		var n int
		if n, err = p.atoi(args[0]); err != nil {
			return
		}
		ind := int(keyword[0] - 'X')
		g.Coordinates[ind], err = p.readValues(n, args[1])
	case "POINTS":
		if err = need(2); err != nil {
			return
		}
		var n int
		if n, err = p.atoi(args[0]); err != nil {
			return
		}
		if n, err = p.count(3, n); err != nil {
			return
		}
		g.Points, err = p.readValues(n, args[1])
	case "CELL_DATA", "POINT_DATA":
		if err = need(1); err != nil {
			return
		}
		var n int
		if n, err = p.atoi(args[0]); err != nil {
			return
		}
		p.current = &Attributes{NumTuples: n}
		if keyword == "CELL_DATA" {
			g.CellData = p.current
		} else {
			g.PointData = p.current
		}
	case "FIELD":
		if err = need(2); err != nil {
			return
		}
		err = p.fieldArrays(args[0], args[1])
	case "METADATA":
		err = p.skipMetadata()
	default:
		err = p.attribute(keyword, args)
	}
	return
}

func (p *vtkParser) attribute(keyword string, args []string) (err error) {
	var (
		da = &DataArray{}
	)
	switch keyword {
	case "SCALARS", "COLOR_SCALARS", "LOOKUP_TABLE", "VECTORS", "NORMALS",
		"TEXTURE_COORDINATES", "TENSORS", "TENSORS6":
	default:
		return p.errorf("unknown section keyword %s", keyword)
	}
	if p.current == nil {
		return p.errorf("%s before CELL_DATA or POINT_DATA", keyword)
	}
	if len(args) < 2 {
		return p.errorf("%s needs a name and a type", keyword)
	}
	da.Name = decodeName(args[0])
	da.NumTuples = p.current.NumTuples
	switch keyword {
	case "SCALARS":
		da.Kind, da.DataType, da.NumComponents = ATTR_Scalars, args[1], 1
		if len(args) > 2 {
			if da.NumComponents, err = p.atoi(args[2]); err != nil {
				return
			}
		}
		if err = p.lookupTableLine(); err != nil {
			return
		}
	case "COLOR_SCALARS":
		da.Kind, da.DataType = ATTR_ColorScalars, colorType(p.grid.Encoding)
		if da.NumComponents, err = p.atoi(args[1]); err != nil {
			return
		}
	case "LOOKUP_TABLE":
		da.Kind, da.DataType, da.NumComponents = ATTR_LookupTable, colorType(p.grid.Encoding), 4
		if da.NumTuples, err = p.atoi(args[1]); err != nil {
			return
		}
	case "VECTORS", "NORMALS":
		da.Kind, da.DataType, da.NumComponents = ATTR_Vectors, args[1], 3
		if keyword == "NORMALS" {
			da.Kind = ATTR_Normals
		}
	case "TEXTURE_COORDINATES":
		if len(args) < 3 {
			return p.errorf("TEXTURE_COORDINATES needs a name, dimension and type")
		}
		da.Kind, da.DataType = ATTR_TextureCoordinates, args[2]
		if da.NumComponents, err = p.atoi(args[1]); err != nil {
			return
		}
	case "TENSORS", "TENSORS6":
		da.Kind, da.DataType, da.NumComponents = ATTR_Tensors, args[1], 9
	}
	if da.NumComponents < 1 {
		return p.errorf("%s %q has %d components", keyword, da.Name, da.NumComponents)
	}
	var n int
	if keyword == "TENSORS6" {
		var six []float64
		if n, err = p.count(6, da.NumTuples); err != nil {
			return
		}
		if six, err = p.readValues(n, da.DataType); err != nil {
			return
		}
		da.Values = expandTensors6(six)
	} else {
		if n, err = p.count(da.NumComponents, da.NumTuples); err != nil {
			return
		}
		if da.Values, err = p.readValues(n, da.DataType); err != nil {
			return
		}
	}
	if da.DataType == "unsigned_char" && (da.Kind == ATTR_ColorScalars || da.Kind == ATTR_LookupTable) {
		for i := range da.Values {
			da.Values[i] /= 255
		}
	}
	p.current.Arrays = append(p.current.Arrays, da)
	return
}

// lookupTableLine consumes the optional LOOKUP_TABLE line that follows SCALARS.
func (p *vtkParser) lookupTableLine() (err error) {
	var fields []string
	if fields, err = p.nextHeader(); err != nil {
		return p.errorf("missing scalar data: %v", err)
	}
	if strings.ToUpper(fields[0]) == "LOOKUP_TABLE" {
		return
	}
	if p.grid.Encoding == VTK_BINARY {
		return p.errorf("expected LOOKUP_TABLE, got %q", fields[0])
	}
	p.pending = fields
	return
}

func (p *vtkParser) fieldArrays(name, count string) (err error) {
	var (
		n     int
		attrs = p.current
	)
	if n, err = p.atoi(count); err != nil {
		return
	}
	if attrs == nil {
		if p.grid.FieldData == nil {
			p.grid.FieldData = &Attributes{}
		}
		attrs = p.grid.FieldData
	}
	for i := 0; i < n; i++ {
		var fields []string
		if fields, err = p.nextHeader(); err != nil {
			return p.errorf("FIELD %s: missing array %d of %d: %v", name, i+1, n, err)
		}
		if strings.ToUpper(fields[0]) == "NULL_ARRAY" {
			continue
		}
		if len(fields) < 4 {
			return p.errorf("FIELD %s: array header needs name, components, tuples and type", name)
		}
		da := &DataArray{Name: decodeName(fields[0]), Kind: ATTR_Field, DataType: fields[3]}
		if da.NumComponents, err = p.atoi(fields[1]); err != nil {
			return
		}
		if da.NumTuples, err = p.atoi(fields[2]); err != nil {
			return
		}
		var nv int
		if nv, err = p.count(da.NumComponents, da.NumTuples); err != nil {
			return
		}
		if da.Values, err = p.readValues(nv, da.DataType); err != nil {
			return
		}
		attrs.Arrays = append(attrs.Arrays, da)
	}
	return
}

// skipMetadata discards a METADATA block, which ends at a blank line.
func (p *vtkParser) skipMetadata() (err error) {
	for {
		var line string
		if line, err = p.readLine(); err != nil {
			if err == io.EOF {
				err = nil
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
	}
}

// count returns components*tuples, rejecting negative counts and totals above MaxValues.
func (p *vtkParser) count(components, tuples int) (n int, err error) {
	if components < 0 || tuples < 0 {
		return 0, p.errorf("negative value count %d x %d", components, tuples)
	}
	if components != 0 && tuples > MaxValues/components {
		return 0, p.errorf("value count %d x %d exceeds %d", components, tuples, MaxValues)
	}
	return components * tuples, nil
}

// readValues reads n values. Storage grows with the data read, so a count
// larger than the input fails at end of file without allocating it.
func (p *vtkParser) readValues(n int, dataType string) (v []float64, err error) {
	if _, err = p.count(1, n); err != nil {
		return
	}
	if p.grid.Encoding == VTK_BINARY {
		return p.readBinary(n, dataType)
	}
	v = make([]float64, 0, min(n, readChunk))
	for i := 0; i < n; i++ {
		var (
			tok string
			val float64
		)
		if tok, err = p.token(); err != nil {
			return nil, p.errorf("expected %d values, got %d: %v", n, i, err)
		}
		if val, err = p.atof(tok); err != nil {
			return
		}
		v = append(v, val)
	}
	return
}

// token returns the next whitespace separated ASCII token.
func (p *vtkParser) token() (tok string, err error) {
	if len(p.pending) != 0 {
		tok, p.pending = p.pending[0], p.pending[1:]
		return
	}
	var (
		sb strings.Builder
		b  byte
	)
	for {
		if b, err = p.r.ReadByte(); err != nil {
			if err == io.EOF && sb.Len() != 0 {
				err = nil
				break
			}
			return
		}
		if isSpace(b) {
			if b == '\n' {
				p.line++
			}
			if sb.Len() != 0 {
				break
			}
			continue
		}
		sb.WriteByte(b)
	}
	tok = sb.String()
	return
}

func (p *vtkParser) readBinary(n int, dataType string) (v []float64, err error) {
	size := binarySize(dataType)
	if size == 0 {
		return nil, p.errorf("unsupported binary data type %q", dataType)
	}
	var (
		be  = binary.BigEndian
		buf = make([]byte, min(n, readChunk)*size)
	)
	v = make([]float64, 0, min(n, readChunk))
	for start := 0; start < n; start += readChunk {
		chunk := min(n-start, readChunk)
		if _, err = io.ReadFull(p.r, buf[:chunk*size]); err != nil {
			return nil, p.errorf("expected %d binary %s values, got %d: %v", n, dataType, start, err)
		}
		for i := 0; i < chunk; i++ {
			v = append(v, decodeBinary(buf[i*size:(i+1)*size], dataType, be))
		}
	}
	return
}

// decodeBinary converts one big-endian value of dataType.
func decodeBinary(b []byte, dataType string, be binary.ByteOrder) float64 {
	switch strings.ToLower(dataType) {
	case "unsigned_char":
		return float64(b[0])
	case "char":
		return float64(int8(b[0]))
	case "unsigned_short":
		return float64(be.Uint16(b))
	case "short":
		return float64(int16(be.Uint16(b)))
	case "unsigned_int":
		return float64(be.Uint32(b))
	case "int", "vtkidtype":
		return float64(int32(be.Uint32(b)))
	case "unsigned_long", "vtktypeuint64":
		return float64(be.Uint64(b))
	case "long", "vtktypeint64":
		return float64(int64(be.Uint64(b)))
	case "float":
		return float64(math.Float32frombits(be.Uint32(b)))
	case "double":
		return math.Float64frombits(be.Uint64(b))
	}
	return 0
}

func binarySize(dataType string) int {
	switch strings.ToLower(dataType) {
	case "unsigned_char", "char":
		return 1
	case "unsigned_short", "short":
		return 2
	case "unsigned_int", "int", "float", "vtkidtype":
		return 4
	case "unsigned_long", "long", "double", "vtktypeint64", "vtktypeuint64":
		return 8
	}
	return 0
}

func colorType(enc VTKEncoding) string {
	if enc == VTK_BINARY {
		return "unsigned_char"
	}
	return "float"
}

// expandTensors6 maps xx, yy, zz, xy, yz, xz tuples to full row-major tensors.
func expandTensors6(six []float64) (nine []float64) {
	n := len(six) / 6
	nine = make([]float64, 9*n)
	for k := 0; k < n; k++ {
		s, t := six[6*k:6*k+6], nine[9*k:9*k+9]
		t[0], t[1], t[2] = s[0], s[3], s[5]
		t[3], t[4], t[5] = s[3], s[1], s[4]
		t[6], t[7], t[8] = s[5], s[4], s[2]
	}
	return
}

func decodeName(name string) string {
	if dec, err := url.PathUnescape(name); err == nil {
		return dec
	}
	return name
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\v' || b == '\f'
}

func (p *vtkParser) atoi(s string) (i int, err error) {
	if i, err = strconv.Atoi(s); err != nil {
		err = p.errorf("invalid integer %q", s)
	}
	return
}

func (p *vtkParser) atof(s string) (f float64, err error) {
	if f, err = strconv.ParseFloat(s, 64); err != nil {
		err = p.errorf("invalid number %q", s)
	}
	return
}
