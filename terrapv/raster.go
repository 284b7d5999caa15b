package terrapv

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// NoData is the sentinel for undefined cells. A distinguished value, not
// NaN, so it survives comparisons and integer casts.
const NoData = -9999.0

// RowSource is the narrow interface the core uses to fetch gridded
// input data one row at a time. Row indices are physical: row 0 is the
// northernmost row, as stored.
type RowSource interface {
	Rows() int
	Cols() int
	// Row returns the values of one row and a defined-flag per value.
	// Undefined values carry NoData.
	Row(r int) (vals []float32, defined []bool, err error)
}

// HorizonSource fetches precomputed horizon-angle rows, one raster per
// compass direction.
type HorizonSource interface {
	Directions() int
	// Row returns the horizon height angles [rad] of one physical row
	// for one direction index.
	Row(direction, r int) ([]float32, error)
}

// Plane is an in-memory row-addressable float plane. It implements
// RowSource and also serves as an output accumulator.
type Plane struct {
	rows, cols int
	data       []float32
}

// NewPlane creates a plane with every cell set to NoData.
func NewPlane(rows, cols int) *Plane {
	p := &Plane{rows: rows, cols: cols, data: make([]float32, rows*cols)}
	for i := range p.data {
		p.data[i] = NoData
	}
	return p
}

func (p *Plane) Rows() int { return p.rows }
func (p *Plane) Cols() int { return p.cols }

func (p *Plane) Get(r, c int) float32     { return p.data[r*p.cols+c] }
func (p *Plane) Set(r, c int, v float32)  { p.data[r*p.cols+c] = v }
func (p *Plane) Defined(r, c int) bool    { return p.data[r*p.cols+c] != NoData }
func (p *Plane) RowSlice(r int) []float32 { return p.data[r*p.cols : (r+1)*p.cols] }

func (p *Plane) Row(r int) ([]float32, []bool, error) {
	if r < 0 || r >= p.rows {
		return nil, nil, fmt.Errorf("row %d out of range (0..%d)", r, p.rows-1)
	}
	vals := p.RowSlice(r)
	defined := make([]bool, p.cols)
	for i, v := range vals {
		defined[i] = v != NoData
	}
	return vals, defined, nil
}

// Fill sets every cell to v.
func (p *Plane) Fill(v float32) {
	for i := range p.data {
		p.data[i] = v
	}
}

// PlaneHorizonSource adapts a slice of planes (one per direction) to
// HorizonSource.
type PlaneHorizonSource []*Plane

func (s PlaneHorizonSource) Directions() int { return len(s) }

func (s PlaneHorizonSource) Row(direction, r int) ([]float32, error) {
	if direction < 0 || direction >= len(s) {
		return nil, fmt.Errorf("horizon direction %d out of range", direction)
	}
	vals, _, err := s[direction].Row(r)
	return vals, err
}

// ReadPlaneCSV loads a plane from a CSV file of raw float rows, one
// record per grid row, optionally gzip-compressed (by .gz suffix).
// Empty fields and "NA" become NoData.
func ReadPlaneCSV(path string) (*Plane, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, gerr := gzip.NewReader(f)
		if gerr != nil {
			return nil, fmt.Errorf("%s: %v", path, gerr)
		}
		defer gz.Close()
		src = gz
	}

	rd := csv.NewReader(src)
	rd.FieldsPerRecord = -1

	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty raster", path)
	}

	rows := len(records)
	cols := len(records[0])
	p := NewPlane(rows, cols)
	for r, rec := range records {
		if len(rec) != cols {
			return nil, fmt.Errorf("%s: row %d has %d columns, want %d", path, r, len(rec), cols)
		}
		for c, field := range rec {
			field = strings.TrimSpace(field)
			if field == "" || field == "NA" {
				continue
			}
			v, perr := strconv.ParseFloat(field, 32)
			if perr != nil {
				return nil, fmt.Errorf("%s: row %d col %d: %v", path, r, c, perr)
			}
			p.Set(r, c, float32(v))
		}
	}
	return p, nil
}
