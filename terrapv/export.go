package terrapv

import (
	"bytes"
	"compress/gzip"
	"os"
	"strconv"
	"strings"
)

// ToCSV renders the plane as raw CSV, one record per physical row.
// Undefined cells become empty fields.
func (p *Plane) ToCSV(buf *bytes.Buffer) {
	for r := 0; r < p.rows; r++ {
		row := p.RowSlice(r)
		for c, v := range row {
			if c > 0 {
				buf.WriteString(",")
			}
			if v != NoData {
				buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
			}
		}
		buf.WriteString("\n")
	}
}

// WritePlaneCSV writes the plane to a CSV file, gzip-compressed when
// the path carries a .gz suffix.
func WritePlaneCSV(p *Plane, path string) error {
	var buf bytes.Buffer
	p.ToCSV(&buf)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if _, err := gz.Write(buf.Bytes()); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}
	_, err = f.Write(buf.Bytes())
	return err
}
