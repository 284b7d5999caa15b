package terrapv

import (
	"fmt"
	"math"

	"github.com/hhkbp2/go-logging"
	"gonum.org/v1/gonum/floats"
)

// Layers bundles the gridded inputs of a run. Elevation is required;
// every other layer is optional and falls back to the configured
// constant. Row indices are physical (row 0 = northernmost).
type Layers struct {
	Elevation RowSource

	Slope  RowSource // degrees
	Aspect RowSource // degrees, 0 = east counterclockwise, 0 means flat
	Linke  RowSource
	Albedo RowSource

	Latitude  RowSource // degrees, overrides the projection-derived value
	Longitude RowSource // degrees

	CoefBH RowSource
	CoefDH RowSource

	// Temperatures are the ambient temperature rasters, one per
	// equally-spaced time slot of the day.
	Temperatures []RowSource

	// Wind holds the four wind-speed polynomial coefficient rasters,
	// cubic term first.
	Wind []RowSource

	Horizon HorizonSource
}

// HasHorizon reports whether precomputed horizon tables are supplied.
func (l *Layers) HasHorizon() bool { return l.Horizon != nil }

// Validate checks presence and dimension agreement of the layers.
func (l *Layers) Validate() error {
	if l.Elevation == nil {
		return fmt.Errorf("elevation layer is required")
	}
	rows, cols := l.Elevation.Rows(), l.Elevation.Cols()
	if rows < 1 || cols < 1 {
		return fmt.Errorf("elevation layer is empty")
	}

	check := func(name string, src RowSource) error {
		if src == nil {
			return nil
		}
		if src.Rows() != rows || src.Cols() != cols {
			return fmt.Errorf("%s layer is %dx%d, elevation is %dx%d",
				name, src.Rows(), src.Cols(), rows, cols)
		}
		return nil
	}

	named := map[string]RowSource{
		"slope": l.Slope, "aspect": l.Aspect,
		"linke": l.Linke, "albedo": l.Albedo,
		"latitude": l.Latitude, "longitude": l.Longitude,
		"beam coefficient": l.CoefBH, "diffuse coefficient": l.CoefDH,
	}
	for name, src := range named {
		if err := check(name, src); err != nil {
			return err
		}
	}
	for i, src := range l.Temperatures {
		if err := check(fmt.Sprintf("temperature slot %d", i), src); err != nil {
			return err
		}
	}
	if len(l.Wind) != 0 && len(l.Wind) != 4 {
		return fmt.Errorf("wind needs 4 coefficient layers, got %d", len(l.Wind))
	}
	for i, src := range l.Wind {
		if err := check(fmt.Sprintf("wind coefficient %d", i), src); err != nil {
			return err
		}
	}
	return nil
}

// Extent is the projected bounding box of the grid.
type Extent struct {
	West, South, East, North float64
}

// OutputSet selects which output planes the run produces.
type OutputSet struct {
	Beam              bool
	Diffuse           bool
	Reflected         bool
	GlobalPower       bool
	ModuleTemperature bool
	InsolationTime    bool
}

func (s OutputSet) any() bool {
	return s.Beam || s.Diffuse || s.Reflected || s.GlobalPower ||
		s.ModuleTemperature || s.InsolationTime
}

// Outputs holds the produced planes; unrequested ones are nil. Planes
// are in physical row order and carry NoData where a cell had no
// defined inputs.
type Outputs struct {
	Beam              *Plane
	Diffuse           *Plane
	Reflected         *Plane
	GlobalPower       *Plane
	ModuleTemperature *Plane
	InsolationTime    *Plane
}

// Driver walks the grid cell by cell, assembling per-cell geometry and
// atmosphere from the layers and handing each cell to the integrator.
// Input rows are consumed in south-to-north partitions so only one
// partition's worth of layer data is resident at a time.
type Driver struct {
	cfg    *Config
	layers *Layers
	rp     Reprojector
	gg     GridGeometry
	model  RadiationModel
	eff    *EfficiencyModel
	want   OutputSet

	// Progress, when set, is called after every completed grid row.
	Progress func(done, total int)
}

// NewDriver validates the inputs and fixes the grid geometry and
// radiation variant for the run.
func NewDriver(cfg *Config, layers *Layers, extent Extent, rp Reprojector, eff *EfficiencyModel, want OutputSet) (*Driver, error) {
	if err := layers.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(layers.HasHorizon()); err != nil {
		return nil, err
	}
	if !want.any() {
		return nil, fmt.Errorf("no output planes requested")
	}
	if cfg.Measured && layers.CoefBH == nil && layers.CoefDH == nil &&
		cfg.CBH == 1. && cfg.CDH == 1. {
		return nil, fmt.Errorf("measured mode needs measured global/diffuse inputs")
	}
	if extent.East <= extent.West || extent.North <= extent.South {
		return nil, fmt.Errorf("degenerate grid extent")
	}

	rows := layers.Elevation.Rows()
	cols := layers.Elevation.Cols()

	gg := GridGeometry{
		Rows:  rows,
		Cols:  cols,
		StepX: (extent.East - extent.West) / float64(cols),
		StepY: (extent.North - extent.South) / float64(rows),
		DeltX: extent.East - extent.West,
		DeltY: extent.North - extent.South,
		XMin:  extent.West,
		YMin:  extent.South,
	}
	gg.StepXY = cfg.Dist * 0.5 * (gg.StepX + gg.StepY)

	return &Driver{
		cfg:    cfg,
		layers: layers,
		rp:     rp,
		gg:     gg,
		model:  NewRadiationModel(RadiationVariantFor(cfg.AngleLoss, cfg.Measured)),
		eff:    eff,
		want:   want,
	}, nil
}

// partition is one south-to-north chunk of the input layers, converted
// to float64 and indexed by row within the partition (0 = the
// partition's southernmost row).
type partition struct {
	start, rows int

	elev [][]float64

	slope, aspect     [][]float64
	linke, albedo     [][]float64
	latitude, longitd [][]float64
	cbh, cdh          [][]float64

	// temps is the per-cell temperature block, (r*cols+c)*slots stride.
	temps []float64
	slots int

	// wind is the per-cell coefficient block, (r*cols+c)*4 stride.
	wind []float64

	// horizon is the encoded skyline block, (r*cols+c)*dirs stride.
	horizon []byte
	dirs    int

	zMax float64
}

// runStats tracks the per-run input and sun-track ranges echoed in the
// log, same spirit as the progress diagnostics of the row loop.
type runStats struct {
	linkeMin, linkeMax float64
	albMin, albMax     float64
	latMin, latMax     float64
	srMin, srMax       float64
	ssMin, ssMax       float64
}

func newRunStats() runStats {
	inf := math.Inf(1)
	return runStats{
		linkeMin: inf, linkeMax: -inf,
		albMin: inf, albMax: -inf,
		latMin: inf, latMax: -inf,
		srMin: inf, srMax: -inf,
		ssMin: inf, ssMax: -inf,
	}
}

// Run computes the requested output planes.
func (d *Driver) Run() (*Outputs, error) {
	logger := logging.GetLogger("terrapv")

	cfg := d.cfg
	m := d.gg.Rows
	n := d.gg.Cols

	declination := cfg.DeclinationValue()
	logger.Infof("day %d, declination %.6f rad", cfg.Day, -declination)

	out := &Outputs{}
	alloc := func(want bool) *Plane {
		if !want {
			return nil
		}
		return NewPlane(m, n)
	}
	out.Beam = alloc(d.want.Beam)
	out.Diffuse = alloc(d.want.Diffuse)
	out.Reflected = alloc(d.want.Reflected)
	out.GlobalPower = alloc(d.want.GlobalPower)
	out.ModuleTemperature = alloc(d.want.ModuleTemperature)
	out.InsolationTime = alloc(d.want.InsolationTime)

	integ := NewIntegrator(cfg, d.model, d.eff, &d.gg, d.rp)

	// Solar-time offset excluding the per-cell longitude correction.
	var baseOffset float64
	civil := cfg.CivilTime != nil
	if civil {
		baseOffset = SolarTimeOffset(cfg.Day) + *cfg.CivilTime
	}

	g0 := SolarConstant(cfg.Day)

	numRows := m / cfg.NumPartitions
	if numRows < 1 {
		numRows = 1
	}

	// Day geometry depends only on latitude once declination is fixed;
	// on regular grids whole rows share one entry.
	dayCache := make(map[float64]DayGeometry)

	stats := newRunStats()

	var part *partition
	var marcher *RayMarcher
	for j := 0; j < m; j++ {
		if part == nil || j >= part.start+part.rows {
			var err error
			part, err = d.loadPartition(j, numRows)
			if err != nil {
				return nil, err
			}
			marcher = nil
			if cfg.Shadow && !d.layers.HasHorizon() {
				marcher = NewRayMarcher(&d.gg, part.elev, part.zMax)
			}
		}
		r := j - part.start
		phys := m - 1 - j

		for i := 0; i < n; i++ {
			zOrig := part.elev[r][i]
			if zOrig == NoData {
				continue
			}
			d.gg.SetCell(i, j)

			cell, err := d.assembleCell(part, r, i, zOrig, declination, g0,
				baseOffset, civil, marcher, dayCache, &stats)
			if err != nil {
				return nil, err
			}

			var res CellResult
			if cfg.Time != nil {
				res, err = integ.Instant(&cell, *cfg.Time)
			} else {
				res, err = integ.Daily(&cell)
			}
			if err != nil {
				return nil, err
			}

			if out.Beam != nil {
				out.Beam.Set(phys, i, float32(res.Beam))
			}
			if out.Diffuse != nil {
				out.Diffuse.Set(phys, i, float32(res.Diffuse))
			}
			if out.Reflected != nil {
				out.Reflected.Set(phys, i, float32(res.Reflected))
			}
			if out.GlobalPower != nil {
				out.GlobalPower.Set(phys, i, float32(res.Power))
			}
			if out.ModuleTemperature != nil && res.HasModuleTemperature {
				out.ModuleTemperature.Set(phys, i, float32(res.ModuleTemperature))
			}
			if out.InsolationTime != nil && cfg.Time == nil {
				out.InsolationTime.Set(phys, i, float32(res.InsolationTime))
			}
		}

		if d.Progress != nil {
			d.Progress(j+1, m)
		}
	}

	if stats.linkeMin <= stats.linkeMax {
		logger.Infof("Linke turbidity range %.2f .. %.2f", stats.linkeMin, stats.linkeMax)
	}
	if stats.albMin <= stats.albMax {
		logger.Infof("albedo range %.3f .. %.3f", stats.albMin, stats.albMax)
	}
	if stats.latMin <= stats.latMax {
		logger.Infof("latitude range %.4f .. %.4f deg", stats.latMin, stats.latMax)
	}
	if stats.srMin <= stats.srMax {
		logger.Infof("sunrise %.2f .. %.2f h, sunset %.2f .. %.2f h",
			stats.srMin, stats.srMax, stats.ssMin, stats.ssMax)
	}

	return out, nil
}

// assembleCell builds the integrator input for one cell from the
// partition data and the configured constants.
func (d *Driver) assembleCell(part *partition, r, i int, zOrig, declination, g0, baseOffset float64, civil bool, marcher *RayMarcher, dayCache map[float64]DayGeometry, stats *runStats) (Cell, error) {
	cfg := d.cfg

	// Latitude/longitude in degrees first, for the stats and the civil
	// time correction.
	var latDeg, lonDeg float64
	switch {
	case d.rp.Geographic():
		lonDeg = d.gg.XP
		latDeg = d.gg.YP
	default:
		var err error
		lonDeg, latDeg, err = d.rp.ToGeographic(d.gg.XP, d.gg.YP)
		if err != nil {
			return Cell{}, err
		}
	}
	if part.latitude != nil && part.latitude[r][i] != NoData {
		latDeg = part.latitude[r][i]
	}
	if part.longitd != nil && part.longitd[r][i] != NoData {
		lonDeg = part.longitd[r][i]
	}
	stats.latMin = math.Min(stats.latMin, latDeg)
	stats.latMax = math.Max(stats.latMax, latDeg)

	cell := Cell{
		Latitude:  latDeg * deg2rad,
		Longitude: lonDeg * deg2rad,
		Elevation: zOrig,
	}
	if civil {
		cell.TimeOffset = baseOffset - lonDeg/15.
	}

	// Surface orientation. The per-cell aspect was already rotated to
	// the solar-azimuth frame at load time; zero still marks flat.
	slope := cfg.SlopeDeg * deg2rad
	if part.slope != nil {
		slope = part.slope[r][i] * deg2rad
	}
	aspect := aspectToAzimuthFrame(cfg.AspectDeg) * deg2rad
	aspectDefined := cfg.AspectDeg != 0
	if part.aspect != nil {
		v := part.aspect[r][i]
		aspect = v * deg2rad
		aspectDefined = v != 0
	}

	day, ok := dayCache[cell.Latitude]
	if !ok {
		day = NewDayGeometry(cell.Latitude, declination)
		dayCache[cell.Latitude] = day
	}
	stats.srMin = math.Min(stats.srMin, day.Sunrise)
	stats.srMax = math.Max(stats.srMax, day.Sunrise)
	stats.ssMin = math.Min(stats.ssMin, day.Sunset)
	stats.ssMax = math.Max(stats.ssMax, day.Sunset)

	cell.Day = day
	cell.Slope = NewSlopeGeometry(slope, aspect, aspectDefined, cell.Latitude, &cell.Day)

	// Atmosphere.
	cell.Rad = RadiationInputs{
		Linke:     cfg.Linke,
		Albedo:    cfg.Albedo,
		CBH:       cfg.CBH,
		CDH:       cfg.CDH,
		G0:        g0,
		Elevation: zOrig,
	}
	if part.linke != nil {
		cell.Rad.Linke = part.linke[r][i]
	}
	if part.albedo != nil {
		cell.Rad.Albedo = part.albedo[r][i]
	}
	if part.cbh != nil {
		cell.Rad.CBH = part.cbh[r][i]
	}
	if part.cdh != nil {
		cell.Rad.CDH = part.cdh[r][i]
	}
	stats.linkeMin = math.Min(stats.linkeMin, cell.Rad.Linke)
	stats.linkeMax = math.Max(stats.linkeMax, cell.Rad.Linke)
	stats.albMin = math.Min(stats.albMin, cell.Rad.Albedo)
	stats.albMax = math.Max(stats.albMax, cell.Rad.Albedo)

	// Shadowing.
	cell.Shadow = NoShadow{}
	if cfg.Shadow {
		if d.layers.HasHorizon() {
			base := (r*d.gg.Cols + i) * part.dirs
			cell.Shadow = horizonFromEncoded(part.horizon[base:base+part.dirs], cfg.HorizonInterval())
		} else {
			marcher.SetOrigin(zOrig)
			cell.Shadow = marcher
		}
	}

	// Temperature and wind.
	if part.slots > 0 {
		base := (r*d.gg.Cols + i) * part.slots
		cell.Temps = part.temps[base : base+part.slots]
	}
	if part.wind != nil {
		base := (r*d.gg.Cols + i) * 4
		copy(cell.Wind[:], part.wind[base:base+4])
		cell.HasWind = true
	}

	return cell, nil
}

// aspectToAzimuthFrame rotates an aspect in degrees from the input
// convention (0 due east, counterclockwise) into the solar-azimuth
// frame (0 due north, clockwise). Zero stays zero: it marks flat
// terrain, not an orientation.
func aspectToAzimuthFrame(deg float64) float64 {
	if deg == 0. {
		return 0.
	}
	if deg < 90. {
		return 90. - deg
	}
	return 450. - deg
}

// loadPartition reads the partition that starts at logical row start
// (0 = southernmost). Undefined values in any supplied layer mark the
// cell's elevation undefined, which suppresses all computation there.
func (d *Driver) loadPartition(start, numRows int) (*partition, error) {
	m := d.gg.Rows
	n := d.gg.Cols
	l := d.layers

	rows := numRows
	if start+rows > m {
		rows = m - start
	}

	p := &partition{start: start, rows: rows}

	grab := func(src RowSource, logical int) ([]float64, []bool, error) {
		vals32, defined, err := src.Row(m - 1 - logical)
		if err != nil {
			return nil, nil, err
		}
		vals := make([]float64, len(vals32))
		for k, v := range vals32 {
			vals[k] = float64(v)
		}
		return vals, defined, nil
	}

	loadLayer := func(src RowSource, dst *[][]float64, elev [][]float64) error {
		if src == nil {
			return nil
		}
		buf := make([][]float64, rows)
		for rr := 0; rr < rows; rr++ {
			vals, defined, err := grab(src, start+rr)
			if err != nil {
				return err
			}
			buf[rr] = vals
			if elev != nil {
				for c, ok := range defined {
					if !ok {
						elev[rr][c] = NoData
					}
				}
			}
		}
		*dst = buf
		return nil
	}

	p.elev = make([][]float64, rows)
	for rr := 0; rr < rows; rr++ {
		vals, _, err := grab(l.Elevation, start+rr)
		if err != nil {
			return nil, err
		}
		p.elev[rr] = vals
	}

	if err := loadLayer(l.Slope, &p.slope, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.Aspect, &p.aspect, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.Linke, &p.linke, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.Albedo, &p.albedo, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.Latitude, &p.latitude, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.Longitude, &p.longitd, nil); err != nil {
		return nil, err
	}
	if err := loadLayer(l.CoefBH, &p.cbh, p.elev); err != nil {
		return nil, err
	}
	if err := loadLayer(l.CoefDH, &p.cdh, p.elev); err != nil {
		return nil, err
	}

	// Rotate the aspect rows into the solar-azimuth frame once, at
	// load time.
	if p.aspect != nil {
		for rr := range p.aspect {
			for c, v := range p.aspect[rr] {
				if v != NoData {
					p.aspect[rr][c] = aspectToAzimuthFrame(v)
				}
			}
		}
	}

	p.slots = len(l.Temperatures)
	if p.slots > 0 {
		p.temps = make([]float64, rows*n*p.slots)
		for s, src := range l.Temperatures {
			for rr := 0; rr < rows; rr++ {
				vals, defined, err := grab(src, start+rr)
				if err != nil {
					return nil, err
				}
				for c := 0; c < n; c++ {
					p.temps[(rr*n+c)*p.slots+s] = vals[c]
					if !defined[c] {
						p.elev[rr][c] = NoData
					}
				}
			}
		}
	}

	if len(l.Wind) == 4 {
		p.wind = make([]float64, rows*n*4)
		for s, src := range l.Wind {
			for rr := 0; rr < rows; rr++ {
				vals, defined, err := grab(src, start+rr)
				if err != nil {
					return nil, err
				}
				for c := 0; c < n; c++ {
					p.wind[(rr*n+c)*4+s] = vals[c]
					if !defined[c] {
						p.elev[rr][c] = NoData
					}
				}
			}
		}
	}

	if l.Horizon != nil {
		p.dirs = l.Horizon.Directions()
		p.horizon = make([]byte, rows*n*p.dirs)
		for dir := 0; dir < p.dirs; dir++ {
			for rr := 0; rr < rows; rr++ {
				vals, err := l.Horizon.Row(dir, m-1-(start+rr))
				if err != nil {
					return nil, err
				}
				for c := 0; c < n; c++ {
					p.horizon[(rr*n+c)*p.dirs+dir] = EncodeHorizonAngle(float64(vals[c]))
				}
			}
		}
	}

	p.zMax = math.Inf(-1)
	for rr := range p.elev {
		p.zMax = math.Max(p.zMax, floats.Max(p.elev[rr]))
	}

	return p, nil
}
