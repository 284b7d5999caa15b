package terrapv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constantPlane(rows, cols int, v float32) *Plane {
	p := NewPlane(rows, cols)
	p.Fill(v)
	return p
}

func testExtent(rows, cols int) Extent {
	return Extent{
		West:  14.,
		South: 46.,
		East:  14. + 0.01*float64(cols),
		North: 46. + 0.01*float64(rows),
	}
}

func dailyConfig() Config {
	cfg := DefaultConfig()
	cfg.Day = 172
	return cfg
}

func runDriver(t *testing.T, cfg *Config, layers *Layers, want OutputSet) *Outputs {
	t.Helper()
	d, err := NewDriver(cfg, layers, testExtent(layers.Elevation.Rows(), layers.Elevation.Cols()),
		LatLonGrid{}, DefaultEfficiencyModel(), want)
	assert.Nil(t, err)
	out, err := d.Run()
	assert.Nil(t, err)
	return out
}

// A uniform flat grid produces identical, defined beam values on every
// cell.
func Test_Driver_Uniform(t *testing.T) {
	cfg := dailyConfig()
	layers := &Layers{Elevation: constantPlane(4, 5, 300.)}

	out := runDriver(t, &cfg, layers, OutputSet{Beam: true, Diffuse: true})

	first := out.Beam.Get(0, 0)
	assert.True(t, first > 0.)
	for r := 0; r < 4; r++ {
		for c := 0; c < 5; c++ {
			assert.True(t, out.Beam.Defined(r, c))
			// Values drift slightly with latitude across rows.
			assert.InDelta(t, float64(out.Beam.Get(r, c)), float64(first), 0.02*float64(first))
		}
	}
}

// Undefined cells in any supplied layer leave the outputs undefined at
// that cell and defined elsewhere.
func Test_Driver_NoDataPropagation(t *testing.T) {
	cfg := dailyConfig()

	elev := constantPlane(4, 5, 300.)
	linke := constantPlane(4, 5, 3.)
	linke.Set(2, 3, NoData)

	layers := &Layers{Elevation: elev, Linke: linke}
	out := runDriver(t, &cfg, layers, OutputSet{Beam: true})

	assert.False(t, out.Beam.Defined(2, 3))
	assert.True(t, out.Beam.Defined(2, 2))
	assert.True(t, out.Beam.Defined(1, 3))
}

// Splitting the input into partitions must not change any output, with
// horizon-table shadowing active across partition boundaries.
func Test_Driver_PartitionInvariance(t *testing.T) {
	layers := func() *Layers {
		elev := NewPlane(6, 4)
		for r := 0; r < 6; r++ {
			for c := 0; c < 4; c++ {
				elev.Set(r, c, float32(200.+10.*float64(r)+5.*float64(c)))
			}
		}
		skyline := PlaneHorizonSource{
			constantPlane(6, 4, 0.5), constantPlane(6, 4, 0.),
			constantPlane(6, 4, 0.), constantPlane(6, 4, 0.2),
		}
		return &Layers{Elevation: elev, Horizon: skyline}
	}

	one := dailyConfig()
	one.Shadow = true
	one.HorizonStepDeg = 90.
	outOne := runDriver(t, &one, layers(), OutputSet{Beam: true})

	three := dailyConfig()
	three.Shadow = true
	three.HorizonStepDeg = 90.
	three.NumPartitions = 3
	outThree := runDriver(t, &three, layers(), OutputSet{Beam: true})

	for r := 0; r < 6; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, outOne.Beam.Get(r, c), outThree.Beam.Get(r, c),
				"cell %d,%d", r, c)
		}
	}
}

// The row progress hook fires once per row, in order.
func Test_Driver_Progress(t *testing.T) {
	cfg := dailyConfig()
	d, err := NewDriver(&cfg, &Layers{Elevation: constantPlane(4, 3, 300.)},
		testExtent(4, 3), LatLonGrid{}, DefaultEfficiencyModel(), OutputSet{Beam: true})
	assert.Nil(t, err)

	var seen []int
	d.Progress = func(done, total int) {
		assert.Equal(t, total, 4)
		seen = append(seen, done)
	}
	_, err = d.Run()
	assert.Nil(t, err)
	assert.Equal(t, seen, []int{1, 2, 3, 4})
}

// Per-cell turbidity rasters behave exactly like the equivalent
// constant.
func Test_Driver_ConstantVsRaster(t *testing.T) {
	constCfg := dailyConfig()
	constCfg.Linke = 4.5
	outConst := runDriver(t, &constCfg,
		&Layers{Elevation: constantPlane(3, 3, 300.)}, OutputSet{Beam: true})

	rasterCfg := dailyConfig()
	outRaster := runDriver(t, &rasterCfg, &Layers{
		Elevation: constantPlane(3, 3, 300.),
		Linke:     constantPlane(3, 3, 4.5),
	}, OutputSet{Beam: true})

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, outConst.Beam.Get(r, c), outRaster.Beam.Get(r, c))
		}
	}
}

// Instant mode produces irradiance, not energy, and leaves the
// insolation plane untouched.
func Test_Driver_InstantMode(t *testing.T) {
	cfg := dailyConfig()
	noon := 12.
	cfg.Time = &noon

	layers := &Layers{Elevation: constantPlane(3, 3, 300.)}
	out := runDriver(t, &cfg, layers, OutputSet{Beam: true, InsolationTime: true})

	v := float64(out.Beam.Get(1, 1))
	assert.True(t, v > 300. && v < 1200., "beam %f", v)
	assert.False(t, out.InsolationTime.Defined(1, 1))
}

// On-the-fly shadow marching refuses to run on partial elevation
// windows.
func Test_Driver_MarchNeedsOnePartition(t *testing.T) {
	cfg := dailyConfig()
	cfg.Shadow = true
	cfg.NumPartitions = 2

	_, err := NewDriver(&cfg, &Layers{Elevation: constantPlane(4, 4, 300.)},
		testExtent(4, 4), LatLonGrid{}, DefaultEfficiencyModel(), OutputSet{Beam: true})
	assert.NotNil(t, err)
}

// Horizon-table shadowing with an all-blocking skyline kills the beam
// but keeps diffuse light.
func Test_Driver_HorizonShadow(t *testing.T) {
	cfg := dailyConfig()
	cfg.Shadow = true
	cfg.HorizonStepDeg = 90.

	wall := PlaneHorizonSource{
		constantPlane(3, 3, 1.6), constantPlane(3, 3, 1.6),
		constantPlane(3, 3, 1.6), constantPlane(3, 3, 1.6),
	}
	layers := &Layers{Elevation: constantPlane(3, 3, 300.), Horizon: wall}

	out := runDriver(t, &cfg, layers, OutputSet{Beam: true, Diffuse: true})
	assert.Equal(t, out.Beam.Get(1, 1), float32(0.))
	assert.True(t, out.Diffuse.Get(1, 1) > 0.)
}

// Layer dimension mismatches are rejected up front.
func Test_Layers_Validate(t *testing.T) {
	layers := &Layers{
		Elevation: constantPlane(4, 4, 300.),
		Slope:     constantPlane(3, 4, 10.),
	}
	assert.NotNil(t, layers.Validate())

	assert.NotNil(t, (&Layers{}).Validate())

	ok := &Layers{Elevation: constantPlane(4, 4, 300.)}
	assert.Nil(t, ok.Validate())
}

func Test_aspectToAzimuthFrame(t *testing.T) {
	assert.Equal(t, aspectToAzimuthFrame(0.), 0.)
	assert.Equal(t, aspectToAzimuthFrame(90.), 360.)
	assert.Equal(t, aspectToAzimuthFrame(270.), 180.)
	assert.Equal(t, aspectToAzimuthFrame(45.), 45.)
	assert.Equal(t, aspectToAzimuthFrame(180.), 270.)
}

// CSV round trip, plain and gzipped, preserving undefined cells.
func Test_Plane_CSVRoundTrip(t *testing.T) {
	p := NewPlane(2, 3)
	p.Set(0, 0, 1.5)
	p.Set(0, 2, -2.25)
	p.Set(1, 1, 300.)

	for _, name := range []string{"plane.csv", "plane.csv.gz"} {
		path := filepath.Join(t.TempDir(), name)
		assert.Nil(t, WritePlaneCSV(p, path))

		back, err := ReadPlaneCSV(path)
		assert.Nil(t, err)
		assert.Equal(t, back.Rows(), 2)
		assert.Equal(t, back.Cols(), 3)
		assert.Equal(t, back.Get(0, 0), float32(1.5))
		assert.Equal(t, back.Get(0, 2), float32(-2.25))
		assert.Equal(t, back.Get(1, 1), float32(300.))
		assert.False(t, back.Defined(1, 0))
	}
}

func Test_ReadPlaneCSV_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	assert.Nil(t, os.WriteFile(path, []byte("1,2,3\n4,5\n"), 0644))

	_, err := ReadPlaneCSV(path)
	assert.NotNil(t, err)
}
