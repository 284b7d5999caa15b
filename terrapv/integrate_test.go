package terrapv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testCell builds a flat clear-sky cell positioned on the grid, with
// the latitude/longitude of the positioned cell.
func testCell(gg *GridGeometry, day int) (Cell, *GridGeometry) {
	gg.SetCell(5, 5)
	lat := gg.YP * deg2rad
	lon := gg.XP * deg2rad

	cell := Cell{
		Latitude:  lat,
		Longitude: lon,
		Elevation: 300.,
		Day:       NewDayGeometry(lat, Declination(day)),
		Rad: RadiationInputs{
			Linke:     3.0,
			Albedo:    0.2,
			CBH:       1.0,
			CDH:       1.0,
			G0:        SolarConstant(day),
			Elevation: 300.,
		},
		Shadow: NoShadow{},
	}
	cell.Slope = NewSlopeGeometry(0., 0., false, lat, &cell.Day)
	return cell, gg
}

func testIntegrator(gg *GridGeometry, step float64, highIrr bool) *Integrator {
	cfg := DefaultConfig()
	cfg.Day = 172
	cfg.Step = step
	cfg.HighIrradiance = highIrr
	return NewIntegrator(&cfg, NewRadiationModel(StandardRadiation),
		DefaultEfficiencyModel(), gg, LatLonGrid{})
}

// Midsummer noon on a flat mid-latitude cell: strong beam, smaller
// diffuse, no reflected share, and power follows irradiance with unit
// efficiency when no temperature data is present.
func Test_Instant_SummerNoon(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Instant(&cell, 12.)
	assert.Nil(t, err)

	assert.True(t, res.Beam > 500., "beam %f", res.Beam)
	assert.True(t, res.Diffuse > 0. && res.Diffuse < res.Beam)
	assert.Equal(t, res.Reflected, 0.)
	assert.False(t, res.HasModuleTemperature)
	assert.InDelta(t, res.Power, res.Beam+res.Diffuse, 1.0e-9)
}

// Before sunrise everything is zero.
func Test_Instant_BeforeSunrise(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Instant(&cell, 1.)
	assert.Nil(t, err)
	assert.Equal(t, res.Beam, 0.)
	assert.Equal(t, res.Diffuse, 0.)
	assert.Equal(t, res.Power, 0.)
}

// A civil-time offset shifts the instant evaluation by whole hours: the
// offset run at 13:00 matches the solar-time run at noon.
func Test_Instant_CivilOffset(t *testing.T) {
	gg := testGridGeometry(10, 10)
	it := testIntegrator(gg, 0.5, false)

	solar, _ := testCell(gg, 172)
	ref, err := it.Instant(&solar, 12.)
	assert.Nil(t, err)

	civil, _ := testCell(gg, 172)
	civil.TimeOffset = 1.
	shifted, err := it.Instant(&civil, 13.)
	assert.Nil(t, err)

	assert.InDelta(t, shifted.Beam, ref.Beam, 1.0e-9)
	assert.InDelta(t, shifted.Diffuse, ref.Diffuse, 1.0e-9)
}

// A permanently shadowed cell keeps its diffuse share but no beam.
func Test_Instant_Shadowed(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	cell.Shadow = NewHorizonProfile([]float64{1.6, 1.6, 1.6, 1.6}, piHalf)
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Instant(&cell, 12.)
	assert.Nil(t, err)
	assert.Equal(t, res.Beam, 0.)
	assert.True(t, res.Diffuse > 0.)
}

// With temperature data the instant result carries a module
// temperature and a derated power.
func Test_Instant_WithTemperature(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	cell.Temps = []float64{10., 18., 30., 22.}
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Instant(&cell, 12.)
	assert.Nil(t, err)
	assert.True(t, res.HasModuleTemperature)
	assert.True(t, res.ModuleTemperature > 5. && res.ModuleTemperature < 45.)
	assert.True(t, res.Power > 0.)
	assert.True(t, res.Power != res.Beam+res.Diffuse)
}

// Daily totals on a flat midsummer cell: beam dominates, insolation
// time close to the astronomical day length, energies plausible for
// clear sky (a few kWh/m2).
func Test_Daily_Summer(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Daily(&cell)
	assert.Nil(t, err)

	dayLength := cell.Day.Sunset - cell.Day.Sunrise
	assert.InDelta(t, res.InsolationTime, dayLength, 1.0)

	assert.True(t, res.Beam > res.Diffuse)
	assert.True(t, res.Beam > 4000. && res.Beam < 12000., "beam %f", res.Beam)
	assert.True(t, res.Diffuse > 500. && res.Diffuse < 4000., "diffuse %f", res.Diffuse)
	assert.Equal(t, res.Reflected, 0.)
	assert.InDelta(t, res.Power, res.Beam+res.Diffuse, 1.0e-6)
}

// Winter yields less than summer at the same site.
func Test_Daily_Seasons(t *testing.T) {
	summer, gg := testCell(testGridGeometry(10, 10), 172)
	it := testIntegrator(gg, 0.5, false)
	resSummer, err := it.Daily(&summer)
	assert.Nil(t, err)

	winter, _ := testCell(gg, 355)
	resWinter, err := it.Daily(&winter)
	assert.Nil(t, err)

	assert.True(t, resWinter.Beam < 0.5*resSummer.Beam)
	assert.True(t, resWinter.InsolationTime < resSummer.InsolationTime)
}

// Shrinking the step must not change the totals much.
func Test_Daily_StepConvergence(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)

	coarse := testIntegrator(gg, 1.0, false)
	resCoarse, err := coarse.Daily(&cell)
	assert.Nil(t, err)

	cell2, _ := testCell(gg, 172)
	fine := testIntegrator(gg, 0.1, false)
	resFine, err := fine.Daily(&cell2)
	assert.Nil(t, err)

	rel := (resCoarse.Beam - resFine.Beam) / resFine.Beam
	assert.True(t, rel < 0.05 && rel > -0.05, "rel %f", rel)
}

// With real-sky coefficients below one, high-irradiance mode computes
// efficiency from the clear-sky pass but the energy sums still scale
// with the real coefficients.
func Test_Daily_HighIrradiance(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	cell.Rad.CBH = 0.5
	cell.Rad.CDH = 0.5
	cell.Temps = []float64{10., 18., 30., 22.}

	clear, _ := testCell(gg, 172)
	clear.Temps = []float64{10., 18., 30., 22.}

	hi := testIntegrator(gg, 0.5, true)
	resReal, err := hi.Daily(&cell)
	assert.Nil(t, err)

	std := testIntegrator(gg, 0.5, false)
	resClear, err := std.Daily(&clear)
	assert.Nil(t, err)

	// The real beam is exactly half the clear-sky beam.
	assert.InDelta(t, resReal.Beam, 0.5*resClear.Beam, 1.0e-6)
}

// Temperature data produces a daily module-temperature mean within the
// ambient range (zero rise coefficient) and a derated power.
func Test_Daily_ModuleTemperature(t *testing.T) {
	cell, gg := testCell(testGridGeometry(10, 10), 172)
	cell.Temps = []float64{10., 18., 30., 22.}
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Daily(&cell)
	assert.Nil(t, err)
	assert.True(t, res.HasModuleTemperature)
	assert.True(t, res.ModuleTemperature >= 10. && res.ModuleTemperature <= 30.)
	assert.True(t, res.Power > 0.)
	assert.True(t, res.Power != res.Beam+res.Diffuse+res.Reflected)
}

// Polar night integrates to nothing.
func Test_Daily_PolarNight(t *testing.T) {
	gg := testGridGeometry(10, 10)
	gg.YMin = 75.
	cell, _ := testCell(gg, 355)
	it := testIntegrator(gg, 0.5, false)

	res, err := it.Daily(&cell)
	assert.Nil(t, err)
	assert.Equal(t, res.Beam, 0.)
	assert.Equal(t, res.Power, 0.)
	assert.Equal(t, res.InsolationTime, 0.)
}
