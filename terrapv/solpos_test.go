package terrapv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The eccentricity-corrected solar constant stays within the known
// annual envelope and peaks near perihelion (early January).
func Test_SolarConstant(t *testing.T) {
	for day := 1; day <= 365; day++ {
		g0 := SolarConstant(day)
		assert.True(t, g0 > 1320. && g0 < 1420., "day %d: %f", day, g0)
	}
	assert.True(t, SolarConstant(3) > SolarConstant(172))
}

// Declination vanishes near the equinoxes and peaks in magnitude near
// the solstices at about 23.4 degrees.
func Test_Declination(t *testing.T) {
	solstice := math.Abs(Declination(172))
	assert.InDelta(t, solstice, 23.4*deg2rad, 0.01)

	equinox := math.Abs(Declination(81))
	assert.True(t, equinox < 1.5*deg2rad)
}

// At the equator every day is close to 12 hours; sunrise and sunset
// must be symmetric around noon.
func Test_NewDayGeometry_Equator(t *testing.T) {
	d := NewDayGeometry(0., Declination(172))
	assert.InDelta(t, d.Sunrise+d.Sunset, 24., 1.0e-9)
	assert.InDelta(t, d.Sunset-d.Sunrise, 12., 0.2)
}

// Mid-latitude summer solstice: long day, sunrise well before 6 and
// sunset well after 18.
func Test_NewDayGeometry_MidLatitudeSummer(t *testing.T) {
	d := NewDayGeometry(45.*deg2rad, Declination(172))
	assert.True(t, d.Sunrise < 5.)
	assert.True(t, d.Sunset > 19.)
	assert.InDelta(t, d.Sunrise+d.Sunset, 24., 1.0e-9)

	// Winter solstice is the mirror image.
	w := NewDayGeometry(45.*deg2rad, Declination(355))
	assert.True(t, w.Sunrise > 7.)
	assert.True(t, w.Sunset < 17.)
}

// Above the polar circle in midsummer the sun never sets.
func Test_NewDayGeometry_PolarDay(t *testing.T) {
	d := NewDayGeometry(75.*deg2rad, Declination(172))
	assert.Equal(t, d.Sunrise, 0.)
	assert.Equal(t, d.Sunset, 24.)
}

// Above the polar circle in midwinter the sun never rises.
func Test_NewDayGeometry_PolarNight(t *testing.T) {
	d := NewDayGeometry(75.*deg2rad, Declination(355))
	assert.Equal(t, d.Sunrise, 12.)
	assert.Equal(t, d.Sunset, 12.)
}

// Noon is time angle zero; the angle grows by 15 degrees per hour and
// is negative (wrapped) before noon.
func Test_TimeAngle(t *testing.T) {
	assert.InDelta(t, TimeAngle(12., 0.), 0., 1.0e-12)
	assert.InDelta(t, TimeAngle(13., 0.), 15.*deg2rad, 1.0e-12)
	assert.InDelta(t, TimeAngle(6., 0.), 270.*deg2rad, 1.0e-12)

	// A one-hour offset shifts the angle by exactly one hour angle.
	assert.InDelta(t, TimeAngle(12., 1.), -HourAngle, 1.0e-12)
}

func testGridGeometry(rows, cols int) *GridGeometry {
	gg := &GridGeometry{
		Rows: rows, Cols: cols,
		StepX: 0.01, StepY: 0.01,
		DeltX: 0.01 * float64(cols),
		DeltY: 0.01 * float64(rows),
		XMin:  14., YMin: 46.,
	}
	gg.StepXY = 0.5 * (gg.StepX + gg.StepY)
	return gg
}

// At solar noon the sun bears due south (azimuth pi) for a northern
// mid-latitude site, and the altitude equals 90 - lat + decl. The
// location must match the positioned cell for the step vector to make
// sense.
func Test_Instant_Noon(t *testing.T) {
	gg := testGridGeometry(10, 10)
	gg.SetCell(5, 5)
	lat := gg.YP * deg2rad
	lon := gg.XP * deg2rad

	d := NewDayGeometry(lat, Declination(172))

	sun, err := d.Instant(TimeAngle(12., 0.), lat, lon, gg, LatLonGrid{})
	assert.Nil(t, err)
	assert.False(t, sun.BelowAllDay)
	assert.InDelta(t, sun.Azimuth, math.Pi, 1.0e-6)
	assert.InDelta(t, sun.Altitude, (90.-gg.YP+23.4)*deg2rad, 0.01)

	// March toward the sun runs south.
	assert.True(t, sun.StepSin < 0.)
	assert.InDelta(t, sun.StepCos, 0., 1.0e-3*gg.StepXY)
}

// Morning sun stands east of the meridian, evening sun west of it.
func Test_Instant_MorningEvening(t *testing.T) {
	lat := 45. * deg2rad
	lon := 14.05 * deg2rad
	d := NewDayGeometry(lat, Declination(172))

	gg := testGridGeometry(10, 10)
	gg.SetCell(5, 5)

	am, err := d.Instant(TimeAngle(8., 0.), lat, lon, gg, LatLonGrid{})
	assert.Nil(t, err)
	assert.True(t, am.Azimuth < math.Pi)
	assert.True(t, am.SinAltitude > 0.)

	pm, err := d.Instant(TimeAngle(16., 0.), lat, lon, gg, LatLonGrid{})
	assert.Nil(t, err)
	assert.True(t, pm.Azimuth > math.Pi)

	// Same altitude by symmetry around noon.
	assert.InDelta(t, am.Altitude, pm.Altitude, 1.0e-6)
}

// Midnight sun at a mid latitude is below the horizon.
func Test_Instant_Night(t *testing.T) {
	lat := 45. * deg2rad
	lon := 14.05 * deg2rad
	d := NewDayGeometry(lat, Declination(172))

	gg := testGridGeometry(10, 10)
	gg.SetCell(5, 5)

	sun, err := d.Instant(TimeAngle(0., 0.), lat, lon, gg, LatLonGrid{})
	assert.Nil(t, err)
	assert.True(t, sun.SinAltitude < 0.)
}

// The equation of time stays within its known +-17 minute envelope.
func Test_SolarTimeOffset(t *testing.T) {
	for day := 1; day <= 365; day++ {
		off := SolarTimeOffset(day)
		assert.True(t, math.Abs(off) < 0.30, "day %d: %f", day, off)
	}
}
