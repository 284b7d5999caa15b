// Package terrapv computes terrain-aware solar irradiance on inclined
// surfaces and the resulting photovoltaic power output, per grid cell,
// for a single instant or integrated over a day.
package terrapv

import "math"

const (
	pi2     = 2 * math.Pi
	piHalf  = math.Pi / 2
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	// HourAngle is the angular width of one hour of local solar time.
	HourAngle = math.Pi / 12

	// eps is the magnitude threshold used instead of trapping
	// floating-point domain errors.
	eps = 1.e-4

	earthRadius = 6371000.0
)

// SolarConstant returns the extraterrestrial irradiance [W/m2] for a
// day of the year, corrected for orbital eccentricity.
func SolarConstant(day int) float64 {
	d1 := pi2 * float64(day) / 365.25
	return 1367. * (1 + 0.03344*math.Cos(d1-0.048869))
}

// Declination returns the solar declination [rad] for a day of the year.
// The sign is inverted relative to the usual astronomical convention;
// DayGeometry consumes it together with negated-latitude direction
// cosines so the net sunrise/sunset geometry comes out right. The pair
// is pinned by tests, change one side only with care.
func Declination(day int) float64 {
	d1 := pi2 * float64(day) / 365.25
	return -math.Asin(0.3978 * math.Sin(d1-1.4+0.0355*math.Sin(d1-0.0489)))
}

// SolarTimeOffset returns the deviation of local solar time from local
// clock time [decimal hours] for a day of the year, excluding the
// timezone itself (equation of time).
func SolarTimeOffset(day int) float64 {
	d1 := pi2 * float64(day) / 365.25
	return 0.128*math.Sin(d1-0.04887) + 0.165*math.Sin(2*d1+0.34383)
}

// DayGeometry holds the sun-track values that stay constant across one
// day for one latitude: declination sine/cosine, the direction-cosine
// coefficients of the sun vector, and sunrise/sunset times.
type DayGeometry struct {
	SinDecl float64
	CosDecl float64

	lumC11 float64
	lumC13 float64
	lumC22 float64
	lumC31 float64
	lumC33 float64

	Sunrise float64 // decimal hours
	Sunset  float64 // decimal hours
}

// NewDayGeometry computes the constant-day sun geometry for a latitude
// [rad] and a declination [rad] in the sign convention of Declination.
func NewDayGeometry(latitude, declination float64) DayGeometry {
	// The negated latitude matches the negated declination convention.
	sinLat := math.Sin(-latitude)
	cosLat := math.Cos(-latitude)

	d := DayGeometry{
		SinDecl: math.Sin(declination),
		CosDecl: math.Cos(declination),
	}

	d.lumC11 = sinLat * d.CosDecl
	d.lumC13 = -cosLat * d.SinDecl
	d.lumC22 = d.CosDecl
	d.lumC31 = cosLat * d.CosDecl
	d.lumC33 = sinLat * d.SinDecl

	if math.Abs(d.lumC31) >= eps {
		pom := -d.lumC33 / d.lumC31
		if math.Abs(pom) <= 1 {
			pom = math.Acos(pom) * rad2deg
			d.Sunrise = (90-pom)/15 + 6
			d.Sunset = (pom-90)/15 + 18
		} else if pom < 0 {
			// Sun above the horizon the whole day.
			d.Sunrise = 0
			d.Sunset = 24
		} else {
			// Sun below the horizon the whole day.
			d.Sunrise = 12
			d.Sunset = 12
		}
	}
	return d
}

// TimeAngle converts a local time [decimal hours] to a time angle [rad],
// negative before solar noon. offset is the total solar-time offset
// [hours] (equation of time + timezone + longitude correction) and is
// zero unless civil time is in use.
func TimeAngle(hour, offset float64) float64 {
	tim := (hour - 12) * 15
	if tim < 0 {
		tim += 360
	}
	return tim*deg2rad - offset*HourAngle
}

// InstantGeometry holds the per-timestep sun position for one cell: the
// time angle it was computed for, solar altitude and azimuth, and the
// grid step vector used for ray marching toward the sun.
type InstantGeometry struct {
	TimeAngle float64

	SinAltitude float64
	Altitude    float64 // rad, vertical angle of the sun
	TanAltitude float64
	Azimuth     float64 // rad, 0 = north, clockwise

	// bearing is the sun azimuth re-expressed with 0 due east,
	// counterclockwise, used for the horizon table index and the
	// march direction.
	bearing float64

	StepSin float64 // march step, northing component
	StepCos float64 // march step, easting component

	// BelowAllDay is set when the sun track stays under the horizon
	// plane for the whole day; altitude and azimuth are not usable.
	BelowAllDay bool

	// Shadowed is filled in by the integrator once the cell's shadow
	// resolver has been consulted for this sun position.
	Shadowed bool
}

// Instant computes the sun position for a time angle at a location
// [rad]. The ray-march step vector is found by perturbing the point a
// small angular distance along the sun bearing and reprojecting, which
// ties the step to the true compass bearing whatever the working
// projection distorts. gg supplies the cell's projected coordinates.
//
// The receiver's sunrise/sunset may be widened when the sun track is
// nearly parallel to the horizon plane (permanent day/twilight).
func (d *DayGeometry) Instant(timeAngle, latitude, longitude float64, gg *GridGeometry, rp Reprojector) (InstantGeometry, error) {
	var sun InstantGeometry
	sun.TimeAngle = timeAngle

	cosTime := math.Cos(timeAngle)
	lumLx := -d.lumC22 * math.Sin(timeAngle)
	lumLy := d.lumC11*cosTime + d.lumC13
	sun.SinAltitude = d.lumC31*cosTime + d.lumC33

	if math.Abs(d.lumC31) < eps {
		if math.Abs(sun.SinAltitude) >= eps {
			if sun.SinAltitude > 0 {
				// Sun above the area the whole day.
				d.Sunrise = 0
				d.Sunset = 24
			} else {
				sun.Altitude = 0
				sun.BelowAllDay = true
				return sun, nil
			}
		} else {
			// Sun on the horizon the whole day.
			d.Sunrise = 0
			d.Sunset = 24
		}
	}

	sun.Altitude = math.Asin(sun.SinAltitude)
	sun.TanAltitude = math.Tan(sun.Altitude)

	pom := math.Sqrt(lumLx*lumLx + lumLy*lumLy)
	if math.Abs(pom) > eps {
		sun.Azimuth = math.Acos(lumLy / pom)
		if lumLx < 0 {
			sun.Azimuth = pi2 - sun.Azimuth
		}
	} else {
		// Sun at the zenith, bearing undefined; keep pointing east.
		sun.Azimuth = piHalf
	}

	if sun.Azimuth < piHalf {
		sun.bearing = piHalf - sun.Azimuth
	} else {
		sun.bearing = 2.5*math.Pi - sun.Azimuth
	}

	// Perturb the point along the bearing and measure the resulting
	// ground displacement in grid units.
	inputAngle := sun.bearing + piHalf
	if inputAngle >= pi2 {
		inputAngle -= pi2
	}
	deltLat := -1.e-4 * math.Cos(inputAngle)
	deltLon := 1.e-4 * math.Sin(inputAngle) / math.Cos(latitude)

	newLon := (longitude + deltLon) * rad2deg
	newLat := (latitude + deltLat) * rad2deg

	x, y := newLon, newLat
	if !rp.Geographic() {
		var err error
		x, y, err = rp.FromGeographic(newLon, newLat)
		if err != nil {
			return sun, err
		}
	}

	deltEast := x - gg.XP
	deltNor := y - gg.YP
	deltDist := math.Sqrt(deltEast*deltEast + deltNor*deltNor)

	sun.StepSin = gg.StepXY * deltNor / deltDist
	sun.StepCos = gg.StepXY * deltEast / deltDist

	return sun, nil
}
