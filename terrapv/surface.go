package terrapv

import "math"

// SlopeGeometry carries a cell's surface orientation and the derived
// direction cosines of the surface normal. The derived values depend on
// latitude and declination but not on time of day, so one SlopeGeometry
// serves every timestep of a cell's integration and is never mutated by
// the radiation routines.
type SlopeGeometry struct {
	Slope  float64 // rad, inclination from horizontal
	Aspect float64 // rad, 0 = north, clockwise, same frame as the solar azimuth

	// Oriented is false for horizontal cells (zero slope or undefined
	// aspect); radiation then falls back to horizontal-surface values.
	Oriented bool

	longitL float64
	lumC31L float64
	lumC33L float64
}

// NewSlopeGeometry derives the surface-normal projections for a cell.
// aspectDefined is false when the aspect input carries the flat-terrain
// marker.
func NewSlopeGeometry(slope, aspect float64, aspectDefined bool, latitude float64, day *DayGeometry) SlopeGeometry {
	s := SlopeGeometry{
		Slope:    slope,
		Aspect:   aspect,
		Oriented: aspectDefined && slope != 0,
	}

	sinLat := math.Sin(-latitude)
	cosLat := math.Cos(-latitude)

	cosU := math.Cos(piHalf - slope)
	sinU := math.Sin(piHalf - slope)
	cosV := math.Cos(piHalf + aspect)
	sinV := math.Sin(piHalf + aspect)

	// Latitude and longitude of the point on the sphere whose horizon
	// plane is parallel to the tilted surface (Jenco).
	sinPhiL := -cosLat*cosU*sinV + sinLat*sinU
	latidL := math.Asin(sinPhiL)

	q1 := sinLat*cosU*sinV + cosLat*sinU
	s.longitL = math.Atan(-cosU * cosV / q1)

	s.lumC31L = math.Cos(latidL) * day.CosDecl
	s.lumC33L = sinPhiL * day.SinDecl

	return s
}

// Incidence returns the projection of the sun direction onto the
// surface normal at a time angle, clamped at zero (sun behind the
// surface). For a horizontal cell this equals the sine of the solar
// altitude.
func (s *SlopeGeometry) Incidence(timeAngle float64) float64 {
	v := s.lumC31L*math.Cos(-timeAngle-s.longitL) + s.lumC33L
	if v < 0 {
		return 0
	}
	return v
}
