package terrapv

// Reprojector converts between the working grid projection and
// geographic longitude/latitude [degrees]. The core only ever needs
// single points; anything heavier stays outside.
type Reprojector interface {
	// ToGeographic maps projected grid coordinates to lon/lat degrees.
	ToGeographic(x, y float64) (lon, lat float64, err error)
	// FromGeographic maps lon/lat degrees to projected coordinates.
	FromGeographic(lon, lat float64) (x, y float64, err error)
	// Geographic reports whether grid coordinates already are lon/lat
	// degrees, in which case both mappings are the identity.
	Geographic() bool
}

// LatLonGrid is the Reprojector for grids whose coordinates are plain
// geographic degrees.
type LatLonGrid struct{}

func (LatLonGrid) ToGeographic(x, y float64) (float64, float64, error)   { return x, y, nil }
func (LatLonGrid) FromGeographic(x, y float64) (float64, float64, error) { return x, y, nil }
func (LatLonGrid) Geographic() bool                                      { return true }

// ReprojectorFunc adapts a pair of point-mapping closures, e.g. around
// an external projection library.
type ReprojectorFunc struct {
	Forward func(lon, lat float64) (x, y float64, err error)
	Inverse func(x, y float64) (lon, lat float64, err error)
}

func (r ReprojectorFunc) ToGeographic(x, y float64) (float64, float64, error) {
	return r.Inverse(x, y)
}

func (r ReprojectorFunc) FromGeographic(lon, lat float64) (float64, float64, error) {
	return r.Forward(lon, lat)
}

func (r ReprojectorFunc) Geographic() bool { return false }
