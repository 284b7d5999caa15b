package terrapv

import "math"

// GridGeometry describes the working grid and the cell currently being
// computed. Distances are in projected ground units; positions xg0/yg0
// are grid-local (relative to the west/south edges).
type GridGeometry struct {
	Rows, Cols int

	StepX, StepY float64 // cell size, easting/northing
	StepXY       float64 // ray-march step length
	DeltX, DeltY float64 // grid extent

	XMin, YMin float64 // projected coordinates of the grid edges

	XP, YP float64 // projected coordinates of the current cell

	xg0, yg0 float64 // grid-local coordinates of the current cell
}

// SetCell positions the geometry on a cell, addressed by column and
// logical row (0 = southernmost).
func (gg *GridGeometry) SetCell(col, row int) {
	gg.xg0 = float64(col) * gg.StepX
	gg.yg0 = float64(row) * gg.StepY
	gg.XP = gg.XMin + gg.xg0
	gg.YP = gg.YMin + gg.yg0
}

// ShadowResolver decides whether the current cell is shadowed by
// terrain for a given sun position.
type ShadowResolver interface {
	Shadowed(sun *InstantGeometry) bool
}

// NoShadow is the resolver used when terrain shadowing is disabled.
type NoShadow struct{}

func (NoShadow) Shadowed(*InstantGeometry) bool { return false }

// RayMarcher determines shadowing by walking upslope from the cell
// toward the sun over the elevation field. It requires the whole field
// in memory (single partition); the field's maximum elevation bounds
// the march: once the ray climbs above it nothing further can block.
type RayMarcher struct {
	gg   *GridGeometry
	elev [][]float64 // logical row order, 0 = southernmost

	zOrig float64
	zMax  float64
}

// NewRayMarcher builds a marcher over the full elevation field.
func NewRayMarcher(gg *GridGeometry, elev [][]float64, zMax float64) *RayMarcher {
	return &RayMarcher{gg: gg, elev: elev, zMax: zMax}
}

// SetOrigin fixes the starting elevation for the current cell.
func (rm *RayMarcher) SetOrigin(z float64) { rm.zOrig = z }

// Shadowed walks from the cell along the sun bearing in StepXY
// increments, comparing the curvature-corrected ray height against the
// terrain. It stops with shadow when the ray dips below terrain, and
// with clear sky when it leaves the grid or climbs above the field
// maximum.
func (rm *RayMarcher) Shadowed(sun *InstantGeometry) bool {
	gg := rm.gg
	x := gg.xg0
	y := gg.yg0

	for {
		x += sun.StepCos
		y += sun.StepSin

		if x+0.5*gg.StepX < 0 || x+0.5*gg.StepX > gg.DeltX ||
			y+0.5*gg.StepY < 0 || y+0.5*gg.StepY > gg.DeltY {
			return false
		}

		// Offset half a cell to land in the enclosing cell.
		i := int(x/gg.StepX + 0.5)
		j := int(y/gg.StepY + 0.5)
		if i > gg.Cols-1 || j > gg.Rows-1 {
			return false
		}

		zp := rm.elev[j][i]
		if zp == NoData {
			return false
		}

		dx := gg.xg0 - float64(i)*gg.StepX
		dy := gg.yg0 - float64(j)*gg.StepY
		length := math.Sqrt(dx*dx + dy*dy)

		curvatureDiff := earthRadius * (1 - math.Cos(length/earthRadius))
		z2 := rm.zOrig + curvatureDiff + length*sun.TanAltitude

		if z2 < zp {
			return true
		}
		if z2 > rm.zMax {
			return false
		}
	}
}
