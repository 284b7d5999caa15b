package terrapv

import "math"

// Horizon angles are stored in a compact fixed-point byte encoding:
// round(150 * angle), saturating at 256/150 (~1.706 rad), so a full
// per-direction table costs one byte per direction per cell.
const horizonScale = 150.

const invHorizonScale = 1. / horizonScale

// maxHorizonAngle is the largest representable height angle [rad].
const maxHorizonAngle = 256. / horizonScale

// EncodeHorizonAngle quantizes a height angle [rad] to its byte form,
// saturating at the top code.
func EncodeHorizonAngle(angle float64) byte {
	v := math.Round(horizonScale * angle)
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return byte(v)
}

// DecodeHorizonAngle restores a height angle [rad] from its byte form.
func DecodeHorizonAngle(b byte) float64 {
	return invHorizonScale * float64(b)
}

// HorizonProfile is the terrain skyline of one cell: height angles at a
// fixed angular interval [rad], starting due east, counterclockwise,
// wrapping around.
type HorizonProfile struct {
	samples  []byte
	interval float64
}

// NewHorizonProfile builds a profile from height angles [rad] at the
// given angular interval.
func NewHorizonProfile(angles []float64, interval float64) HorizonProfile {
	samples := make([]byte, len(angles))
	for i, a := range angles {
		samples[i] = EncodeHorizonAngle(a)
	}
	return HorizonProfile{samples: samples, interval: interval}
}

// horizonFromEncoded wraps an already-encoded slice without copying.
// The slice is a window into the partition's horizon block.
func horizonFromEncoded(samples []byte, interval float64) HorizonProfile {
	return HorizonProfile{samples: samples, interval: interval}
}

// HeightAngle returns the skyline height angle [rad] at a bearing
// (0 = east, counterclockwise), linearly interpolated between the two
// neighboring samples.
func (h HorizonProfile) HeightAngle(bearing float64) float64 {
	pos := bearing / h.interval
	low := int(pos)
	if low >= len(h.samples) {
		low -= len(h.samples)
		pos -= float64(len(h.samples))
	}
	high := low + 1
	if high == len(h.samples) {
		high = 0
	}
	frac := pos - float64(low)
	return invHorizonScale * ((1-frac)*float64(h.samples[low]) + frac*float64(h.samples[high]))
}

// Shadowed reports whether the sun at the given bearing and altitude is
// hidden behind the terrain skyline.
func (h HorizonProfile) Shadowed(sun *InstantGeometry) bool {
	return h.HeightAngle(sun.bearing) > sun.Altitude
}
