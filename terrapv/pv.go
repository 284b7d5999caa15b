package terrapv

import (
	"fmt"
	"math"
	"os"

	"github.com/gocarina/gocsv"
)

// stcTemperature is the module temperature at standard test conditions.
const stcTemperature = 25.

// EfficiencyModel converts combined irradiance and module temperature
// into a power-output multiplier relative to the rated power at
// standard test conditions.
//
// Coefficient slots: 0 = rated power at STC, 1-2 = log-irradiance
// terms, 3-6 = temperature cross terms, 7 = irradiance-to-temperature
// rise coefficient, 8 = wind coupling coefficient.
type EfficiencyModel struct {
	coeffs  [9]float64
	useWind bool
}

// defaultCoeffs is the built-in crystalline-silicon rating fit, used
// when no parameter file overrides it. The rise coefficient defaults to
// zero: module temperature then equals ambient.
var defaultCoeffs = [9]float64{94.804, 3.151, -0.8768, -0.32148, 0.003795, -0.001056, -0.0005247, 0, 0}

// DefaultEfficiencyModel returns the built-in model.
func DefaultEfficiencyModel() *EfficiencyModel {
	return &EfficiencyModel{coeffs: defaultCoeffs}
}

// pvCoefficient is one row of the power-rating parameter table.
type pvCoefficient struct {
	Name  string  `csv:"name"`
	Value float64 `csv:"value"`
}

// LoadEfficiencyModel reads a power-rating parameter CSV with columns
// name,value: eight rows (rated power, six polynomial terms, rise
// coefficient) plus a ninth wind-coupling row when useWind is set.
// Each slot is validated independently.
func LoadEfficiencyModel(path string, useWind bool) (*EfficiencyModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("power-rating parameters: %v", err)
	}
	defer f.Close()

	var rows []*pvCoefficient
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("power-rating parameters %s: %v", path, err)
	}

	want := 8
	if useWind {
		want = 9
	}
	if len(rows) < want {
		return nil, fmt.Errorf("power-rating parameters %s: %d coefficients, want %d", path, len(rows), want)
	}

	m := &EfficiencyModel{useWind: useWind}
	for i := 0; i < want; i++ {
		m.coeffs[i] = rows[i].Value
	}
	if m.coeffs[0] == 0 {
		return nil, fmt.Errorf("power-rating parameters %s: rated power must be nonzero", path)
	}
	if useWind && m.coeffs[7] <= 0 {
		return nil, fmt.Errorf("power-rating parameters %s: wind mode needs a positive heat-loss coefficient", path)
	}
	return m, nil
}

// UseWind reports whether the wind-coupled temperature rise is active.
func (m *EfficiencyModel) UseWind() bool { return m.useWind }

// Efficiency returns the power multiplier for a combined irradiance
// [W/m2] and module temperature [degC]. Zero or negative irradiance
// yields exactly zero.
func (m *EfficiencyModel) Efficiency(irradiance, moduleTemp float64) float64 {
	relIrr := 0.001 * irradiance
	if relIrr <= 0. {
		return 0.
	}
	lnIrr := math.Log(relIrr)
	tPrime := moduleTemp - stcTemperature

	k := &m.coeffs
	pm := k[0] + lnIrr*(k[1]+lnIrr*k[2]) +
		tPrime*(k[3]+lnIrr*(k[4]+lnIrr*k[5])+k[6]*tPrime)

	return pm / k[0]
}

// ModuleTemperature synthesizes the module temperature [degC] from the
// ambient temperature and an irradiance-proportional rise. With wind
// data the rise uses the Faiman wind-speed coupling instead of the
// constant coefficient.
func (m *EfficiencyModel) ModuleTemperature(irradiance, ambient, windSpeed float64) float64 {
	if m.useWind {
		return ambient + irradiance/(m.coeffs[7]+m.coeffs[8]*windSpeed)
	}
	return ambient + irradiance*m.coeffs[7]
}

// InterpolateAmbient blends the two nearest of the per-day ambient
// temperature slots at a local time of day. hour is decimal solar time,
// longitude [rad] shifts it to the cell's local time; slots wrap at
// midnight.
func InterpolateAmbient(slots []float64, hour, longitude float64) float64 {
	locTime := hour - longitude*rad2deg/15.
	if locTime < 0. {
		locTime += 24
	}
	if locTime >= 24 {
		locTime -= 24
	}

	interval := 24. / float64(len(slots))
	prev := int(locTime / interval)
	if prev >= len(slots) {
		prev = len(slots) - 1
	}
	next := prev + 1
	if next == len(slots) {
		next = 0
	}

	frac := locTime - interval*float64(prev)
	return slots[prev] + (frac/interval)*(slots[next]-slots[prev])
}

// WindSpeed evaluates the per-cell cubic wind-speed polynomial at a
// time of day [decimal hours].
func WindSpeed(coeffs [4]float64, hour float64) float64 {
	return coeffs[0]*hour*hour*hour + coeffs[1]*hour*hour + coeffs[2]*hour + coeffs[3]
}
