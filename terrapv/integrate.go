package terrapv

// Integrator drives the radiation model over one cell, either at a
// single instant or integrated across a day in fixed time steps. One
// integrator serves the whole run; everything cell-specific arrives in
// the Cell argument.
type Integrator struct {
	Model RadiationModel
	Eff   *EfficiencyModel

	// Step is the daily-mode integration step [hours].
	Step float64

	// HighIrradiance drives the efficiency lookup with a parallel
	// clear-sky pass instead of the real-sky coefficients.
	HighIrradiance bool

	gg *GridGeometry
	rp Reprojector
}

// NewIntegrator assembles the run-wide integrator.
func NewIntegrator(cfg *Config, model RadiationModel, eff *EfficiencyModel, gg *GridGeometry, rp Reprojector) *Integrator {
	return &Integrator{
		Model:          model,
		Eff:            eff,
		Step:           cfg.Step,
		HighIrradiance: cfg.HighIrradiance,
		gg:             gg,
		rp:             rp,
	}
}

// Cell bundles everything the integrator needs for one grid cell. The
// grid geometry must already be positioned on the cell (SetCell) and
// the shadow resolver primed with the cell's elevation.
type Cell struct {
	Latitude  float64 // rad
	Longitude float64 // rad
	Elevation float64 // m

	Day   DayGeometry
	Slope SlopeGeometry
	Rad   RadiationInputs

	Shadow ShadowResolver

	// Temps are the per-day ambient temperature slots [degC]; empty
	// means no temperature data and unit efficiency.
	Temps []float64

	// Wind holds the cubic wind-speed polynomial coefficients when
	// HasWind is set.
	Wind    [4]float64
	HasWind bool

	// TimeOffset is the total solar-time offset [hours] applied to the
	// instant-mode time angle; zero in local-solar-time runs.
	TimeOffset float64
}

// CellResult carries the outputs of one cell. In instant mode Beam,
// Diffuse and Reflected are irradiances [W/m2] and Power is in watts
// per rated kilowatt; in daily mode they are energies [Wh/m2] and
// watt-hours.
type CellResult struct {
	Beam      float64
	Diffuse   float64
	Reflected float64
	Power     float64

	// ModuleTemperature is the instant value in instant mode and the
	// irradiance-weighted daytime mean in daily mode, valid only when
	// HasModuleTemperature is set.
	ModuleTemperature    float64
	HasModuleTemperature bool

	// InsolationTime is the unshadowed sunlit duration [hours], daily
	// mode only.
	InsolationTime float64
}

// Instant computes irradiance and power for one cell at a local time
// [decimal hours].
func (it *Integrator) Instant(cell *Cell, hour float64) (CellResult, error) {
	var res CellResult

	angle := TimeAngle(hour, cell.TimeOffset)
	sun, err := cell.Day.Instant(angle, cell.Latitude, cell.Longitude, it.gg, it.rp)
	if err != nil {
		return res, err
	}
	if sun.BelowAllDay || sun.SinAltitude <= 0. {
		return res, nil
	}

	sun.Shadowed = cell.Shadow.Shadowed(&sun)
	var s0 float64
	if !sun.Shadowed {
		s0 = cell.Slope.Incidence(sun.TimeAngle)
	}

	rv := cell.Rad
	var bh float64
	if !sun.Shadowed && s0 > 0. {
		res.Beam, bh = it.Model.Beam(s0, &sun, &cell.Slope, &rv)
	}
	res.Diffuse, res.Reflected = it.Model.Diffuse(s0, bh, &sun, &cell.Slope, &rv)

	tot := res.Beam + res.Diffuse + res.Reflected
	effic := 1.
	if len(cell.Temps) > 0 {
		ambient := InterpolateAmbient(cell.Temps, hour, cell.Longitude)
		var wind float64
		if cell.HasWind {
			wind = WindSpeed(cell.Wind, hour)
		}
		mt := it.Eff.ModuleTemperature(tot, ambient, wind)
		res.ModuleTemperature = mt
		res.HasModuleTemperature = true
		effic = it.Eff.Efficiency(tot, mt)
	}
	res.Power = effic * tot
	return res, nil
}

// Daily integrates irradiation and power for one cell from sunrise to
// sunset. The first step is centered inside the sunrise step so the
// step sequence is the same for every cell of a row regardless of
// where sunrise falls within a step.
//
// At every step the radiation pair runs twice: once with the clear-sky
// coefficients (unit coefficients in high-irradiance mode) to drive
// the efficiency model, once with the real-sky coefficients for the
// energy sums. The real beam is scaled from the clear-sky beam rather
// than recomputed; the diffuse term does not scale linearly and is
// evaluated for both passes.
func (it *Integrator) Daily(cell *Cell) (CellResult, error) {
	var res CellResult

	// rvCS aliases the real inputs unless high-irradiance mode forces a
	// separate unit-coefficient copy, so the measured-variant clamp on
	// CDH stays visible to the real-sky diffuse pass.
	rvReal := cell.Rad
	rvCS := &rvReal
	if it.HighIrradiance {
		cs := cell.Rad
		cs.CBH = 1.
		cs.CDH = 1.
		rvCS = &cs
	}

	step := it.Step
	srStepNo := int(cell.Day.Sunrise / step)
	var firstTime float64
	if cell.Day.Sunrise-float64(srStepNo)*step > 0.5*step {
		firstTime = (float64(srStepNo) + 1.5) * step
	} else {
		firstTime = (float64(srStepNo) + 0.5) * step
	}

	presTime := firstTime
	angle := (firstTime - 12.) * HourAngle
	lastAngle := (cell.Day.Sunset - 12.) * HourAngle
	dAngle := step * HourAngle

	haveTemps := len(cell.Temps) > 0
	var ambientSum, modTempSum, irrWeight float64
	var daySteps int

	for {
		sun, err := cell.Day.Instant(angle, cell.Latitude, cell.Longitude, it.gg, it.rp)
		if err != nil {
			return res, err
		}

		var beamCS, diffCS, reflCS float64
		var beamReal, diffReal, reflReal float64

		if !sun.BelowAllDay && sun.SinAltitude > 0. {
			sun.Shadowed = cell.Shadow.Shadowed(&sun)
			var s0 float64
			if !sun.Shadowed {
				s0 = cell.Slope.Incidence(sun.TimeAngle)
			}

			var bh float64
			if !sun.Shadowed && s0 > 0. {
				res.InsolationTime += step

				var br float64
				br, bh = it.Model.Beam(s0, &sun, &cell.Slope, rvCS)
				beamCS = br
				diffCS, reflCS = it.Model.Diffuse(s0, bh, &sun, &cell.Slope, rvCS)

				beamReal = br
				if it.HighIrradiance {
					beamReal = br * rvReal.CBH
					bh *= rvReal.CBH
				}
				res.Beam += step * beamReal
			} else {
				diffCS, reflCS = it.Model.Diffuse(s0, 0., &sun, &cell.Slope, rvCS)
			}

			diffReal, reflReal = it.Model.Diffuse(s0, bh, &sun, &cell.Slope, &rvReal)
			res.Diffuse += step * diffReal
			res.Reflected += step * reflReal
		}

		totCS := beamCS + diffCS + reflCS
		totReal := beamReal + diffReal + reflReal

		effic := 1.
		if haveTemps {
			ambient := InterpolateAmbient(cell.Temps, presTime, cell.Longitude)
			var wind float64
			if cell.HasWind {
				wind = WindSpeed(cell.Wind, presTime)
			}
			mt := it.Eff.ModuleTemperature(totCS, ambient, wind)
			effic = it.Eff.Efficiency(totCS, mt)

			ambientSum += ambient
			daySteps++
			if totReal > 0. {
				modTempSum += mt * totReal
				irrWeight += totReal
			}
		}
		res.Power += effic * totReal * step

		angle += dAngle
		if angle > lastAngle {
			break
		}
		presTime += step
	}

	if haveTemps {
		res.HasModuleTemperature = true
		if irrWeight > 0. {
			res.ModuleTemperature = modTempSum / irrWeight
		} else if daySteps > 0 {
			res.ModuleTemperature = ambientSum / float64(daySteps)
		}
	}
	return res, nil
}
