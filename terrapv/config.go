package terrapv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the immutable run configuration. It is built once, from
// command-line options or a YAML file, validated, and passed by
// reference into the driver and integrator; there is no process-wide
// mutable state.
type Config struct {
	// Day of the year, 1-365.
	Day int `yaml:"day"`

	// Time is the local solar (or civil) time [decimal hours] for
	// instant mode; nil selects daily integration.
	Time *float64 `yaml:"time,omitempty"`

	// Step is the daily-mode integration step [hours].
	Step float64 `yaml:"step"`

	// Dist scales the ray-march sampling distance (0.5-1.5).
	Dist float64 `yaml:"dist"`

	// Constant surface orientation, used where no per-cell raster is
	// supplied. Degrees; aspect 270 is south, 0 means undefined.
	SlopeDeg  float64 `yaml:"slope"`
	AspectDeg float64 `yaml:"aspect"`

	// Constant atmospheric inputs, used where no per-cell raster is
	// supplied.
	Linke  float64 `yaml:"linke"`
	Albedo float64 `yaml:"albedo"`

	// Constant real-sky coefficients (or measured irradiance values in
	// measured mode), used where no per-cell raster is supplied.
	CBH float64 `yaml:"cbh"`
	CDH float64 `yaml:"cdh"`

	// Declination [rad, conventional sign] overriding the internal
	// day-of-year value.
	Declination *float64 `yaml:"declination,omitempty"`

	// CivilTime switches the run to civil time with the given timezone
	// offset [hours]; nil keeps local solar time.
	CivilTime *float64 `yaml:"civil_time,omitempty"`

	// HorizonStepDeg is the angular step of the horizon tables
	// [degrees]; required when horizon data is supplied.
	HorizonStepDeg float64 `yaml:"horizon_step,omitempty"`

	// Shadow enables terrain self-shadowing.
	Shadow bool `yaml:"shadow"`

	// AngleLoss enables the shallow-angle reflectivity loss.
	AngleLoss bool `yaml:"angle_loss"`

	// Measured reinterprets the beam/diffuse coefficient inputs as
	// instrument-measured global and diffuse horizontal irradiance.
	Measured bool `yaml:"measured"`

	// HighIrradiance drives the efficiency lookup with a parallel
	// clear-sky radiation pass instead of the real-sky values.
	HighIrradiance bool `yaml:"high_irradiance"`

	// NumPartitions splits the input layers into row chunks to bound
	// memory. Must be 1 when shadows are ray-marched on the fly.
	NumPartitions int `yaml:"num_partitions"`

	// ModelParams is an optional power-rating parameter file
	// overriding the built-in PV coefficients.
	ModelParams string `yaml:"model_parameters,omitempty"`
}

// DefaultConfig returns the defaults shared by the CLI and YAML paths.
func DefaultConfig() Config {
	return Config{
		Step:          0.5,
		Dist:          1.0,
		AspectDeg:     270,
		Linke:         3.0,
		Albedo:        0.2,
		CBH:           1.0,
		CDH:           1.0,
		NumPartitions: 1,
	}
}

// LoadConfig reads a YAML run configuration over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %v", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for the contradictions that must
// abort the run before any computation starts. hasHorizon reports
// whether precomputed horizon tables are available.
func (c *Config) Validate(hasHorizon bool) error {
	if c.Day < 1 || c.Day > 365 {
		return fmt.Errorf("day %d out of range 1-365", c.Day)
	}
	if c.Step <= 0 {
		return fmt.Errorf("time step must be positive, got %g", c.Step)
	}
	if c.Dist < 0.5 || c.Dist > 1.5 {
		return fmt.Errorf("sampling distance coefficient %g out of range 0.5-1.5", c.Dist)
	}
	if c.NumPartitions < 1 {
		return fmt.Errorf("number of partitions must be at least 1, got %d", c.NumPartitions)
	}
	if c.Shadow && !hasHorizon && c.NumPartitions != 1 {
		return fmt.Errorf("on-the-fly shadow computation needs the whole elevation grid: use one partition or supply horizon rasters")
	}
	if hasHorizon && c.HorizonStepDeg <= 0 {
		return fmt.Errorf("horizon rasters supplied without a positive horizon step")
	}
	if c.Time != nil && (*c.Time < 0 || *c.Time >= 24) {
		return fmt.Errorf("local time %g out of range 0-24", *c.Time)
	}
	if c.CivilTime != nil && (*c.CivilTime < -12 || *c.CivilTime > 12) {
		return fmt.Errorf("civil timezone offset %g out of range -12..12", *c.CivilTime)
	}
	return nil
}

// DeclinationValue resolves the declination [rad] in the internal sign
// convention, honoring a user override.
func (c *Config) DeclinationValue() float64 {
	if c.Declination != nil {
		return -*c.Declination
	}
	return Declination(c.Day)
}

// HorizonInterval returns the horizon table angular step [rad].
func (c *Config) HorizonInterval() float64 {
	return c.HorizonStepDeg * deg2rad
}

// HorizonDirections returns the number of per-cell horizon samples.
func (c *Config) HorizonDirections() int {
	return int(360. / c.HorizonStepDeg)
}
