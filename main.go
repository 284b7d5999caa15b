// TerraPV
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/akamensky/argparse"
	"github.com/hhkbp2/go-logging"
	"github.com/terrapv/terrapv-go/terrapv"
)

func main() {
	parser := argparse.NewParser("terrapv", "Computes terrain-aware solar irradiance and photovoltaic power over a raster grid")

	elevin := parser.String("", "elevation", &argparse.Options{
		Required: true,
		Help:     "Elevation raster (CSV, optionally .gz)"})

	aspin := parser.String("", "aspect", &argparse.Options{
		Help: "Aspect raster, degrees counterclockwise from east, 0 = flat"})

	slopein := parser.String("", "slope", &argparse.Options{
		Help: "Slope raster, degrees from horizontal"})

	linkein := parser.String("", "linke", &argparse.Options{
		Help: "Linke atmospheric turbidity raster"})

	albedoIn := parser.String("", "albedo", &argparse.Options{
		Help: "Ground albedo raster"})

	latin := parser.String("", "latitude", &argparse.Options{
		Help: "Latitude raster, decimal degrees"})

	longin := parser.String("", "longitude", &argparse.Options{
		Help: "Longitude raster, decimal degrees"})

	coefbh := parser.String("", "coefbh", &argparse.Options{
		Help: "Real-sky beam coefficient raster (measured global irradiance in measured mode)"})

	coefdh := parser.String("", "coefdh", &argparse.Options{
		Help: "Real-sky diffuse coefficient raster (measured diffuse irradiance in measured mode)"})

	temperatures := parser.StringList("", "temperature", &argparse.Options{
		Help: "Ambient temperature rasters, one per equally spaced time slot of the day, in time order"})

	windFiles := parser.StringList("", "wind", &argparse.Options{
		Help: "Wind-speed polynomial coefficient rasters, exactly 4, cubic term first"})

	horizonBase := parser.String("", "horizon", &argparse.Options{
		Help: "Horizon raster basename; files are <basename>_<angle>.csv per direction"})

	horizonStep := parser.Float("", "horizon_step", &argparse.Options{
		Default: 0.,
		Help:    "Angular step of the horizon rasters, degrees"})

	west := parser.Float("", "west", &argparse.Options{
		Required: true, Help: "Western edge of the grid, projected units"})
	south := parser.Float("", "south", &argparse.Options{
		Required: true, Help: "Southern edge of the grid, projected units"})
	east := parser.Float("", "east", &argparse.Options{
		Required: true, Help: "Eastern edge of the grid, projected units"})
	north := parser.Float("", "north", &argparse.Options{
		Required: true, Help: "Northern edge of the grid, projected units"})

	day := parser.Int("", "day", &argparse.Options{
		Default: 172,
		Help:    "Day of the year (1-365)"})

	timeOfDay := parser.Float("", "time", &argparse.Options{
		Default: -1.,
		Help:    "Local time in decimal hours for a single-instant run; omit for daily totals"})

	step := parser.Float("", "step", &argparse.Options{
		Default: 0.5,
		Help:    "Daily integration step, decimal hours"})

	declin := parser.Float("", "declination", &argparse.Options{
		Default: -999.,
		Help:    "Solar declination override, radians (astronomical sign)"})

	dist := parser.Float("", "dist", &argparse.Options{
		Default: 1.0,
		Help:    "Shadow sampling distance coefficient (0.5-1.5)"})

	numPartitions := parser.Int("", "numpartitions", &argparse.Options{
		Default: 1,
		Help:    "Number of row chunks the input layers are read in"})

	civilTime := parser.Float("", "civiltime", &argparse.Options{
		Default: -999.,
		Help:    "Civil timezone offset in hours; switches the run from solar to civil time"})

	slopeVal := parser.Float("", "slope_value", &argparse.Options{
		Default: 0.,
		Help:    "Constant slope, degrees, when no slope raster is given"})

	aspectVal := parser.Float("", "aspect_value", &argparse.Options{
		Default: 270.,
		Help:    "Constant aspect, degrees counterclockwise from east (270 = south), when no aspect raster is given"})

	linkeVal := parser.Float("", "linke_value", &argparse.Options{
		Default: 3.0,
		Help:    "Constant Linke turbidity when no raster is given"})

	albedoVal := parser.Float("", "albedo_value", &argparse.Options{
		Default: 0.2,
		Help:    "Constant ground albedo when no raster is given"})

	cbhVal := parser.Float("", "cbh", &argparse.Options{
		Default: 1.0,
		Help:    "Constant real-sky beam coefficient when no raster is given"})

	cdhVal := parser.Float("", "cdh", &argparse.Options{
		Default: 1.0,
		Help:    "Constant real-sky diffuse coefficient when no raster is given"})

	modelParams := parser.String("", "modelparameters", &argparse.Options{
		Help: "Power-rating parameter CSV overriding the built-in module coefficients"})

	shadowFlag := parser.Flag("s", "shadow", &argparse.Options{
		Help: "Account for terrain shadowing"})

	angleLoss := parser.Flag("a", "angleloss", &argparse.Options{
		Help: "Apply the shallow-angle reflectivity loss"})

	highIrr := parser.Flag("i", "highirradiance", &argparse.Options{
		Help: "Drive the efficiency model with clear-sky irradiance"})

	measured := parser.Flag("m", "measured", &argparse.Options{
		Help: "Treat the beam/diffuse coefficients as measured irradiance"})

	beamOut := parser.String("", "beam_rad", &argparse.Options{
		Help: "Output raster: beam irradiance/irradiation"})
	diffOut := parser.String("", "diff_rad", &argparse.Options{
		Help: "Output raster: diffuse irradiance/irradiation"})
	reflOut := parser.String("", "refl_rad", &argparse.Options{
		Help: "Output raster: ground-reflected irradiance/irradiation"})
	powOut := parser.String("", "glob_pow", &argparse.Options{
		Help: "Output raster: photovoltaic power/energy per rated kilowatt"})
	modTempOut := parser.String("", "mod_temp", &argparse.Options{
		Help: "Output raster: module temperature"})
	insolOut := parser.String("", "insol_time", &argparse.Options{
		Help: "Output raster: unshadowed insolation duration, daily mode only"})

	logLevel := parser.Selector("", "log", []string{"debug", "info", "warn", "error"}, &argparse.Options{
		Default: "info",
		Help:    "Log level"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger := logging.GetLogger("terrapv")
	switch *logLevel {
	case "debug":
		logger.SetLevel(logging.LevelDebug)
	case "info":
		logger.SetLevel(logging.LevelInfo)
	case "warn":
		logger.SetLevel(logging.LevelWarn)
	case "error":
		logger.SetLevel(logging.LevelError)
	}

	cfg := terrapv.DefaultConfig()
	cfg.Day = *day
	cfg.Step = *step
	cfg.Dist = *dist
	cfg.SlopeDeg = *slopeVal
	cfg.AspectDeg = *aspectVal
	cfg.Linke = *linkeVal
	cfg.Albedo = *albedoVal
	cfg.CBH = *cbhVal
	cfg.CDH = *cdhVal
	cfg.HorizonStepDeg = *horizonStep
	cfg.Shadow = *shadowFlag
	cfg.AngleLoss = *angleLoss
	cfg.Measured = *measured
	cfg.HighIrradiance = *highIrr
	cfg.NumPartitions = *numPartitions
	cfg.ModelParams = *modelParams
	if *timeOfDay >= 0. {
		t := *timeOfDay
		cfg.Time = &t
	}
	if *declin > -999. {
		d := *declin
		cfg.Declination = &d
	}
	if *civilTime > -999. {
		c := *civilTime
		cfg.CivilTime = &c
	}

	layers, err := loadLayers(*elevin, *slopein, *aspin, *linkein, *albedoIn,
		*latin, *longin, *coefbh, *coefdh, *temperatures, *windFiles,
		*horizonBase, &cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	eff := terrapv.DefaultEfficiencyModel()
	if cfg.ModelParams != "" {
		eff, err = terrapv.LoadEfficiencyModel(cfg.ModelParams, len(layers.Wind) == 4)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	} else if len(layers.Wind) == 4 {
		logger.Errorf("wind rasters need a power-rating parameter file with a heat-loss coefficient")
		os.Exit(1)
	}

	want := terrapv.OutputSet{
		Beam:              *beamOut != "",
		Diffuse:           *diffOut != "",
		Reflected:         *reflOut != "",
		GlobalPower:       *powOut != "",
		ModuleTemperature: *modTempOut != "",
		InsolationTime:    *insolOut != "",
	}

	extent := terrapv.Extent{West: *west, South: *south, East: *east, North: *north}

	driver, err := terrapv.NewDriver(&cfg, layers, extent, terrapv.LatLonGrid{}, eff, want)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	lastDecile := 0
	driver.Progress = func(done, total int) {
		decile := 10 * done / total
		if decile > lastDecile {
			lastDecile = decile
			logger.Infof("processed %d%%", 10*decile)
		}
	}

	out, err := driver.Run()
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	save := func(p *terrapv.Plane, path string) {
		if p == nil || path == "" {
			return
		}
		logger.Infof("writing %s", path)
		if err := terrapv.WritePlaneCSV(p, path); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
	}
	save(out.Beam, *beamOut)
	save(out.Diffuse, *diffOut)
	save(out.Reflected, *reflOut)
	save(out.GlobalPower, *powOut)
	save(out.ModuleTemperature, *modTempOut)
	save(out.InsolationTime, *insolOut)

	logger.Infof("done")
}

func loadLayers(elevin, slopein, aspin, linkein, albedoIn, latin, longin, coefbh, coefdh string, temperatures, windFiles []string, horizonBase string, cfg *terrapv.Config) (*terrapv.Layers, error) {
	layers := &terrapv.Layers{}

	var err error
	if layers.Elevation, err = terrapv.ReadPlaneCSV(elevin); err != nil {
		return nil, err
	}

	assign := func(dst *terrapv.RowSource, path string) error {
		if path == "" {
			return nil
		}
		p, err := terrapv.ReadPlaneCSV(path)
		if err != nil {
			return err
		}
		*dst = p
		return nil
	}
	if err := assign(&layers.Slope, slopein); err != nil {
		return nil, err
	}
	if err := assign(&layers.Aspect, aspin); err != nil {
		return nil, err
	}
	if err := assign(&layers.Linke, linkein); err != nil {
		return nil, err
	}
	if err := assign(&layers.Albedo, albedoIn); err != nil {
		return nil, err
	}
	if err := assign(&layers.Latitude, latin); err != nil {
		return nil, err
	}
	if err := assign(&layers.Longitude, longin); err != nil {
		return nil, err
	}
	if err := assign(&layers.CoefBH, coefbh); err != nil {
		return nil, err
	}
	if err := assign(&layers.CoefDH, coefdh); err != nil {
		return nil, err
	}

	for _, path := range temperatures {
		p, err := terrapv.ReadPlaneCSV(path)
		if err != nil {
			return nil, err
		}
		layers.Temperatures = append(layers.Temperatures, p)
	}

	if len(windFiles) > 0 {
		if len(windFiles) != 4 {
			return nil, fmt.Errorf("wind needs exactly 4 coefficient rasters, got %d", len(windFiles))
		}
		for _, path := range windFiles {
			p, err := terrapv.ReadPlaneCSV(path)
			if err != nil {
				return nil, err
			}
			layers.Wind = append(layers.Wind, p)
		}
	}

	if horizonBase != "" {
		if cfg.HorizonStepDeg <= 0 {
			return nil, fmt.Errorf("horizon rasters need a positive --horizon_step")
		}
		dirs := cfg.HorizonDirections()
		planes := make(terrapv.PlaneHorizonSource, 0, dirs)
		angle := 0.
		for i := 0; i < dirs; i++ {
			path := fmt.Sprintf("%s_%s.csv", horizonBase,
				strconv.FormatFloat(angle, 'f', -1, 64))
			if _, serr := os.Stat(path); serr != nil {
				path += ".gz"
			}
			p, err := terrapv.ReadPlaneCSV(path)
			if err != nil {
				return nil, err
			}
			planes = append(planes, p)
			angle += cfg.HorizonStepDeg
		}
		layers.Horizon = planes
	}

	return layers, nil
}
