package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/twpayne/go-geoanchor"
)

type config struct {
	Latitude    float64 `mapstructure:"lat"`
	Longitude   float64 `mapstructure:"lon"`
	Elevation   float64 `mapstructure:"elev"`
	Units       string  `mapstructure:"units"`
	NorthX      float64 `mapstructure:"north-x"`
	NorthY      float64 `mapstructure:"north-y"`
	Target      string  `mapstructure:"target"`
	Library     string  `mapstructure:"library"`
	ProbeOffset float64 `mapstructure:"probe-offset"`
	CacheSize   int     `mapstructure:"cache-size"`
	DEM         string  `mapstructure:"dem"`
	LogLevel    string  `mapstructure:"log-level"`
}

func newFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("geoanchor", pflag.ContinueOnError)
	flagSet.Float64("lat", 0, "anchor latitude in degrees")
	flagSet.Float64("lon", 0, "anchor longitude in degrees")
	flagSet.Float64("elev", 0, "anchor elevation in meters")
	flagSet.String("units", geoanchor.Meters.String(), "model units")
	flagSet.Float64("north-x", 0, "x component of model north")
	flagSet.Float64("north-y", 1, "y component of model north")
	flagSet.String("target", geoanchor.WGS84, "target CRS")
	flagSet.String("library", "gdal", "CRS library (gdal or proj-string)")
	flagSet.Float64("probe-offset", geoanchor.DefaultProbeOffset, "probe offset in degrees")
	flagSet.Int("cache-size", 0, "resolution cache size")
	flagSet.String("dem", "", "path to EU-DEM tiles for draping")
	flagSet.String("log-level", logrus.InfoLevel.String(), "log level")
	return flagSet
}

// loadConfig reads configuration from flags, the environment, and an
// optional geoanchor.yaml, in decreasing order of precedence.
func loadConfig(flagSet *pflag.FlagSet) (*config, error) {
	v := viper.New()

	if err := v.BindPFlags(flagSet); err != nil {
		return nil, err
	}

	v.SetConfigName("geoanchor")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// GEOANCHOR_NORTH_X sets north-x.
	v.SetEnvPrefix("GEOANCHOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate returns all the problems with c.
func (c *config) validate() error {
	var errs []error
	if _, err := c.anchor(); err != nil {
		errs = append(errs, err)
	}
	if c.Target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	switch c.Library {
	case "gdal", "proj-string":
	default:
		errs = append(errs, fmt.Errorf("%s: unknown library", c.Library))
	}
	if !(0 < c.ProbeOffset && c.ProbeOffset <= 10) {
		errs = append(errs, fmt.Errorf("probe-offset must be in (0, 10], got %v", c.ProbeOffset))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache-size must be non-negative, got %d", c.CacheSize))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// anchor returns the anchor described by c.
func (c *config) anchor() (geoanchor.GeoAnchor, error) {
	unitSystem, err := geoanchor.ParseUnitSystem(c.Units)
	if err != nil {
		return geoanchor.GeoAnchor{}, err
	}
	anchor := geoanchor.GeoAnchor{
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Elevation:  c.Elevation,
		ModelNorth: geoanchor.Vector3{X: c.NorthX, Y: c.NorthY},
		UnitSystem: unitSystem,
	}
	if math.Hypot(c.NorthX, c.NorthY) == 0 {
		return geoanchor.GeoAnchor{}, errors.New("north-x and north-y must not both be zero")
	}
	if err := anchor.Validate(); err != nil {
		return geoanchor.GeoAnchor{}, err
	}
	return anchor, nil
}

// library returns the CRS library named by c.
func (c *config) library() geoanchor.SpatialReferenceLibrary {
	if c.Library == "proj-string" {
		return geoanchor.NewProjStringLibrary()
	}
	return geoanchor.NewGDALLibrary()
}
