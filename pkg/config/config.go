// Package config loads track2route settings from YAML
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/kass/track2route/pkg/export"
	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/postgis"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given; it may be absent
const DefaultFile = "track2route.yaml"

type SimplifyConfig struct {
	Tolerance   float64 `yaml:"tolerance"`
	RoutePoints int     `yaml:"route_points"`
	EarthRadius float64 `yaml:"earth_radius"`
}

type OutputConfig struct {
	// Format is empty to pick the format from the file extension
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	KeepTracks bool   `yaml:"keep_tracks"`
}

type ReportConfig struct {
	SearchRadius float64 `yaml:"search_radius"`
	Workers      int     `yaml:"workers"`
}

// Config is the full configuration file
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Report   ReportConfig   `yaml:"report"`
	PostGIS  postgis.Config `yaml:"postgis"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			Tolerance:   10,
			RoutePoints: 0,
			EarthRadius: geo.EarthRadius,
		},
		Output: OutputConfig{
			File:       "output.gpx",
			KeepTracks: true,
		},
		Report: ReportConfig{
			SearchRadius: 250,
		},
		PostGIS: postgis.Config{
			Host:              "localhost",
			Port:              5432,
			User:              "postgres",
			Database:          "geodb",
			MaxConnections:    10,
			ConnectionTimeout: 10,
		},
	}
}

// Load reads path on top of the defaults. An empty path means DefaultFile,
// which falls back to the defaults when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if math.IsNaN(c.Simplify.Tolerance) || c.Simplify.Tolerance < 0 {
		return fmt.Errorf("simplify.tolerance must be >= 0, got %v", c.Simplify.Tolerance)
	}
	if c.Simplify.RoutePoints < 0 || c.Simplify.RoutePoints == 1 {
		return fmt.Errorf("simplify.route_points must be 0 or at least 2, got %d", c.Simplify.RoutePoints)
	}
	if !(c.Simplify.EarthRadius > 0) {
		return fmt.Errorf("simplify.earth_radius must be positive, got %v", c.Simplify.EarthRadius)
	}
	if c.Output.Format != "" {
		if _, err := export.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}
	if c.Report.SearchRadius < 0 {
		return fmt.Errorf("report.search_radius must be >= 0, got %v", c.Report.SearchRadius)
	}
	return nil
}

// Metric returns the distance metric for the configured sphere
func (c *Config) Metric() geo.Spherical {
	return geo.NewSpherical(c.Simplify.EarthRadius)
}
