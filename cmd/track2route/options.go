package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kass/track2route/pkg/config"
	"github.com/kass/track2route/pkg/export"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/spf13/cobra"
)

// simplifyFlags are shared by every command that simplifies tracks
type simplifyFlags struct {
	tolerance   float64
	routePoints int
	preSimplify bool
	maxDistance float64
	workers     int
}

func (f *simplifyFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&f.tolerance, "tolerance", "t", 10, "Largest deviation in meters a removed point may have")
	cmd.Flags().IntVarP(&f.routePoints, "routepoints", "n", 0, "Stop at this many route points (0 = no cap)")
	cmd.Flags().BoolVar(&f.preSimplify, "simplify", false, "Thin tracks with Ramer-Douglas-Peucker first")
	cmd.Flags().Float64Var(&f.maxDistance, "max-distance", 10, "Distance in meters for --simplify")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "Tracks simplified in parallel (0 = all CPUs)")
}

// options merges the config with the flags the user set explicitly
func (f *simplifyFlags) options(cmd *cobra.Command, c *config.Config) simplify.Options {
	return resolveOptions(c,
		f.tolerance, cmd.Flags().Changed("tolerance"),
		f.routePoints, cmd.Flags().Changed("routepoints"))
}

// resolveOptions applies flag overrides to the configured values. A point
// count given without a tolerance removes the tolerance bound, so the route
// gets exactly that many points. An explicit count of 0 lifts the cap and
// keeps the configured tolerance.
func resolveOptions(c *config.Config, tolerance float64, toleranceSet bool, routePoints int, routePointsSet bool) simplify.Options {
	opts := simplify.Options{
		Tolerance: c.Simplify.Tolerance,
		MaxPoints: c.Simplify.RoutePoints,
		Metric:    c.Metric(),
	}
	if toleranceSet {
		opts.Tolerance = tolerance
	}
	if routePointsSet {
		opts.MaxPoints = routePoints
		if !toleranceSet && routePoints > 0 {
			opts.Tolerance = math.Inf(1)
		}
	}
	return opts
}

// resolveFormat picks the output format from an explicit name or the file extension
func resolveFormat(outFile, name string) (export.Format, error) {
	if name != "" {
		return export.ParseFormat(name)
	}
	if outFile == "-" {
		return export.FormatGPX, nil
	}
	return export.DetectFormat(outFile)
}

// parseBox reads "minLat,minLon,maxLat,maxLon"
func parseBox(s string) (models.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BoundingBox{}, fmt.Errorf("box %q: want minLat,minLon,maxLat,maxLon", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("box %q: %w", s, err)
		}
		v[i] = f
	}

	box := models.BoundingBox{
		BottomLeft: models.Location{Lat: v[0], Lon: v[1]},
		TopRight:   models.Location{Lat: v[2], Lon: v[3]},
	}
	if box.BottomLeft.Lat > box.TopRight.Lat || box.BottomLeft.Lon > box.TopRight.Lon {
		return models.BoundingBox{}, fmt.Errorf("box %q: minimum exceeds maximum", s)
	}
	return box, nil
}

// formatTolerance renders a tolerance, which is infinite when only a point count bounds the route
func formatTolerance(tol float64) string {
	if math.IsInf(tol, 1) {
		return "none"
	}
	return fmt.Sprintf("%.1f m", tol)
}
