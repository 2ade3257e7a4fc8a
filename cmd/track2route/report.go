package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/report"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report INPUT.gpx",
	Short: "Measure how far each track point lies from its route",
	Long: `Report simplifies every track (or, with --existing, takes the routes already
stored in the file, paired with the tracks by position) and measures the
distance from every track point to the nearest route leg.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportFlags  simplifyFlags
	searchRadius float64
	useExisting  bool
	jsonOutput   bool
)

func init() {
	reportFlags.register(reportCmd)
	reportCmd.Flags().Float64VarP(&searchRadius, "radius", "r", report.DefaultSearchRadius, "Leg search radius in meters")
	reportCmd.Flags().BoolVar(&useExisting, "existing", false, "Compare against the routes already in the file")
	reportCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the reports as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	opts := reportFlags.options(cmd, cfg)

	radius := cfg.Report.SearchRadius
	if cmd.Flags().Changed("radius") {
		radius = searchRadius
	}
	workers := cfg.Report.Workers
	if cmd.Flags().Changed("workers") {
		workers = reportFlags.workers
	}

	doc, err := gpxio.Load(args[0])
	if err != nil {
		return err
	}
	tracks := doc.Tracks()
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks found in %s", args[0])
	}

	routes, err := routesFor(doc, tracks, opts)
	if err != nil {
		return err
	}

	// with only a point cap there is no tolerance to count against
	threshold := opts.Tolerance
	if math.IsInf(threshold, 1) {
		threshold = cfg.Simplify.Tolerance
	}

	reports := make([]report.Report, len(tracks))
	for i := range tracks {
		rep, err := report.Build(tracks[i], routes[i], report.Options{
			Metric:       opts.Metric,
			Tolerance:    threshold,
			SearchRadius: radius,
			Workers:      workers,
		})
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}
		reports[i] = rep
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	printTitle("Route deviation report")
	for i, rep := range reports {
		name := rep.Name
		if name == "" {
			name = fmt.Sprintf("track %d", i+1)
		}
		printSubtitle(name)
		printStat("Points", fmt.Sprintf("%d track / %d route", rep.TrackPoints, rep.RoutePoints))
		printStat("Length", fmt.Sprintf("%.0f m track / %.0f m route", rep.TrackLength, rep.RouteLength))
		printStat("Max deviation", fmt.Sprintf("%.2f m (point %d)", rep.MaxDeviation, rep.WorstPoint))
		printStat("Mean deviation", fmt.Sprintf("%.2f m", rep.MeanDeviation))
		printStat("95th percentile", fmt.Sprintf("%.2f m", rep.P95Deviation))
		if rep.BeyondTolerance > 0 {
			printWarn(fmt.Sprintf("%d point(s) farther than %s from the route", rep.BeyondTolerance, formatTolerance(rep.Tolerance)))
		} else {
			printSuccess(fmt.Sprintf("every point within %s of the route", formatTolerance(rep.Tolerance)))
		}
	}
	return nil
}

// routesFor returns one route per track, either simplified now or taken from the document
func routesFor(doc *gpxio.Document, tracks []models.Track, opts simplify.Options) ([]models.Route, error) {
	if useExisting {
		existing := doc.Routes()
		if len(existing) < len(tracks) {
			return nil, fmt.Errorf("file has %d route(s) for %d track(s)", len(existing), len(tracks))
		}
		return existing[:len(tracks)], nil
	}

	results, err := simplify.SimplifyAll(tracks, opts, reportFlags.workers)
	if err != nil {
		return nil, err
	}
	routes := make([]models.Route, len(results))
	for i, res := range results {
		routes[i] = res.Route
	}
	return routes, nil
}
