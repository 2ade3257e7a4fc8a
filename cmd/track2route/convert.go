package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kass/track2route/pkg/export"
	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT.gpx",
	Short: "Convert every track of a GPX file into a route",
	Long: `Convert reads all tracks of a GPX file (segments joined), simplifies each
into a route carrying the track's name and description and writes the result.
GPX output keeps the original document and appends one <rte> per track unless
--drop-tracks is given; other formats contain the routes only.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var (
	convertFlags simplifyFlags
	outFile      string
	outFormat    string
	dropTracks   bool
)

func init() {
	convertFlags.register(convertCmd)
	convertCmd.Flags().StringVarP(&outFile, "outfile", "o", "output.gpx", "Output file, - for stdout")
	convertCmd.Flags().StringVarP(&outFormat, "format", "f", "", "Output format: gpx, kml, geojson, polyline (default from extension)")
	convertCmd.Flags().BoolVar(&dropTracks, "drop-tracks", false, "Leave the original tracks out of GPX output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts := convertFlags.options(cmd, cfg)

	target := cfg.Output.File
	if cmd.Flags().Changed("outfile") {
		target = outFile
	}
	formatName := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		formatName = outFormat
	}
	format, err := resolveFormat(target, formatName)
	if err != nil {
		return err
	}
	keepTracks := cfg.Output.KeepTracks && !dropTracks

	doc, err := gpxio.Load(args[0])
	if err != nil {
		return err
	}
	tracks := doc.Tracks()
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks found in %s", args[0])
	}

	if convertFlags.preSimplify {
		for i := range tracks {
			before := len(tracks[i].Points)
			tracks[i] = simplify.DouglasPeucker(tracks[i], convertFlags.maxDistance)
			if verbose {
				log.Printf("Track %d: Douglas-Peucker kept %d of %d points", i, len(tracks[i].Points), before)
			}
		}
	}

	start := time.Now()
	results, err := simplify.SimplifyAll(tracks, opts, convertFlags.workers)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	routes := make([]models.Route, len(results))
	for i, res := range results {
		routes[i] = res.Route
	}

	if target == "-" {
		out = os.Stderr
		err = writeRoutes(os.Stdout, doc, routes, format, keepTracks)
	} else {
		err = saveRoutes(target, doc, routes, format, keepTracks)
	}
	if err != nil {
		return err
	}

	printTitle("track2route")
	printStat("Input", args[0])
	printStat("Tolerance", formatTolerance(opts.Tolerance))
	if opts.MaxPoints > 0 {
		printStat("Route points", opts.MaxPoints)
	}
	for i, res := range results {
		name := res.Route.Name
		if name == "" {
			name = fmt.Sprintf("track %d", i+1)
		}
		printSubtitle(name)
		printStat("Points", fmt.Sprintf("%d -> %d (%.1f%% removed)", res.Stats.OriginalPoints, res.Stats.FinalPoints, res.Stats.PointsPercent))
		printStat("Largest removed deviation", fmt.Sprintf("%.2f m", res.Stats.MaxRemovedScore))
		printStat("Stopped by", res.Stats.StopReason)
	}
	fmt.Fprintln(out)
	printSuccess(fmt.Sprintf("Wrote %d route(s) as %s to %s in %v", len(routes), format, target, elapsed))
	return nil
}

// writeRoutes encodes routes. GPX output reuses doc so the original tracks,
// waypoints and metadata survive.
func writeRoutes(w io.Writer, doc *gpxio.Document, routes []models.Route, format export.Format, keepTracks bool) error {
	if format != export.FormatGPX {
		return export.Write(w, format, routes)
	}
	if !keepTracks {
		doc.DropTracks()
	}
	for _, r := range routes {
		doc.AddRoute(r)
	}
	return doc.Write(w)
}

func saveRoutes(path string, doc *gpxio.Document, routes []models.Route, format export.Format, keepTracks bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := writeRoutes(file, doc, routes, format, keepTracks); err != nil {
		return err
	}
	return file.Close()
}
