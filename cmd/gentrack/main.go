package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/synth"
)

func main() {
	defaults := synth.DefaultParams()

	var (
		numPoints  = flag.Int("n", defaults.Points, "Points per track")
		numTracks  = flag.Int("tracks", 1, "Number of tracks")
		outputFile = flag.String("o", "data/synthetic.gpx", "Output file path")
		workers    = flag.Int("w", runtime.NumCPU(), "Number of worker goroutines")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed of the first track")
		step       = flag.Float64("step", defaults.StepMeters, "Distance between fixes in meters")
		jitter     = flag.Float64("jitter", defaults.Jitter, "Recording noise in meters")
		turnRate   = flag.Float64("turn", defaults.TurnRate, "Largest heading change per fix in degrees")
		// Start of the walk (default: Zermatt)
		lat = flag.Float64("lat", defaults.Start.Lat, "Start latitude")
		lon = flag.Float64("lon", defaults.Start.Lon, "Start longitude")
	)
	flag.Parse()

	if dir := filepath.Dir(*outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	params := defaults
	params.Points = *numPoints
	params.Seed = *seed
	params.StepMeters = *step
	params.Jitter = *jitter
	params.TurnRate = *turnRate
	params.Start.Lat = *lat
	params.Start.Lon = *lon

	log.Printf("Generating %d track(s) of %d points with %d workers...", *numTracks, *numPoints, *workers)
	log.Printf("Start (%.5f, %.5f), step %.1f m, jitter %.1f m", *lat, *lon, *step, *jitter)

	startTime := time.Now()
	tracks := synth.Batch(params, *numTracks, *workers)
	genTime := time.Since(startTime)
	log.Printf("Generated in %v (%.0f points/sec)",
		genTime, float64(*numPoints**numTracks)/genTime.Seconds())

	doc := gpxio.NewDocument()
	for _, t := range tracks {
		doc.AddTrack(t)
	}

	log.Printf("Saving tracks to %s...", *outputFile)
	if err := doc.Save(*outputFile); err != nil {
		log.Fatalf("Failed to save tracks: %v", err)
	}

	if fileInfo, err := os.Stat(*outputFile); err == nil {
		log.Printf("GPX file size: %.2f MB", float64(fileInfo.Size())/(1024*1024))
	}
}
