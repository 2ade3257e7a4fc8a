package main

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/kass/track2route/pkg/synth"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Simplify synthetic tracks concurrently and report throughput",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

var (
	benchFlags  simplifyFlags
	benchTracks int
	benchPoints int
	benchSeed   int64
	benchJitter float64
)

func init() {
	benchFlags.register(benchCmd)
	benchCmd.Flags().IntVar(&benchTracks, "tracks", 64, "Number of synthetic tracks")
	benchCmd.Flags().IntVarP(&benchPoints, "points", "p", 10000, "Points per track")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "Seed of the first track")
	benchCmd.Flags().Float64Var(&benchJitter, "jitter", 2, "Recording noise in meters")
}

// BenchmarkResult summarises one bench run
type BenchmarkResult struct {
	Workers         int
	Tracks          int
	TotalPoints     int64
	RemainingPoints int64
	TotalDuration   time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	PointsPerSec    float64
}

func runBench(cmd *cobra.Command, args []string) error {
	opts := benchFlags.options(cmd, cfg)
	workers := benchFlags.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	params := synth.DefaultParams()
	params.Points = benchPoints
	params.Seed = benchSeed
	params.Jitter = benchJitter

	log.Printf("Generating %d tracks of %d points...", benchTracks, benchPoints)
	start := time.Now()
	tracks := synth.Batch(params, benchTracks, workers)
	log.Printf("Generated in %v", time.Since(start))

	log.Printf("Simplifying with %d workers...", workers)
	result, err := benchmarkSimplify(tracks, opts, workers)
	if err != nil {
		return err
	}

	printTitle("Benchmark Results")
	printStat("Tracks", result.Tracks)
	printStat("Points", result.TotalPoints)
	printStat("Tolerance", formatTolerance(opts.Tolerance))
	printStat("Remaining points", fmt.Sprintf("%d (%.1f%%)", result.RemainingPoints,
		float64(result.RemainingPoints)/float64(max(result.TotalPoints, 1))*100))
	printStat("Total duration", result.TotalDuration)
	printStat("Fastest track", result.MinDuration)
	printStat("Slowest track", result.MaxDuration)
	printStat("Points/second", fmt.Sprintf("%.0f", result.PointsPerSec))
	printStat("Workers used", result.Workers)
	printStat("CPU cores", runtime.NumCPU())
	return nil
}

// benchmarkSimplify runs Simplify over tracks on a worker pool
func benchmarkSimplify(tracks []models.Track, opts simplify.Options, workers int) (BenchmarkResult, error) {
	var (
		totalPoints atomic.Int64
		remaining   atomic.Int64
		minDuration = time.Hour
		maxDuration time.Duration
		firstErr    error
		mu          sync.Mutex
	)

	startTime := time.Now()

	trackCh := make(chan models.Track, len(tracks))
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for track := range trackCh {
				t0 := time.Now()
				res, err := simplify.Simplify(track, opts)
				d := time.Since(t0)

				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("track %s: %w", track.Name, err)
				}
				minDuration = min(minDuration, d)
				maxDuration = max(maxDuration, d)
				mu.Unlock()

				if err == nil {
					totalPoints.Add(int64(res.Stats.OriginalPoints))
					remaining.Add(int64(res.Stats.FinalPoints))
				}
				if verbose {
					log.Printf("%s: %d -> %d points in %v", track.Name, res.Stats.OriginalPoints, res.Stats.FinalPoints, d)
				}
			}
		}()
	}

	for _, t := range tracks {
		trackCh <- t
	}
	close(trackCh)
	wg.Wait()

	if firstErr != nil {
		return BenchmarkResult{}, firstErr
	}

	total := time.Since(startTime)
	if len(tracks) == 0 {
		minDuration = 0
	}
	return BenchmarkResult{
		Workers:         workers,
		Tracks:          len(tracks),
		TotalPoints:     totalPoints.Load(),
		RemainingPoints: remaining.Load(),
		TotalDuration:   total,
		MinDuration:     minDuration,
		MaxDuration:     maxDuration,
		PointsPerSec:    float64(totalPoints.Load()) / total.Seconds(),
	}, nil
}
