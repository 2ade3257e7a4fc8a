// Package synth generates noisy GPS-like tracks for benchmarks and manual testing
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/kass/track2route/pkg/geo"
	"github.com/kass/track2route/pkg/models"
)

// Params describes a random walk
type Params struct {
	Start      models.Location
	Points     int
	StepMeters float64
	// Jitter is the standard deviation of the recording noise in meters
	Jitter float64
	// TurnRate is the largest heading change per step in degrees
	TurnRate  float64
	Interval  time.Duration
	StartTime time.Time
	Seed      int64
}

// DefaultParams returns a 1 Hz walk of 1000 points around Zermatt
func DefaultParams() Params {
	return Params{
		Start:      models.Location{Lat: 46.0207, Lon: 7.7491},
		Points:     1000,
		StepMeters: 4,
		Jitter:     2,
		TurnRate:   15,
		Interval:   time.Second,
		StartTime:  time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC),
		Seed:       1,
	}
}

// RandomWalk generates a track. The same Params always give the same track.
func RandomWalk(p Params) models.Track {
	r := rand.New(rand.NewSource(p.Seed))
	sphere := geo.Spherical{}

	points := make([]models.TrackPoint, p.Points)
	pos := p.Start
	heading := r.Float64() * 360
	ele := 1600 + r.Float64()*400

	for i := range points {
		recorded := pos
		if p.Jitter > 0 {
			recorded = sphere.Destination(pos, r.Float64()*360, math.Abs(r.NormFloat64())*p.Jitter)
		}
		e := math.Round(ele*10) / 10
		points[i] = models.TrackPoint{
			Location:  recorded,
			Elevation: &e,
			Time:      p.StartTime.Add(time.Duration(i) * p.Interval),
		}

		heading = math.Mod(heading+(r.Float64()*2-1)*p.TurnRate+360, 360)
		step := p.StepMeters * (0.5 + r.Float64())
		pos = sphere.Destination(pos, heading, step)
		ele += r.NormFloat64() * 0.5
	}

	return models.Track{
		Name:        fmt.Sprintf("synthetic-%d", p.Seed),
		Description: fmt.Sprintf("random walk, %d points, seed %d", p.Points, p.Seed),
		Points:      points,
	}
}

// Batch generates n tracks in parallel; track i uses seed p.Seed+i
func Batch(p Params, n, workers int) []models.Track {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tracks := make([]models.Track, n)

	work := make(chan int, n)
	done := make(chan bool, workers)
	for w := 0; w < workers; w++ {
		go func() {
			for i := range work {
				params := p
				params.Seed = p.Seed + int64(i)
				tracks[i] = RandomWalk(params)
			}
			done <- true
		}()
	}

	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)

	for w := 0; w < workers; w++ {
		<-done
	}
	return tracks
}
