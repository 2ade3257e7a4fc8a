package main

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/kass/track2route/pkg/export"
	"github.com/kass/track2route/pkg/models"
	"github.com/kass/track2route/pkg/report"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/kass/track2route/pkg/synth"
)

func main() {
	// A hand-made track: a walk along the Zurich lake shore
	shore := models.Track{
		Name: "Seepromenade",
		Points: []models.TrackPoint{
			{Location: models.Location{Lat: 47.36667, Lon: 8.54280}},
			{Location: models.Location{Lat: 47.36610, Lon: 8.54290}},
			{Location: models.Location{Lat: 47.36552, Lon: 8.54301}},
			{Location: models.Location{Lat: 47.36490, Lon: 8.54315}},
			{Location: models.Location{Lat: 47.36431, Lon: 8.54410}},
			{Location: models.Location{Lat: 47.36370, Lon: 8.54520}},
			{Location: models.Location{Lat: 47.36309, Lon: 8.54633}},
			{Location: models.Location{Lat: 47.36210, Lon: 8.54660}},
		},
	}

	// Example 1: simplify with a 10 m tolerance
	fmt.Println("=== Tolerance 10 m ===")
	res, err := simplify.Simplify(shore, simplify.Options{Tolerance: 10})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d -> %d points, kept indices %v, stopped by %s\n",
		res.Stats.OriginalPoints, res.Stats.FinalPoints, res.Indices, res.Stats.StopReason)

	// Example 2: ask for a fixed number of points instead
	fmt.Println("\n=== Exactly 3 points ===")
	res, err = simplify.Simplify(shore, simplify.Options{Tolerance: math.Inf(1), MaxPoints: 3})
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range res.Route.Points {
		fmt.Printf("  (%.5f, %.5f)\n", p.Lat, p.Lon)
	}

	// Example 3: how far does a synthetic ride stray from its route?
	fmt.Println("\n=== Deviation report ===")
	ride := synth.RandomWalk(synth.DefaultParams())
	rideRes, err := simplify.Simplify(ride, simplify.Options{Tolerance: 15})
	if err != nil {
		log.Fatal(err)
	}
	rep, err := report.Build(ride, rideRes.Route, report.Options{Tolerance: 15})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d track points, %d route points\n", rep.TrackPoints, rep.RoutePoints)
	fmt.Printf("max %.2f m, mean %.2f m, p95 %.2f m\n", rep.MaxDeviation, rep.MeanDeviation, rep.P95Deviation)

	// Example 4: export both routes as GeoJSON
	fmt.Println("\n=== GeoJSON ===")
	if err := export.WriteGeoJSON(os.Stdout, []models.Route{res.Route, rideRes.Route}); err != nil {
		log.Fatal(err)
	}
}
