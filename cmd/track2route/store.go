package main

import (
	"fmt"
	"log"
	"time"

	"github.com/kass/track2route/pkg/gpxio"
	"github.com/kass/track2route/pkg/postgis"
	"github.com/kass/track2route/pkg/simplify"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep routes in a PostGIS database",
}

var storePutCmd = &cobra.Command{
	Use:   "put INPUT.gpx...",
	Short: "Simplify the tracks of GPX files and store the routes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStorePut,
}

var storeFindCmd = &cobra.Command{
	Use:   "find",
	Short: "List stored routes crossing a bounding box",
	Args:  cobra.NoArgs,
	RunE:  runStoreFind,
}

var storeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database and table sizes",
	Args:  cobra.NoArgs,
	RunE:  runStoreStats,
}

var (
	storeFlags simplifyFlags
	resetTable bool
	findBox    string
)

func init() {
	storeFlags.register(storePutCmd)
	storePutCmd.Flags().BoolVar(&resetTable, "reset", false, "Drop the routes table before storing")
	storeFindCmd.Flags().StringVarP(&findBox, "box", "b", "-90,-180,90,180", "minLat,minLon,maxLat,maxLon")

	storeCmd.AddCommand(storePutCmd, storeFindCmd, storeStatsCmd)
}

func openStore() (*postgis.RouteStore, error) {
	if verbose {
		log.Printf("Connecting to PostGIS at %s:%d/%s", cfg.PostGIS.Host, cfg.PostGIS.Port, cfg.PostGIS.Database)
	}
	return postgis.NewRouteStore(cfg.PostGIS)
}

func runStorePut(cmd *cobra.Command, args []string) error {
	opts := storeFlags.options(cmd, cfg)

	var routes []postgis.StoredRoute
	for _, path := range args {
		doc, err := gpxio.Load(path)
		if err != nil {
			return err
		}
		tracks := doc.Tracks()
		if storeFlags.preSimplify {
			for i := range tracks {
				tracks[i] = simplify.DouglasPeucker(tracks[i], storeFlags.maxDistance)
			}
		}

		results, err := simplify.SimplifyAll(tracks, opts, storeFlags.workers)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, res := range results {
			routes = append(routes, postgis.StoredRoute{
				Source:         path,
				Tolerance:      opts.Tolerance,
				OriginalPoints: res.Stats.OriginalPoints,
				Route:          res.Route,
			})
		}
		if verbose {
			log.Printf("%s: %d route(s)", path, len(results))
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(resetTable); err != nil {
		return err
	}

	start := time.Now()
	ids, err := store.InsertRoutes(routes)
	if err != nil {
		return err
	}

	printTitle("Stored routes")
	for i, id := range ids {
		printStat(id.String(), fmt.Sprintf("%s (%d points)", routes[i].Route.Name, len(routes[i].Route.Points)))
	}
	printSuccess(fmt.Sprintf("Inserted %d route(s) in %v", len(ids), time.Since(start)))
	return nil
}

func runStoreFind(cmd *cobra.Command, args []string) error {
	box, err := parseBox(findBox)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	found, err := store.QueryBox(box)
	if err != nil {
		return err
	}

	printTitle("Routes in box")
	for _, s := range found {
		printStat(s.ID.String(), fmt.Sprintf("%s, %d points, %.0f m, from %s", s.Name, s.Points, s.LengthM, s.Source))
	}
	printInfo(fmt.Sprintf("%d route(s) found in %v", len(found), time.Since(start)))
	return nil
}

func runStoreStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetDatabaseStats()
	if err != nil {
		return err
	}

	printTitle("PostGIS")
	printStat("Database size", stats["database_size"])
	printStat("Table size", stats["table_size"])
	printStat("Index size", stats["index_size"])
	printStat("Routes stored", stats["row_count"])
	return nil
}
