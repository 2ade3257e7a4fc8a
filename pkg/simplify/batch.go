package simplify

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/kass/track2route/pkg/models"
)

// SimplifyAll simplifies tracks concurrently with up to workers goroutines.
// Results keep the order of tracks. workers <= 0 uses GOMAXPROCS. The first
// failing track (lowest index) determines the returned error.
func SimplifyAll(tracks []models.Track, opts Options, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tracks) {
		workers = len(tracks)
	}

	results := make([]Result, len(tracks))
	errs := make([]error, len(tracks))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = Simplify(tracks[i], opts)
			}
		}()
	}

	for i := range tracks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("track %d (%s): %w", i, tracks[i].Name, err)
		}
	}
	return results, nil
}
