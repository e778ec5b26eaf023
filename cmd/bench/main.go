// Command bench appends entries from concurrent writers to one dataset and
// reports how many survived. In legacy mode writers that read the same prior
// state overwrite each other; atomic mode should keep every entry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/catset"
	"github.com/aretw0/catset/pkg/core"
)

func main() {
	writers := flag.Int("writers", 8, "Number of concurrent writers")
	perWriter := flag.Int("count", 25, "Entries appended by each writer")
	backend := flag.String("store", "fs", "Store backend: fs, memory or sqlite")
	keep := flag.Bool("keep", false, "Keep the benchmark directory after running")
	verbose := flag.Bool("verbose", false, "Log every append")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "catset_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	fmt.Printf("%d writers x %d entries on the %s store (%s)\n", *writers, *perWriter, *backend, benchDir)
	fmt.Printf("--------------------------------------------------\n")
	for _, mode := range []core.AppendMode{core.AppendLegacy, core.AppendAtomic} {
		res, err := run(mode, *backend, benchDir, *writers, *perWriter, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", mode, err)
			os.Exit(1)
		}
		fmt.Printf("%-7s submitted=%d stored=%d lost=%d failed=%d conflicts=%d took=%v\n",
			mode, res.submitted, res.stored, res.submitted-res.failed-res.stored, res.failed, res.conflicts, res.took)
	}
	fmt.Printf("--------------------------------------------------\n")
}

type result struct {
	submitted int
	stored    int
	failed    int
	conflicts int64
	took      time.Duration
}

func run(mode core.AppendMode, backend, dir string, writers, perWriter int, logger *slog.Logger) (result, error) {
	cfg := catset.DefaultConfig()
	cfg.Store.Backend = backend
	cfg.Store.Path = dir
	cfg.Store.Gitless = true // measure the append race, not git
	cfg.AppendMode = string(mode)
	cfg.MaxRetries = writers * 4
	cfg.Dataset = "bench/" + string(mode)

	ctx := context.Background()
	rt, err := catset.Open(ctx, &cfg, catset.WithLogger(logger))
	if err != nil {
		return result{}, err
	}
	defer rt.Close()

	var failed atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				code := fmt.Sprintf("int w%d = %d;", w, i)
				if _, err := rt.Submit(ctx, code, fmt.Sprintf("writer %d entry %d", w, i)); err != nil {
					failed.Add(1)
					logger.Warn("append failed", "writer", w, "error", err)
				}
			}
		}(w)
	}
	wg.Wait()
	took := time.Since(start)

	entries, err := rt.Entries(ctx)
	if err != nil {
		return result{}, err
	}
	state := rt.Aggregator.State().(core.AggregatorState)
	return result{
		submitted: writers * perWriter,
		stored:    len(entries),
		failed:    int(failed.Load()),
		conflicts: state.Conflicts,
		took:      took,
	}, nil
}
