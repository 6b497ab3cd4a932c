// Package collect runs journal extraction over many input files at once.
//
// Each file is extracted by an independent task on a bounded pool. Tasks
// share nothing; results are gathered in completion order and then put back
// in argument order so that everything downstream is deterministic. Callers
// must still not rely on entry order: the temporal sort establishes it.
package collect

import (
	"context"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/journal"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/sourcegraph/conc/pool"
)

var collectLog = logger.New("collect:collect")

// Extractor extracts the relevant entries of one file.
type Extractor interface {
	Extract(ctx context.Context, path string) (journal.Result, error)
}

// FileResult is the outcome of extracting one input file.
type FileResult struct {
	// Index is the position of the file in the argument list.
	Index int
	journal.Result
	// Err is set when the file could not be read at all. Other files are
	// unaffected.
	Err error
}

// Options tunes Run.
type Options struct {
	// Workers bounds concurrent extractions. Zero means DefaultWorkers().
	Workers int
	// Progress, when set, is called after each file finishes with the number
	// of finished files. It may be called from several goroutines.
	Progress func(done, total int)
}

// DefaultWorkers is twice the number of usable processors. Extraction mostly
// waits on journalctl, so oversubscribing keeps the processors busy.
func DefaultWorkers() int {
	return constants.WorkersPerCPU * runtime.NumCPU()
}

// Run extracts every path concurrently and returns one FileResult per path,
// ordered by Index.
func Run(ctx context.Context, x Extractor, paths []string, opts Options) []FileResult {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, constants.MaxWorkers)
	collectLog.Printf("Extracting %d files with %d workers", len(paths), workers)
	if len(paths) == 0 {
		return nil
	}

	var done atomic.Int64
	p := pool.NewWithResults[FileResult]().
		WithContext(ctx).
		WithMaxGoroutines(workers)

	for i, path := range paths {
		p.Go(func(ctx context.Context) (FileResult, error) {
			res, err := x.Extract(ctx, path)
			if res.Path == "" {
				res.Path = path
			}
			if err != nil {
				collectLog.Printf("Extraction of %s failed: %v", path, err)
			}
			n := done.Add(1)
			if opts.Progress != nil {
				opts.Progress(int(n), len(paths))
			}
			// Failures travel in the result so one bad file never cancels
			// the others through the pool context.
			return FileResult{Index: i, Result: res, Err: err}, nil
		})
	}

	results, _ := p.Wait()
	slices.SortFunc(results, func(a, b FileResult) int { return a.Index - b.Index })
	return results
}

// Flatten concatenates the entries of all results.
func Flatten(results []FileResult) []journal.Entry {
	n := 0
	for _, r := range results {
		n += len(r.Entries)
	}
	entries := make([]journal.Entry, 0, n)
	for _, r := range results {
		entries = append(entries, r.Entries...)
	}
	return entries
}
