// Package bulk runs one function over many items with a bounded worker pool
// and collects per-item outcomes.
package bulk

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// Exit codes for a finished run.
const (
	ExitAllSucceeded = 0
	ExitAllFailed    = 1
	ExitPartial      = 5
)

// Operation configures a bulk run
type Operation struct {
	// Jobs is the worker count; 0 uses runtime.NumCPU.
	Jobs int
	// ContinueOnError keeps going after a failed item. Otherwise the run
	// stops handing out work once any item fails.
	ContinueOnError bool
	// Progress, when set, receives one line per finished item.
	Progress io.Writer
}

// ItemFunc processes the item at index
type ItemFunc func(ctx context.Context, index int) error

// Outcome is the result for one item. Skipped items were never started
// because the run stopped early.
type Outcome struct {
	Index   int
	Label   string
	Err     error
	Skipped bool
}

// Result summarizes a bulk run. Outcomes are in item order.
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Outcomes   []Outcome
}

// Execute runs fn for every label's index. Labels only name items in
// progress output and the summary.
func (op *Operation) Execute(ctx context.Context, labels []string, fn ItemFunc) *Result {
	result := &Result{
		TotalItems: len(labels),
		Outcomes:   make([]Outcome, len(labels)),
	}
	if len(labels) == 0 {
		return result
	}

	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(labels) {
		jobs = len(labels)
	}

	queue := make(chan int, len(labels))
	for i := range labels {
		queue <- i
	}
	close(queue)

	var (
		stop       int32
		progressMu sync.Mutex
		wg         sync.WaitGroup
	)

	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				out := Outcome{Index: i, Label: labels[i]}
				if atomic.LoadInt32(&stop) == 1 || ctx.Err() != nil {
					out.Skipped = true
					result.Outcomes[i] = out
					continue
				}

				out.Err = fn(ctx, i)
				if out.Err != nil && !op.ContinueOnError {
					atomic.StoreInt32(&stop, 1)
				}
				result.Outcomes[i] = out

				if op.Progress != nil {
					progressMu.Lock()
					if out.Err != nil {
						fmt.Fprintf(op.Progress, "%s: error: %v\n", out.Label, out.Err)
					} else {
						fmt.Fprintf(op.Progress, "%s: success\n", out.Label)
					}
					progressMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	for _, out := range result.Outcomes {
		switch {
		case out.Skipped:
			result.Skipped++
		case out.Err != nil:
			result.Failed++
		default:
			result.Succeeded++
		}
	}
	return result
}

// Errors returns the failed outcomes in item order
func (r *Result) Errors() []Outcome {
	var failed []Outcome
	for _, out := range r.Outcomes {
		if out.Err != nil {
			failed = append(failed, out)
		}
	}
	return failed
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && r.Skipped == 0 {
		return ExitAllSucceeded
	}
	if r.Succeeded > 0 {
		return ExitPartial
	}
	return ExitAllFailed
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "\n✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "\n✗ No operations succeeded (%d failed, %d skipped)\n", r.Failed, r.Skipped)
	default:
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	errs := r.Errors()
	if len(errs) == 0 {
		return
	}
	if len(errs) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(errs))
		errs = errs[:10]
	} else {
		fmt.Fprintf(w, "\nErrors:\n")
	}
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %v\n", e.Label, e.Err)
	}
}
