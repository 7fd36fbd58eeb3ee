// Package bulk runs the same command over a set of targets sequentially,
// pacing commands so a batch never floods the single event-channel
// connection, and aggregating one outcome per target.
package bulk

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const defaultPace = 500 * time.Millisecond

// Outcome is the result of one item in a batch. Index is set for creation
// batches, ID/Name for operations on existing monitors.
type Outcome struct {
	Index     *int   `json:"index,omitempty"`
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	MonitorID *int64 `json:"monitorID,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary aggregates a whole batch. Failed items never abort their siblings,
// so Total always equals the number of attempted targets.
type Summary struct {
	Results    []Outcome `json:"results"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
}

// Runner executes batches one item at a time with a pacing delay between
// consecutive items.
type Runner struct {
	limiter *rate.Limiter
}

// NewRunner builds a Runner with the given inter-item pace. A non-positive
// pace selects the default.
func NewRunner(pace time.Duration) *Runner {
	if pace <= 0 {
		pace = defaultPace
	}
	return &Runner{limiter: rate.NewLimiter(rate.Every(pace), 1)}
}

// Run invokes step for each of n items in order. The first item runs
// immediately; each subsequent item waits out the pace interval. When ctx is
// cancelled mid-batch the remaining items are skipped and the summary covers
// only the attempted ones.
func (r *Runner) Run(ctx context.Context, n int, step func(ctx context.Context, i int) Outcome) Summary {
	results := make([]Outcome, 0, n)
	for i := 0; i < n; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}
		results = append(results, step(ctx, i))
	}
	return summarize(results)
}

func summarize(results []Outcome) Summary {
	s := Summary{Results: results, Total: len(results)}
	for _, outcome := range results {
		if outcome.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}
