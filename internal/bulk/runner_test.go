package bulk

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRunCountsSuccessesAndFailures(t *testing.T) {
	r := NewRunner(time.Millisecond)
	summary := r.Run(context.Background(), 5, func(ctx context.Context, i int) Outcome {
		if i == 1 || i == 3 {
			return Outcome{Name: fmt.Sprintf("item-%d", i), Error: "rejected"}
		}
		return Outcome{Name: fmt.Sprintf("item-%d", i), Success: true}
	})

	if summary.Total != 5 {
		t.Fatalf("total = %d, want 5", summary.Total)
	}
	if summary.Successful != 3 || summary.Failed != 2 {
		t.Fatalf("successful/failed = %d/%d, want 3/2", summary.Successful, summary.Failed)
	}
	if len(summary.Results) != 5 {
		t.Fatalf("results = %d entries, want 5", len(summary.Results))
	}
	for i, outcome := range summary.Results {
		if outcome.Name != fmt.Sprintf("item-%d", i) {
			t.Fatalf("result %d out of order: %+v", i, outcome)
		}
	}
}

func TestRunFailureNeverAbortsSiblings(t *testing.T) {
	r := NewRunner(time.Millisecond)
	var calls int
	summary := r.Run(context.Background(), 4, func(ctx context.Context, i int) Outcome {
		calls++
		return Outcome{Error: "always fails"}
	})
	if calls != 4 {
		t.Fatalf("step ran %d times, want 4", calls)
	}
	if summary.Failed != 4 || summary.Successful != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunPacesBetweenItems(t *testing.T) {
	pace := 50 * time.Millisecond
	r := NewRunner(pace)
	start := time.Now()
	r.Run(context.Background(), 3, func(ctx context.Context, i int) Outcome {
		return Outcome{Success: true}
	})
	elapsed := time.Since(start)
	// First item is immediate, the next two wait out the pace.
	if elapsed < 2*pace-10*time.Millisecond {
		t.Fatalf("batch of 3 finished in %v, want at least ~%v", elapsed, 2*pace)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(10 * time.Millisecond)
	summary := r.Run(ctx, 100, func(ctx context.Context, i int) Outcome {
		if i == 2 {
			cancel()
		}
		return Outcome{Success: true}
	})
	if summary.Total > 4 {
		t.Fatalf("cancelled batch attempted %d items", summary.Total)
	}
	if summary.Total < 3 {
		t.Fatalf("batch stopped before the cancelling item: %d", summary.Total)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	r := NewRunner(0)
	summary := r.Run(context.Background(), 0, func(ctx context.Context, i int) Outcome {
		t.Fatal("step must not run for an empty batch")
		return Outcome{}
	})
	if summary.Total != 0 || len(summary.Results) != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}
