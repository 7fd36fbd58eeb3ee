package health

import (
	"strings"
	"testing"
	"time"
)

type fakeSource struct {
	connected     bool
	authenticated bool
	updatedAt     time.Time
}

func (f fakeSource) Connected() bool              { return f.connected }
func (f fakeSource) Authenticated() bool          { return f.authenticated }
func (f fakeSource) MonitorsUpdatedAt() time.Time { return f.updatedAt }

func TestReadyAllConditionsMet(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c := NewChecker(fakeSource{connected: true, authenticated: true, updatedAt: now.Add(-time.Minute)}, 2*time.Minute)
	ok, reasons := c.Ready(now)
	if !ok {
		t.Fatalf("not ready: %v", reasons)
	}
	if len(reasons) != 0 {
		t.Fatalf("reasons = %v, want none", reasons)
	}
}

func TestReadyNotConnected(t *testing.T) {
	now := time.Now()
	c := NewChecker(fakeSource{}, 0)
	ok, reasons := c.Ready(now)
	if ok {
		t.Fatal("disconnected source must not be ready")
	}
	if len(reasons) != 2 {
		t.Fatalf("reasons = %v, want connection and snapshot reasons", reasons)
	}
	if reasons[0] != "event channel not connected" {
		t.Fatalf("reasons[0] = %q", reasons[0])
	}
}

func TestReadyConnectedButNotAuthenticated(t *testing.T) {
	now := time.Now()
	c := NewChecker(fakeSource{connected: true, updatedAt: now}, 0)
	ok, reasons := c.Ready(now)
	if ok {
		t.Fatal("unauthenticated source must not be ready")
	}
	if len(reasons) != 1 || reasons[0] != "event channel not authenticated" {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestReadySnapshotMissing(t *testing.T) {
	now := time.Now()
	c := NewChecker(fakeSource{connected: true, authenticated: true}, 0)
	ok, reasons := c.Ready(now)
	if ok {
		t.Fatal("missing snapshot must not be ready")
	}
	if len(reasons) != 1 || reasons[0] != "monitor snapshot not yet received" {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestReadySnapshotStale(t *testing.T) {
	now := time.Now()
	c := NewChecker(fakeSource{connected: true, authenticated: true, updatedAt: now.Add(-10 * time.Minute)}, 2*time.Minute)
	ok, reasons := c.Ready(now)
	if ok {
		t.Fatal("stale snapshot must not be ready")
	}
	if len(reasons) != 1 || !strings.HasPrefix(reasons[0], "monitor snapshot stale") {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestNewCheckerDefaultsStaleness(t *testing.T) {
	now := time.Now()
	c := NewChecker(fakeSource{connected: true, authenticated: true, updatedAt: now.Add(-time.Minute)}, 0)
	if ok, reasons := c.Ready(now); !ok {
		t.Fatalf("one-minute-old snapshot should pass the default window: %v", reasons)
	}
}
