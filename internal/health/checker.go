// Package health evaluates readiness conditions for the bridge.
package health

import (
	"fmt"
	"time"
)

const defaultSnapshotStale = 2 * time.Minute

// Source exposes the channel state the checker inspects.
type Source interface {
	Connected() bool
	Authenticated() bool
	MonitorsUpdatedAt() time.Time
}

// Checker evaluates readiness of the bridge against the event channel.
type Checker struct {
	source     Source
	staleAfter time.Duration
}

// NewChecker constructs a readiness checker bound to the channel client.
func NewChecker(source Source, staleAfter time.Duration) *Checker {
	if staleAfter <= 0 {
		staleAfter = defaultSnapshotStale
	}
	return &Checker{source: source, staleAfter: staleAfter}
}

// Ready evaluates all readiness conditions and returns the overall status
// and the reasons for failure.
func (c *Checker) Ready(now time.Time) (bool, []string) {
	reasons := make([]string, 0, 3)

	if !c.source.Connected() {
		reasons = append(reasons, "event channel not connected")
	} else if !c.source.Authenticated() {
		reasons = append(reasons, "event channel not authenticated")
	}

	lastUpdate := c.source.MonitorsUpdatedAt()
	if lastUpdate.IsZero() {
		reasons = append(reasons, "monitor snapshot not yet received")
	} else if now.Sub(lastUpdate) > c.staleAfter {
		reasons = append(reasons, fmt.Sprintf("monitor snapshot stale (%s)", now.Sub(lastUpdate).Round(time.Second)))
	}

	if len(reasons) > 0 {
		return false, reasons
	}
	return true, nil
}
