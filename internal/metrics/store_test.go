package metrics

import (
	"testing"
	"time"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	s := NewStore()
	s.IncCommandsSent()
	s.IncCommandsSent()
	s.IncAcksOK()
	s.IncAcksRejected()
	s.IncCallTimeouts()
	s.IncConnects()
	s.IncDisconnects()

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ObserveMonitorUpdate(ts)
	s.ObserveNotificationUpdate(ts)

	snap := s.Snapshot()
	if snap.CommandsSent != 2 {
		t.Fatalf("commands sent = %d", snap.CommandsSent)
	}
	if snap.AcksOK != 1 || snap.AcksRejected != 1 || snap.CallTimeouts != 1 {
		t.Fatalf("ack counters = %+v", snap)
	}
	if snap.Connects != 1 || snap.Disconnects != 1 {
		t.Fatalf("connection counters = %+v", snap)
	}
	if snap.MonitorUpdates != 1 || snap.NotificationUpdates != 1 {
		t.Fatalf("update counters = %+v", snap)
	}
	if !snap.LastMonitorUpdate.Equal(ts) {
		t.Fatalf("last monitor update = %v", snap.LastMonitorUpdate)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	s.IncCommandsSent()
	s.IncAcksOK()
	s.ObserveMonitorUpdate(time.Now())
	snap := s.Snapshot()
	if snap.CommandsSent != 0 {
		t.Fatalf("nil snapshot = %+v", snap)
	}
	if !snap.LastMonitorUpdate.IsZero() {
		t.Fatalf("nil snapshot timestamp = %v", snap.LastMonitorUpdate)
	}
}
