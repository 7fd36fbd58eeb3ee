// Package metrics maintains in-memory counters and gauges for bridge
// telemetry, surfaced through the health endpoint.
package metrics

import (
	"sync/atomic"
	"time"
)

// Store maintains the bridge's counters. All methods are safe for concurrent
// use; nil receivers are tolerated so collaborators can run without metrics.
type Store struct {
	commandsSent        atomic.Uint64
	acksOK              atomic.Uint64
	acksRejected        atomic.Uint64
	callTimeouts        atomic.Uint64
	connects            atomic.Uint64
	disconnects         atomic.Uint64
	monitorUpdates      atomic.Uint64
	notificationUpdates atomic.Uint64
	lastMonitorUpdate   atomic.Int64
}

// NewStore constructs a Store with zeroed metrics.
func NewStore() *Store {
	return &Store{}
}

// Snapshot captures the current metric values in a plain struct.
type Snapshot struct {
	CommandsSent        uint64    `json:"commands_sent"`
	AcksOK              uint64    `json:"acks_ok"`
	AcksRejected        uint64    `json:"acks_rejected"`
	CallTimeouts        uint64    `json:"call_timeouts"`
	Connects            uint64    `json:"connects"`
	Disconnects         uint64    `json:"disconnects"`
	MonitorUpdates      uint64    `json:"monitor_updates"`
	NotificationUpdates uint64    `json:"notification_updates"`
	LastMonitorUpdate   time.Time `json:"last_monitor_update,omitempty"`
}

// Snapshot returns a point-in-time copy of the metrics.
func (s *Store) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		CommandsSent:        s.commandsSent.Load(),
		AcksOK:              s.acksOK.Load(),
		AcksRejected:        s.acksRejected.Load(),
		CallTimeouts:        s.callTimeouts.Load(),
		Connects:            s.connects.Load(),
		Disconnects:         s.disconnects.Load(),
		MonitorUpdates:      s.monitorUpdates.Load(),
		NotificationUpdates: s.notificationUpdates.Load(),
	}
	if nanos := s.lastMonitorUpdate.Load(); nanos > 0 {
		snap.LastMonitorUpdate = time.Unix(0, nanos).UTC()
	}
	return snap
}

// IncCommandsSent counts one command written to the event channel.
func (s *Store) IncCommandsSent() {
	if s != nil {
		s.commandsSent.Add(1)
	}
}

// IncAcksOK counts one positive acknowledgement.
func (s *Store) IncAcksOK() {
	if s != nil {
		s.acksOK.Add(1)
	}
}

// IncAcksRejected counts one negative acknowledgement.
func (s *Store) IncAcksRejected() {
	if s != nil {
		s.acksRejected.Add(1)
	}
}

// IncCallTimeouts counts one call that exhausted its budget unanswered.
func (s *Store) IncCallTimeouts() {
	if s != nil {
		s.callTimeouts.Add(1)
	}
}

// IncConnects counts one successful channel connection.
func (s *Store) IncConnects() {
	if s != nil {
		s.connects.Add(1)
	}
}

// IncDisconnects counts one channel disconnect.
func (s *Store) IncDisconnects() {
	if s != nil {
		s.disconnects.Add(1)
	}
}

// ObserveMonitorUpdate records a monitor snapshot replacement.
func (s *Store) ObserveMonitorUpdate(ts time.Time) {
	if s == nil {
		return
	}
	s.monitorUpdates.Add(1)
	s.lastMonitorUpdate.Store(ts.UnixNano())
}

// ObserveNotificationUpdate records a notification snapshot replacement.
func (s *Store) ObserveNotificationUpdate(ts time.Time) {
	if s == nil {
		return
	}
	s.notificationUpdates.Add(1)
}
