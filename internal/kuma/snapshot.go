package kuma

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kumabridgehq/bridge/pkg/types"
)

// snapshotStore caches the two broadcast snapshots the service pushes. Each
// broadcast replaces the respective snapshot wholesale; the store never
// merges. Raw documents are kept alongside the typed views so mutating
// operations can round-trip fields the bridge does not model.
type snapshotStore struct {
	mu sync.RWMutex

	monitorsReady     chan struct{}
	monitorsReadyOnce sync.Once

	monitors    map[int64]types.Monitor
	monitorDocs map[int64]json.RawMessage
	monitorsAt  time.Time

	notifications    map[int64]types.Notification
	notificationDocs map[int64]json.RawMessage
	notificationsAt  time.Time
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{
		monitorsReady:    make(chan struct{}),
		monitors:         map[int64]types.Monitor{},
		monitorDocs:      map[int64]json.RawMessage{},
		notifications:    map[int64]types.Notification{},
		notificationDocs: map[int64]json.RawMessage{},
	}
}

// replaceMonitors installs a fresh monitor snapshot from a monitorList
// broadcast, which arrives as an object keyed by monitor id.
func (s *snapshotStore) replaceMonitors(data json.RawMessage, now time.Time) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode monitor list: %w", err)
	}

	monitors := make(map[int64]types.Monitor, len(raw))
	docs := make(map[int64]json.RawMessage, len(raw))
	for key, doc := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("monitor list key %q: %w", key, err)
		}
		var monitor types.Monitor
		if err := json.Unmarshal(doc, &monitor); err != nil {
			return fmt.Errorf("decode monitor %d: %w", id, err)
		}
		if monitor.ID == 0 {
			monitor.ID = id
		}
		monitors[id] = monitor
		docs[id] = append(json.RawMessage(nil), doc...)
	}

	s.mu.Lock()
	s.monitors = monitors
	s.monitorDocs = docs
	s.monitorsAt = now
	s.mu.Unlock()
	s.monitorsReadyOnce.Do(func() { close(s.monitorsReady) })
	return nil
}

// ready is closed once the first monitor snapshot has been installed.
func (s *snapshotStore) ready() <-chan struct{} {
	return s.monitorsReady
}

// replaceNotifications installs a fresh notification snapshot. Uptime Kuma
// has broadcast notificationList both as an array of rows and as an object
// keyed by id across versions; both shapes are accepted.
func (s *snapshotStore) replaceNotifications(data json.RawMessage, now time.Time) error {
	docs := map[int64]json.RawMessage{}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		for _, doc := range list {
			var head struct {
				ID int64 `json:"id"`
			}
			if err := json.Unmarshal(doc, &head); err != nil {
				return fmt.Errorf("decode notification: %w", err)
			}
			docs[head.ID] = append(json.RawMessage(nil), doc...)
		}
	} else {
		var keyed map[string]json.RawMessage
		if err := json.Unmarshal(data, &keyed); err != nil {
			return fmt.Errorf("decode notification list: %w", err)
		}
		for key, doc := range keyed {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("notification list key %q: %w", key, err)
			}
			docs[id] = append(json.RawMessage(nil), doc...)
		}
	}

	notifications := make(map[int64]types.Notification, len(docs))
	for id, doc := range docs {
		var notification types.Notification
		if err := json.Unmarshal(doc, &notification); err != nil {
			return fmt.Errorf("decode notification %d: %w", id, err)
		}
		if notification.ID == 0 {
			notification.ID = id
		}
		notifications[id] = notification
	}

	s.mu.Lock()
	s.notifications = notifications
	s.notificationDocs = docs
	s.notificationsAt = now
	s.mu.Unlock()
	return nil
}

// Monitors returns a copy of the typed monitor snapshot.
func (s *snapshotStore) Monitors() map[int64]types.Monitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]types.Monitor, len(s.monitors))
	for id, monitor := range s.monitors {
		out[id] = monitor
	}
	return out
}

// MonitorDocument returns a mutable copy of the raw monitor document.
func (s *snapshotStore) MonitorDocument(id int64) (map[string]any, bool) {
	s.mu.RLock()
	doc, ok := s.monitorDocs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Notifications returns a copy of the typed notification snapshot.
func (s *snapshotStore) Notifications() map[int64]types.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]types.Notification, len(s.notifications))
	for id, notification := range s.notifications {
		out[id] = notification
	}
	return out
}

// NotificationDocument returns a mutable copy of the raw notification
// document, as required by the test command which echoes the full object.
func (s *snapshotStore) NotificationDocument(id int64) (map[string]any, bool) {
	s.mu.RLock()
	doc, ok := s.notificationDocs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, false
	}
	return out, true
}

// MonitorsUpdatedAt reports when the monitor snapshot was last replaced.
func (s *snapshotStore) MonitorsUpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitorsAt
}

// NotificationsUpdatedAt reports when the notification snapshot was last
// replaced.
func (s *snapshotStore) NotificationsUpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notificationsAt
}
