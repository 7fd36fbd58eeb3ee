package kuma

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReplaceMonitorsKeyedObject(t *testing.T) {
	s := newSnapshotStore()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	data := json.RawMessage(`{
		"1":{"id":1,"name":"Gateway","type":"http","url":"http://gw","active":true,"interval":60},
		"2":{"id":2,"name":"Infra","type":"group","active":true}
	}`)
	if err := s.replaceMonitors(data, now); err != nil {
		t.Fatalf("replaceMonitors: %v", err)
	}

	monitors := s.Monitors()
	if len(monitors) != 2 {
		t.Fatalf("got %d monitors, want 2", len(monitors))
	}
	if monitors[1].Name != "Gateway" || monitors[1].Interval != 60 {
		t.Fatalf("monitor 1 = %+v", monitors[1])
	}
	if !monitors[2].IsGroup() {
		t.Fatal("monitor 2 should be a group")
	}
	if got := s.MonitorsUpdatedAt(); !got.Equal(now) {
		t.Fatalf("updated at = %v, want %v", got, now)
	}

	select {
	case <-s.ready():
	default:
		t.Fatal("ready channel should be closed after the first snapshot")
	}
}

func TestReplaceMonitorsSupersedesPrevious(t *testing.T) {
	s := newSnapshotStore()
	now := time.Now()

	first := json.RawMessage(`{"1":{"id":1,"name":"Old","type":"http"}}`)
	if err := s.replaceMonitors(first, now); err != nil {
		t.Fatalf("replaceMonitors: %v", err)
	}
	second := json.RawMessage(`{"2":{"id":2,"name":"New","type":"http"}}`)
	if err := s.replaceMonitors(second, now.Add(time.Second)); err != nil {
		t.Fatalf("replaceMonitors: %v", err)
	}

	monitors := s.Monitors()
	if _, ok := monitors[1]; ok {
		t.Fatal("stale monitor survived a full replacement")
	}
	if monitors[2].Name != "New" {
		t.Fatalf("monitor 2 = %+v", monitors[2])
	}
}

func TestMonitorDocumentReturnsIndependentCopy(t *testing.T) {
	s := newSnapshotStore()
	data := json.RawMessage(`{"5":{"id":5,"name":"Probe","type":"http","pushToken":"opaque-field"}}`)
	if err := s.replaceMonitors(data, time.Now()); err != nil {
		t.Fatalf("replaceMonitors: %v", err)
	}

	doc, ok := s.MonitorDocument(5)
	if !ok {
		t.Fatal("document for monitor 5 missing")
	}
	// Fields outside the typed view survive in the raw document.
	if doc["pushToken"] != "opaque-field" {
		t.Fatalf("pushToken = %v", doc["pushToken"])
	}

	doc["name"] = "mutated"
	again, _ := s.MonitorDocument(5)
	if again["name"] != "Probe" {
		t.Fatal("document mutation leaked into the store")
	}

	if _, ok := s.MonitorDocument(404); ok {
		t.Fatal("unknown id should report absence")
	}
}

func TestReplaceNotificationsArrayAndKeyedObject(t *testing.T) {
	now := time.Now()

	array := json.RawMessage(`[{"id":1,"name":"Telegram","active":true},{"id":2,"name":"Mail","isDefault":true}]`)
	s := newSnapshotStore()
	if err := s.replaceNotifications(array, now); err != nil {
		t.Fatalf("replaceNotifications(array): %v", err)
	}
	if got := s.Notifications(); len(got) != 2 || got[2].Name != "Mail" {
		t.Fatalf("array snapshot = %+v", got)
	}

	keyed := json.RawMessage(`{"1":{"id":1,"name":"Telegram","active":true}}`)
	s = newSnapshotStore()
	if err := s.replaceNotifications(keyed, now); err != nil {
		t.Fatalf("replaceNotifications(keyed): %v", err)
	}
	if got := s.Notifications(); len(got) != 1 || got[1].Name != "Telegram" {
		t.Fatalf("keyed snapshot = %+v", got)
	}
	if got := s.NotificationsUpdatedAt(); !got.Equal(now) {
		t.Fatalf("updated at = %v", got)
	}
}

func TestReplaceMonitorsRejectsMalformedPayload(t *testing.T) {
	s := newSnapshotStore()
	if err := s.replaceMonitors(json.RawMessage(`"nope"`), time.Now()); err == nil {
		t.Fatal("expected error for non-object payload")
	}
	if err := s.replaceMonitors(json.RawMessage(`{"x":{"id":1}}`), time.Now()); err == nil {
		t.Fatal("expected error for non-numeric key")
	}
}
