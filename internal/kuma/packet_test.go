package kuma

import (
	"bytes"
	"testing"
)

func TestDecodePacketEventWithAckID(t *testing.T) {
	p, err := decodePacket([]byte(`27["monitorList",{"1":{"id":1}}]`))
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if p.Type != packetEvent {
		t.Fatalf("type = %q, want event", p.Type)
	}
	if !p.HasAckID || p.AckID != 7 {
		t.Fatalf("ack id = %d (has=%v), want 7", p.AckID, p.HasAckID)
	}
	name, args, err := p.eventArgs()
	if err != nil {
		t.Fatalf("eventArgs: %v", err)
	}
	if name != "monitorList" {
		t.Fatalf("event name = %q", name)
	}
	if len(args) != 1 {
		t.Fatalf("args = %d, want 1", len(args))
	}
}

func TestDecodePacketEventWithoutAckID(t *testing.T) {
	p, err := decodePacket([]byte(`2["info",{"version":"1.23.0"}]`))
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if p.HasAckID {
		t.Fatalf("unexpected ack id %d", p.AckID)
	}
	name, _, err := p.eventArgs()
	if err != nil {
		t.Fatalf("eventArgs: %v", err)
	}
	if name != "info" {
		t.Fatalf("event name = %q", name)
	}
}

func TestDecodePacketAck(t *testing.T) {
	p, err := decodePacket([]byte(`312[{"ok":true,"monitorID":42}]`))
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if p.Type != packetAck {
		t.Fatalf("type = %q, want ack", p.Type)
	}
	if p.AckID != 12 {
		t.Fatalf("ack id = %d, want 12", p.AckID)
	}
	args, err := p.ackArgs()
	if err != nil {
		t.Fatalf("ackArgs: %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("args = %d, want 1", len(args))
	}
}

func TestDecodePacketRejectsAckWithoutID(t *testing.T) {
	if _, err := decodePacket([]byte(`3[{"ok":true}]`)); err == nil {
		t.Fatal("expected error for ack without id")
	}
}

func TestDecodePacketRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(`9`),
		[]byte(`2{"not":"array"}`),
		[]byte(`2`),
	}
	for _, frame := range cases {
		if _, err := decodePacket(frame); err == nil {
			t.Fatalf("expected error for %q", frame)
		}
	}
}

func TestEncodeEventWithAck(t *testing.T) {
	frame, err := encodeEvent("pauseMonitor", []any{int64(3)}, 5, true)
	if err != nil {
		t.Fatalf("encodeEvent: %v", err)
	}
	want := []byte(`425["pauseMonitor",3]`)
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %s, want %s", frame, want)
	}
}

func TestEncodeEventWithoutPayload(t *testing.T) {
	frame, err := encodeEvent("getSettings", nil, 9, true)
	if err != nil {
		t.Fatalf("encodeEvent: %v", err)
	}
	want := []byte(`429["getSettings"]`)
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = %s, want %s", frame, want)
	}
}

func TestEncodeEventRoundTrip(t *testing.T) {
	frame, err := encodeEvent("login", []any{map[string]string{"username": "admin"}}, 1, true)
	if err != nil {
		t.Fatalf("encodeEvent: %v", err)
	}
	if frame[0] != frameMessage {
		t.Fatalf("frame marker = %q", frame[0])
	}
	p, err := decodePacket(frame[1:])
	if err != nil {
		t.Fatalf("decodePacket: %v", err)
	}
	if p.AckID != 1 || !p.HasAckID {
		t.Fatalf("ack id = %d (has=%v)", p.AckID, p.HasAckID)
	}
	name, args, err := p.eventArgs()
	if err != nil {
		t.Fatalf("eventArgs: %v", err)
	}
	if name != "login" || len(args) != 1 {
		t.Fatalf("decoded %q with %d args", name, len(args))
	}
}
