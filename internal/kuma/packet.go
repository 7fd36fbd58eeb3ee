package kuma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Engine.io frame types, sent as the first byte of every text frame.
const (
	frameOpen    = '0'
	frameClose   = '1'
	framePing    = '2'
	framePong    = '3'
	frameMessage = '4'
)

// Socket.io packet types, sent as the first byte after a message frame marker.
const (
	packetConnect      = '0'
	packetDisconnect   = '1'
	packetEvent        = '2'
	packetAck          = '3'
	packetConnectError = '4'
)

// openPayload is the engine.io handshake body carried by the open frame.
// Intervals are in milliseconds.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// packet is a decoded socket.io packet from a single message frame.
type packet struct {
	Type     byte
	AckID    int64
	HasAckID bool
	Data     json.RawMessage
}

// decodePacket parses the socket.io portion of a message frame, i.e. the
// frame contents after the leading '4'.
func decodePacket(data []byte) (packet, error) {
	if len(data) == 0 {
		return packet{}, fmt.Errorf("empty socket.io packet")
	}

	p := packet{Type: data[0]}
	rest := data[1:]

	switch p.Type {
	case packetConnect, packetDisconnect, packetConnectError:
		p.Data = json.RawMessage(rest)
		return p, nil
	case packetEvent, packetAck:
	default:
		return packet{}, fmt.Errorf("unknown socket.io packet type %q", p.Type)
	}

	// Optional acknowledgement id: decimal digits before the JSON array.
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseInt(string(rest[:digits]), 10, 64)
		if err != nil {
			return packet{}, fmt.Errorf("parse ack id: %w", err)
		}
		p.AckID = id
		p.HasAckID = true
		rest = rest[digits:]
	}
	if p.Type == packetAck && !p.HasAckID {
		return packet{}, fmt.Errorf("ack packet without id")
	}

	if len(rest) == 0 || rest[0] != '[' {
		return packet{}, fmt.Errorf("socket.io packet payload is not an array")
	}
	p.Data = json.RawMessage(rest)
	return p, nil
}

// eventArgs extracts the event name and remaining arguments from an event
// packet payload.
func (p packet) eventArgs() (string, []json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(p.Data, &elems); err != nil {
		return "", nil, fmt.Errorf("decode event payload: %w", err)
	}
	if len(elems) == 0 {
		return "", nil, fmt.Errorf("empty event payload")
	}
	var name string
	if err := json.Unmarshal(elems[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	return name, elems[1:], nil
}

// ackArgs extracts the arguments of an ack packet payload.
func (p packet) ackArgs() ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(p.Data, &elems); err != nil {
		return nil, fmt.Errorf("decode ack payload: %w", err)
	}
	return elems, nil
}

// encodeEvent builds an event message frame. When withAck is set the frame
// carries the acknowledgement id so the server answers with a matching ack
// packet.
func encodeEvent(event string, args []any, ackID int64, withAck bool) ([]byte, error) {
	payload := make([]any, 0, len(args)+1)
	payload = append(payload, event)
	payload = append(payload, args...)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", event, err)
	}

	var buf bytes.Buffer
	buf.WriteByte(frameMessage)
	buf.WriteByte(packetEvent)
	if withAck {
		buf.WriteString(strconv.FormatInt(ackID, 10))
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// encodeConnect builds the namespace connect frame ("40").
func encodeConnect() []byte {
	return []byte{frameMessage, packetConnect}
}

// encodePong builds the engine.io pong frame answering a server ping.
func encodePong() []byte {
	return []byte{framePong}
}
