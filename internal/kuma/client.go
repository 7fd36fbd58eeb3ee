// Package kuma maintains the persistent socket.io connection to an Uptime
// Kuma instance: connection and authentication state, the cached monitor and
// notification snapshots the service broadcasts, and a blocking command
// primitive that waits for the per-call acknowledgement.
package kuma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kumabridgehq/bridge/internal/metrics"
	"github.com/kumabridgehq/bridge/pkg/types"
)

var (
	// ErrNotConnected reports a command issued while the channel is down.
	ErrNotConnected = errors.New("event channel not connected")
	// ErrNotAuthenticated reports a command issued before login succeeded.
	ErrNotAuthenticated = errors.New("event channel not authenticated")
	// ErrCallTimeout reports a command that was never acknowledged within
	// its budget. The channel stays usable for subsequent calls.
	ErrCallTimeout = errors.New("no acknowledgement within timeout")
	// ErrDisconnected reports a command interrupted by a mid-call disconnect.
	ErrDisconnected = errors.New("event channel disconnected")
)

// State is the channel lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

const (
	eventLogin            = "login"
	eventMonitorList      = "monitorList"
	eventNotificationList = "notificationList"
)

const (
	defaultCallTimeout      = 10 * time.Second
	defaultLoginTimeout     = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultReconnectMin     = time.Second
	defaultReconnectMax     = 30 * time.Second
	writeTimeout            = 10 * time.Second
	// Engine.io v4 defaults are 25s ping interval and 20s ping timeout;
	// used when the open packet omits them.
	defaultReadWait = 50 * time.Second
)

// Ack is the acknowledgement payload the service sends after processing a
// command. OK false with Msg set is a command rejection, distinct from a
// timeout or disconnect, which surface as errors from Call.
type Ack struct {
	OK        bool            `json:"ok"`
	Msg       string          `json:"msg,omitempty"`
	MonitorID int64           `json:"monitorID,omitempty"`
	ID        int64           `json:"id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// Config holds the static configuration for a Client.
type Config struct {
	// BaseURL is the http(s) or ws(s) endpoint of the Uptime Kuma instance.
	BaseURL  string
	Username string
	Password string
	Token    string

	CallTimeout      time.Duration
	LoginTimeout     time.Duration
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
}

// Dependencies allow test overrides for the dialer, clock, metrics, and
// logging.
type Dependencies struct {
	Logger  *log.Logger
	Metrics *metrics.Store
	Dialer  *websocket.Dialer
	Now     func() time.Time
}

// Client is the event-channel client. One Client owns one connection; all
// commands from the facade are issued through Call.
type Client struct {
	cfg     Config
	logger  *log.Logger
	metrics *metrics.Store
	dialer  *websocket.Dialer
	now     func() time.Time

	snapshots *snapshotStore

	writeMu sync.Mutex

	mu           sync.Mutex
	conn         *websocket.Conn
	state        State
	disconnected chan struct{}
	pending      map[int64]chan Ack
	ackSeq       int64
}

// NewClient builds a Client from configuration and dependencies.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := websocketURL(cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = defaultLoginTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = defaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = defaultReconnectMax
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	dialer := deps.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	closed := make(chan struct{})
	close(closed)

	return &Client{
		cfg:          cfg,
		logger:       logger,
		metrics:      deps.Metrics,
		dialer:       dialer,
		now:          now,
		snapshots:    newSnapshotStore(),
		disconnected: closed,
		pending:      map[int64]chan Ack{},
	}, nil
}

// websocketURL derives the socket.io websocket endpoint from the base URL.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base URL", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = "EIO=4&transport=websocket"
	return u.String(), nil
}

// Connect dials the event channel and completes the engine.io and socket.io
// handshakes. It is a no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	wsURL, err := websocketURL(c.cfg.BaseURL)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	readWait, err := c.handshake(conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		// Another Connect won the race; keep the established session.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.state = StateConnected
	c.disconnected = make(chan struct{})
	c.pending = map[int64]chan Ack{}
	c.mu.Unlock()

	c.metrics.IncConnects()
	c.logger.Printf("connected to %s", c.cfg.BaseURL)

	go c.readLoop(conn, readWait)
	return nil
}

// handshake consumes the engine.io open packet, joins the default socket.io
// namespace, and waits for the connect acknowledgement. Pings and broadcast
// events that interleave with the handshake are handled in place.
func (c *Client) handshake(conn *websocket.Conn) (time.Duration, error) {
	deadline := c.now().Add(c.cfg.HandshakeTimeout)

	conn.SetReadDeadline(deadline)
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read open packet: %w", err)
	}
	if len(frame) == 0 || frame[0] != frameOpen {
		return 0, fmt.Errorf("unexpected handshake frame %q", frame)
	}
	var open openPayload
	if err := json.Unmarshal(frame[1:], &open); err != nil {
		return 0, fmt.Errorf("decode open packet: %w", err)
	}
	readWait := defaultReadWait
	if open.PingInterval > 0 && open.PingTimeout > 0 {
		readWait = time.Duration(open.PingInterval+open.PingTimeout)*time.Millisecond + 5*time.Second
	}

	if err := c.write(conn, encodeConnect()); err != nil {
		return 0, fmt.Errorf("join namespace: %w", err)
	}

	for {
		conn.SetReadDeadline(deadline)
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return 0, fmt.Errorf("read connect ack: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case framePing:
			if err := c.write(conn, encodePong()); err != nil {
				return 0, fmt.Errorf("answer ping: %w", err)
			}
		case frameMessage:
			p, err := decodePacket(frame[1:])
			if err != nil {
				return 0, err
			}
			switch p.Type {
			case packetConnect:
				return readWait, nil
			case packetConnectError:
				return 0, fmt.Errorf("namespace connect rejected: %s", p.Data)
			case packetEvent:
				c.handleEvent(p)
			}
		}
	}
}

// Disconnect closes the connection. The read loop observes the close and
// performs the state teardown.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.write(conn, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

// Run maintains the connection until ctx is cancelled: connect and log in,
// wait for a disconnect, then redial with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectMin
	for {
		err := c.connectAndLogin(ctx)
		if err == nil {
			backoff = c.cfg.ReconnectMin
			select {
			case <-ctx.Done():
				c.Disconnect()
				return ctx.Err()
			case <-c.disconnectedChan():
			}
		} else {
			c.logger.Printf("channel session failed: %v", err)
			c.Disconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

func (c *Client) connectAndLogin(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if c.Authenticated() {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) disconnectedChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// Login authenticates with the configured credentials and, on a positive
// acknowledgement, marks the channel authenticated.
func (c *Client) Login(ctx context.Context) error {
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Token    string `json:"token"`
	}{c.cfg.Username, c.cfg.Password, c.cfg.Token}

	ack, err := c.Call(ctx, eventLogin, payload, c.cfg.LoginTimeout)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !ack.OK {
		msg := ack.Msg
		if msg == "" {
			msg = "rejected"
		}
		return fmt.Errorf("login failed: %s", msg)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.state = StateAuthenticated
	}
	c.mu.Unlock()
	c.logger.Printf("authenticated as %s", c.cfg.Username)
	return nil
}

// Call sends a command as a named event and blocks until the service
// acknowledges it, the timeout elapses, the channel disconnects, or ctx is
// cancelled. A non-positive timeout selects the configured default. Each
// call registers its own acknowledgement id, so concurrent calls of the
// same event never cross-deliver.
func (c *Client) Call(ctx context.Context, event string, payload any, timeout time.Duration) (Ack, error) {
	if timeout <= 0 {
		timeout = c.cfg.CallTimeout
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return Ack{}, ErrNotConnected
	}
	if c.state != StateAuthenticated && event != eventLogin {
		c.mu.Unlock()
		return Ack{}, ErrNotAuthenticated
	}
	c.ackSeq++
	id := c.ackSeq
	ch := make(chan Ack, 1)
	c.pending[id] = ch
	disconnected := c.disconnected
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	var args []any
	if payload != nil {
		args = append(args, payload)
	}
	frame, err := encodeEvent(event, args, id, true)
	if err != nil {
		return Ack{}, err
	}
	if err := c.write(conn, frame); err != nil {
		return Ack{}, fmt.Errorf("send %s: %w", event, err)
	}
	c.metrics.IncCommandsSent()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ack := <-ch:
		if ack.OK {
			c.metrics.IncAcksOK()
		} else {
			c.metrics.IncAcksRejected()
		}
		return ack, nil
	case <-timer.C:
		c.metrics.IncCallTimeouts()
		return Ack{}, fmt.Errorf("%s: %w", event, ErrCallTimeout)
	case <-disconnected:
		return Ack{}, fmt.Errorf("%s: %w", event, ErrDisconnected)
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}

func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(c.now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(conn *websocket.Conn, readWait time.Duration) {
	for {
		conn.SetReadDeadline(c.now().Add(readWait))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.teardown(conn, err)
			return
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case framePing:
			if err := c.write(conn, encodePong()); err != nil {
				c.teardown(conn, err)
				return
			}
		case frameClose:
			c.teardown(conn, errors.New("server closed the session"))
			return
		case frameMessage:
			p, err := decodePacket(frame[1:])
			if err != nil {
				c.logger.Printf("drop malformed packet: %v", err)
				continue
			}
			switch p.Type {
			case packetEvent:
				c.handleEvent(p)
			case packetAck:
				c.handleAck(p)
			case packetDisconnect:
				c.teardown(conn, errors.New("server left the namespace"))
				return
			}
		}
	}
}

// teardown resets the channel to the disconnected state. Closing the
// disconnected channel releases every in-flight Call; the authenticated flag
// stays down until a fresh login succeeds.
func (c *Client) teardown(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.pending = map[int64]chan Ack{}
	close(c.disconnected)
	c.mu.Unlock()

	conn.Close()
	c.metrics.IncDisconnects()
	c.logger.Printf("disconnected: %v", cause)
}

func (c *Client) handleEvent(p packet) {
	name, args, err := p.eventArgs()
	if err != nil {
		c.logger.Printf("drop malformed event: %v", err)
		return
	}
	if len(args) == 0 {
		return
	}
	now := c.now()

	switch name {
	case eventMonitorList:
		if err := c.snapshots.replaceMonitors(args[0], now); err != nil {
			c.logger.Printf("monitor list rejected: %v", err)
			return
		}
		c.metrics.ObserveMonitorUpdate(now)
	case eventNotificationList:
		if err := c.snapshots.replaceNotifications(args[0], now); err != nil {
			c.logger.Printf("notification list rejected: %v", err)
			return
		}
		c.metrics.ObserveNotificationUpdate(now)
	}
}

func (c *Client) handleAck(p packet) {
	args, err := p.ackArgs()
	if err != nil {
		c.logger.Printf("drop malformed ack: %v", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[p.AckID]
	delete(c.pending, p.AckID)
	c.mu.Unlock()
	if !ok {
		// Late ack for a call that already timed out.
		return
	}

	ack := Ack{}
	if len(args) > 0 {
		ack.Raw = args[0]
		if err := json.Unmarshal(args[0], &ack); err != nil {
			ack = Ack{Msg: "unparseable acknowledgement payload", Raw: args[0]}
		}
	}
	ch <- ack
}

// State reports the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the channel connection is up.
func (c *Client) Connected() bool {
	return c.State() != StateDisconnected
}

// Authenticated reports whether login has succeeded on the current
// connection.
func (c *Client) Authenticated() bool {
	return c.State() == StateAuthenticated
}

// Monitors returns a copy of the cached monitor snapshot.
func (c *Client) Monitors() map[int64]types.Monitor {
	return c.snapshots.Monitors()
}

// MonitorDocument returns a mutable copy of the raw monitor document, the
// shape expected by the edit command.
func (c *Client) MonitorDocument(id int64) (map[string]any, bool) {
	return c.snapshots.MonitorDocument(id)
}

// Notifications returns a copy of the cached notification snapshot.
func (c *Client) Notifications() map[int64]types.Notification {
	return c.snapshots.Notifications()
}

// NotificationDocument returns a mutable copy of the raw notification
// document.
func (c *Client) NotificationDocument(id int64) (map[string]any, bool) {
	return c.snapshots.NotificationDocument(id)
}

// WaitForMonitors blocks until the first monitor snapshot has been received
// or ctx expires. The service pushes the snapshot shortly after login.
func (c *Client) WaitForMonitors(ctx context.Context) error {
	select {
	case <-c.snapshots.ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MonitorsUpdatedAt reports when the monitor snapshot last arrived.
func (c *Client) MonitorsUpdatedAt() time.Time {
	return c.snapshots.MonitorsUpdatedAt()
}

// NotificationsUpdatedAt reports when the notification snapshot last
// arrived.
func (c *Client) NotificationsUpdatedAt() time.Time {
	return c.snapshots.NotificationsUpdatedAt()
}
