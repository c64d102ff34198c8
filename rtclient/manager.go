// Package rtclient is the consuming side of the live channel: it owns one
// physical websocket connection, a bounded reconnect state machine, and a
// set of observers that inbound payloads are fanned out to.
package rtclient

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Envelope is the parsed inbound frame. Exactly one body field is set,
// according to Type; observers decode the one they care about.
type Envelope struct {
	Type         string          `json:"type"`
	Notification json.RawMessage `json:"notification"`
	Message      json.RawMessage `json:"message"`
}

// Observer consumes envelopes. Implementations translate payloads into
// application state and hold no transport logic.
type Observer interface {
	Update(env Envelope)
}

type Config struct {
	URL                  string // ws:// or wss:// endpoint, token included as a query param
	ReconnectDelay       time.Duration
	MaxReconnectAttempts uint64
	PingInterval         time.Duration
	Logger               *logrus.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.ReconnectDelay == 0 {
		out.ReconnectDelay = 3 * time.Second
	}
	if out.MaxReconnectAttempts == 0 {
		out.MaxReconnectAttempts = 5
	}
	if out.PingInterval == 0 {
		out.PingInterval = 30 * time.Second
	}
	if out.Logger == nil {
		out.Logger = logrus.New()
	}
	return out
}

// Manager owns the single live connection for this process. All state
// transitions happen under one mutex; the read loop runs on its own
// goroutine per connection and checks it still owns the current
// connection before touching shared state.
type Manager struct {
	cfg Config
	log *logrus.Logger

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	writeMu     sync.Mutex
	subscribers []Observer
	retry       backoff.BackOff
	timer       *time.Timer   // at most one pending reconnect timer
	inflight    chan struct{} // closed when the current connect attempt resolves
	connDone    chan struct{} // closed when the current connection is retired
	connectErr  error
}

func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:   cfg,
		log:   cfg.Logger,
		state: StateDisconnected,
		retry: backoff.WithMaxRetries(
			backoff.NewConstantBackOff(cfg.ReconnectDelay),
			cfg.MaxReconnectAttempts,
		),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the transport. Concurrent calls while a connect is in
// flight wait for that attempt and share its outcome rather than opening
// a second transport. A fresh explicit Connect also revives a Failed
// manager.
func (m *Manager) Connect() error {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		done := m.inflight
		m.mu.Unlock()
		<-done
		m.mu.Lock()
		err := m.connectErr
		m.mu.Unlock()
		return err
	}
	m.cancelTimerLocked()
	m.state = StateConnecting
	m.inflight = make(chan struct{})
	m.retry.Reset()
	m.mu.Unlock()

	return m.dial()
}

// dial performs one handshake attempt and resolves the in-flight connect.
func (m *Manager) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(m.cfg.URL, nil)

	m.mu.Lock()
	if m.state != StateConnecting {
		// Disconnect raced us; discard whatever we got.
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return nil
	}

	if err != nil {
		m.connectErr = err
		m.closeInflight()
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		m.log.WithError(err).Warn("websocket dial failed")
		return err
	}

	m.conn = conn
	m.state = StateOpen
	m.connectErr = nil
	m.retry.Reset()
	m.connDone = make(chan struct{})
	done := m.connDone
	m.closeInflight()
	m.mu.Unlock()

	go m.readLoop(conn)
	go m.keepalive(conn, done)
	m.log.Info("websocket connected")
	return nil
}

func (m *Manager) closeInflight() {
	if m.inflight != nil {
		close(m.inflight)
		m.inflight = nil
	}
}

func (m *Manager) retireConnLocked() {
	if m.connDone != nil {
		close(m.connDone)
		m.connDone = nil
	}
}

// Disconnect is the user-intentional exit: it cancels any pending
// reconnect, closes the transport, clears all subscribers, and lands in
// Disconnected. Safe to call from any state, any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelTimerLocked()
	m.retireConnLocked()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.subscribers = nil
	m.connectErr = nil
	m.closeInflight()
	m.mu.Unlock()

	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		m.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		m.writeMu.Unlock()
		conn.Close()
	}
}

// Subscribe adds an observer to the fan-out set. Idempotent: an observer
// already present is not added twice.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subscribers {
		if existing == o {
			return
		}
	}
	m.subscribers = append(m.subscribers, o)
}

// Unsubscribe removes an observer; removing one not in the set is a no-op.
func (m *Manager) Unsubscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.subscribers {
		if existing == o {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return
		}
	}
}

// Send writes a JSON message. Only valid while Open; otherwise a logged
// no-op.
func (m *Manager) Send(v any) {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		m.log.Warn("send ignored, connection not open")
		return
	}
	m.writeMu.Lock()
	err := conn.WriteJSON(v)
	m.writeMu.Unlock()
	if err != nil {
		m.log.WithError(err).Warn("send failed")
	}
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(conn, err)
			return
		}

		text := string(data)
		if text == realtime.PingFrame || text == realtime.PongFrame {
			continue
		}

		var env Envelope
		if jsonErr := json.Unmarshal(data, &env); jsonErr != nil || env.Type == "" {
			m.log.WithField("frame", truncate(text, 128)).Warn("malformed frame dropped")
			continue
		}
		m.fanOut(env)
	}
}

// fanOut delivers env to every current subscriber in registration order.
// A panicking observer is isolated so it cannot block the others.
func (m *Manager) fanOut(env Envelope) {
	m.mu.Lock()
	subs := make([]Observer, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, o := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.WithField("panic", r).Error("observer panicked")
				}
			}()
			o.Update(env)
		}()
	}
}

// handleReadError classifies the failure. Normal, going-away, policy
// violation, and application-reserved (>= 4000) close codes are final;
// everything else drives the bounded reconnect loop.
func (m *Manager) handleReadError(conn *websocket.Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return // a newer connection already took over
	}
	m.retireConnLocked()
	m.conn = nil
	conn.Close()

	if isFinalClose(err) {
		m.state = StateDisconnected
		m.log.WithError(err).Info("connection closed")
		return
	}

	m.log.WithError(err).Warn("connection lost")
	m.scheduleReconnectLocked()
}

func isFinalClose(err error) bool {
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		return false
	}
	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.ClosePolicyViolation:
		return true
	}
	return closeErr.Code >= 4000
}

// scheduleReconnectLocked arms the single reconnect timer, replacing any
// pending one. When the retry budget is exhausted the manager lands in
// Failed with an empty subscriber set; only an explicit Connect restarts
// it. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked() {
	m.cancelTimerLocked()

	delay := m.retry.NextBackOff()
	if delay == backoff.Stop {
		m.state = StateFailed
		m.subscribers = nil
		m.log.Error("reconnect attempts exhausted, giving up")
		return
	}

	m.state = StateReconnecting
	m.timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.state = StateConnecting
		m.inflight = make(chan struct{})
		m.mu.Unlock()
		m.dial()
	})
}

func (m *Manager) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// keepalive sends the literal ping frame on an interval until the
// connection is retired. The server's answer is irrelevant; the traffic
// itself keeps idle-connection middleboxes from cutting us off.
func (m *Manager) keepalive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte(realtime.PingFrame))
			m.writeMu.Unlock()
			if err != nil {
				return // read loop will notice and drive the state machine
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
