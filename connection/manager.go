package connection

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aide-ai/aide/config"
	"github.com/aide-ai/aide/errors"
	"github.com/aide-ai/aide/protocol"
)

// State of the managed connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// ErrNotConnected is returned by Send when the connection is not Open.
var ErrNotConnected = errors.New("connection is not open")

// Handler receives connection events. Calls for one connection are delivered
// in order, and each call runs to completion before the next is made.
type Handler interface {
	OnOpen()
	OnRecord(env protocol.Envelope)
	OnError(err error)
	OnClose()
}

// Manager owns one WebSocket connection to the generation service.
type Manager struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	handler   Handler
	attempts  int
	suppress  bool        // set by Disconnect; blocks automatic reconnects
	reconnect *time.Timer // pending backoff timer
	stopPing  chan struct{}
	gen       uint64 // connection generation; stale read loops bail out
}

// New creates a Manager for the endpoint named in cfg. Nothing is dialed
// until Connect.
func New(cfg *config.Config, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.With().Str("component", "connection").Logger(),
	}
}

// BackoffDelay returns the linear reconnect delay for a zero-based attempt
// counter: base, 2*base, 3*base and so on. The attempt count, not the delay,
// bounds reconnection.
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(attempt+1) * base
}

// Connect opens the connection and registers the handler for every event on
// it; automatic reconnects keep using the same handler. A failed dial counts
// against the reconnect budget and schedules a retry itself, so callers
// normally log the returned error rather than act on it.
func (m *Manager) Connect(h Handler) error {
	m.mu.Lock()
	if m.state == Open || m.state == Connecting {
		m.mu.Unlock()
		return nil
	}
	m.handler = h
	m.suppress = false
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.state = Connecting
	m.mu.Unlock()
	return m.dial()
}

func (m *Manager) dial() error {
	m.mu.Lock()
	url := m.cfg.ServerURL
	h := m.handler
	m.mu.Unlock()

	m.logger.Info().Str("url", url).Msg("connecting")
	dialer := websocket.Dialer{
		HandshakeTimeout: m.cfg.HandshakeTimeout.Std(),
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		err = errors.Wrapf(err, "dial %s", url)
		m.logger.Warn().Err(err).Msg("connect failed")
		m.mu.Lock()
		m.state = Disconnected
		m.mu.Unlock()
		h.OnError(err)
		h.OnClose()
		m.scheduleReconnect()
		return err
	}

	m.mu.Lock()
	if m.suppress {
		// Disconnect raced the dial; drop the fresh connection.
		m.state = Disconnected
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	m.conn = conn
	m.state = Open
	m.attempts = 0
	m.gen++
	gen := m.gen
	stop := make(chan struct{})
	m.stopPing = stop
	m.mu.Unlock()

	h.OnOpen()
	go m.keepalive(stop)
	go m.readLoop(conn, gen, h)
	m.logger.Info().Msg("connected")
	return nil
}

// keepalive sends a ping record at the configured interval until stopped.
// The stop channel closes on any transition out of Open, so the probe runs
// exactly while its connection is open.
func (m *Manager) keepalive(stop <-chan struct{}) {
	interval := m.cfg.PingInterval.Std()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.Send(protocol.Ping()); err != nil {
				m.logger.Debug().Err(err).Msg("keepalive ping failed")
			}
		}
	}
}

func (m *Manager) readLoop(conn *websocket.Conn, gen uint64, h Handler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(gen, err, h)
			return
		}
		env, derr := protocol.DecodeEnvelope(data)
		if derr != nil {
			m.logger.Warn().Err(derr).Msg("dropping malformed frame")
			continue
		}
		if env.Type == protocol.TypePong {
			m.logger.Trace().Msg("pong")
			continue
		}
		h.OnRecord(env)
	}
}

// handleClose runs when a read loop ends. Expected closes only notify;
// unexpected ones also report the error and feed the backoff policy.
func (m *Manager) handleClose(gen uint64, err error, h Handler) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	expected := m.suppress || m.state == Closing
	if m.stopPing != nil {
		close(m.stopPing)
		m.stopPing = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.state = Disconnected
	m.mu.Unlock()

	if !expected && err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		h.OnError(errors.Wrapf(err, "connection lost"))
	}
	m.logger.Info().Bool("expected", expected).Msg("connection closed")
	h.OnClose()
	if !expected {
		m.scheduleReconnect()
	}
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suppress {
		return
	}
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Warn().Int("attempts", m.attempts).Msg("reconnect budget exhausted; waiting for manual connect")
		return
	}
	delay := BackoffDelay(m.cfg.ReconnectDelay.Std(), m.attempts)
	m.attempts++
	attempt := m.attempts
	m.reconnect = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.suppress || m.state != Disconnected {
			m.mu.Unlock()
			return
		}
		m.reconnect = nil
		m.state = Connecting
		m.mu.Unlock()
		_ = m.dial()
	})
	m.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnect scheduled")
}

// Send serializes v as JSON and transmits it as one text frame. It returns
// ErrNotConnected when the connection is not Open; transmission failures are
// returned to the caller rather than handled here.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Open || m.conn == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal outbound record")
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrapf(err, "write frame")
	}
	return nil
}

// Disconnect closes the connection and suppresses automatic reconnection.
// The keepalive probe and any pending backoff timer are cancelled before the
// method returns; the handler still receives OnClose through the read loop.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.suppress = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if m.stopPing != nil {
		close(m.stopPing)
		m.stopPing = nil
	}
	if m.conn != nil {
		m.state = Closing
		_ = m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = m.conn.Close()
	} else {
		m.state = Disconnected
	}
	m.mu.Unlock()
	m.logger.Info().Msg("disconnected")
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the connection is Open.
func (m *Manager) Connected() bool {
	return m.State() == Open
}

// Attempts returns the reconnect attempt counter. It resets to zero on a
// successful open, so a value at the configured maximum during OnClose means
// the budget is exhausted.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
