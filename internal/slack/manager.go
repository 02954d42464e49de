package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
)

// State is the enumerated lifecycle state of the platform connection.
// It is the single source of truth for readiness; nothing infers
// readiness from field presence.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticated
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// alreadyDisconnected is the observer notification for a disconnect
// request that arrives with no live connection. Matching the historical
// wording keeps existing front ends working.
const alreadyDisconnected = "The Slack RTM Client was already disconnected."

// Manager owns the single logical connection to the chat platform. It
// serializes lifecycle transitions behind one mutex, tracks the
// enumerated State, and re-emits the connection's typed events on its
// own stream for the router to consume.
//
// The manager never retries a failed connection on its own; callers
// that want backoff call Connect/Start again.
type Manager struct {
	factory  Factory
	notifier bus.Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	client Client
	self   bus.Identity

	events chan bus.Event
}

// NewManager creates a manager in the Disconnected state.
func NewManager(factory Factory, notifier bus.Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		factory:  factory,
		notifier: notifier,
		logger:   logger,
		events:   make(chan bus.Event, 64),
	}
}

// Connect constructs a new connection handle bound to token. It fails
// fast on an empty token and does not block for authentication;
// completion arrives as Authenticated/ConnectionOpened events. Connect
// while a connection is live is an error — disconnect first.
func (m *Manager) Connect(token string) error {
	if token == "" {
		return fmt.Errorf("slack: cannot connect with an empty token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateDisconnected {
		return fmt.Errorf("slack: connection already %s", m.state)
	}

	m.client = m.factory(token)
	go m.pump(m.client.Events())
	return nil
}

// Start begins the connect handshake. Idempotent: without a connection
// handle, or when already connecting or connected, it is a no-op. A
// second handshake is never issued while one is outstanding.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil || m.state != StateDisconnected {
		return
	}
	m.state = StateConnecting
	m.client.Start()
}

// Disconnect tears the connection down. Idempotent: disconnecting an
// already-disconnected manager is not an error; observers are notified
// either way.
func (m *Manager) Disconnect(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil || m.state == StateDisconnected {
		m.notifier.Emit("slackDisconnection", alreadyDisconnected)
		return
	}

	if err := m.client.Disconnect(); err != nil {
		m.logger.Warn("slack: disconnect", "err", err)
	}
	m.state = StateDisconnected
	m.notifier.Emit("slackDisconnection", reason)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the connection can carry outbound messages.
func (m *Manager) Ready() bool {
	return m.State() == StateConnected
}

// Self returns the authenticated bot identity. Zero until the
// connection has opened.
func (m *Manager) Self() bus.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.self
}

// Events is the stream of lifecycle and chat events, in arrival order.
func (m *Manager) Events() <-chan bus.Event {
	return m.events
}

// Send posts text to a channel through the live connection.
func (m *Manager) Send(text, channel string) error {
	m.mu.Lock()
	client, state := m.client, m.state
	m.mu.Unlock()

	if client == nil || state != StateConnected {
		return fmt.Errorf("slack: cannot send while %s", state)
	}
	return client.Send(text, channel)
}

// ResolveUser resolves a user ID to a display name via the connection.
func (m *Manager) ResolveUser(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return "", fmt.Errorf("slack: no connection to resolve user %s", id)
	}
	return client.ResolveUser(ctx, id)
}

// pump applies lifecycle transitions from the connection's raw stream
// and forwards every event, in order, to the router stream. It exits
// when the client closes its stream.
func (m *Manager) pump(events <-chan bus.Event) {
	for ev := range events {
		switch ev.Kind {
		case bus.EventAuthenticated:
			m.logger.Info("slack: authenticated")
			m.mu.Lock()
			if m.state == StateConnecting {
				m.state = StateAuthenticated
			}
			m.mu.Unlock()

		case bus.EventConnectionOpened:
			m.mu.Lock()
			m.state = StateConnected
			if ev.Identity != nil {
				m.self = *ev.Identity
			}
			self := m.self
			m.mu.Unlock()
			msg := fmt.Sprintf("Connected to team %s as user %s.", self.TeamName, self.UserName)
			m.logger.Info("slack: connection opened", "team", self.TeamName, "user", self.UserName)
			m.notifier.Emit("slackConnectionOpened", msg)

		case bus.EventDisconnected:
			m.mu.Lock()
			wasConnected := m.state != StateDisconnected
			m.state = StateDisconnected
			m.mu.Unlock()
			if wasConnected {
				m.logger.Warn("slack: disconnected", "reason", ev.Reason)
				m.notifier.Emit("slackDisconnection", ev.Reason)
			}

		case bus.EventGoodbye:
			m.logger.Info("slack: goodbye")
		}

		m.events <- ev
	}
}
