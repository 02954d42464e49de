package slack

import (
	"context"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
)

// TokenKey is the well-known store key holding the Slack bot token. The
// bridge reads it once at startup; setting and rotating it is the
// caller's business (the token subcommand, here).
const TokenKey = "slack::settings::token"

// Client is the chat platform connection capability. A Client is bound
// to one token at construction and emits its lifecycle and chat events
// on a single stream; it performs no routing or storage itself.
type Client interface {
	// Start begins the connect handshake. It does not block until
	// authentication completes; completion arrives on Events.
	Start()

	// Disconnect disables any automatic reconnect behavior and tears
	// the connection down.
	Disconnect() error

	// Send posts text to a channel. Fire-and-forget.
	Send(text, channel string) error

	// ResolveUser returns the display name for a user ID.
	ResolveUser(ctx context.Context, id string) (string, error)

	// ResolveTeam returns the connected team's name.
	ResolveTeam(ctx context.Context) (string, error)

	// Events is the typed event stream. Closed when the connection is
	// torn down for good.
	Events() <-chan bus.Event
}

// Factory constructs a Client bound to token. The manager uses it so
// tests can substitute a fake connection.
type Factory func(token string) Client
