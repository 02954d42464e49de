package router

import (
	"context"
	"log/slog"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
	"github.com/nothingworksright/unblinkingbot/internal/metrics"
)

// Connection is the slice of the lifecycle manager the dispatcher
// needs: an explicit readiness check and a fire-and-forget send.
type Connection interface {
	Ready() bool
	Send(text, channel string) error
}

// Dispatcher sends outbound messages through the connection. It is
// fire-and-forget: no retry, no acknowledgment tracking.
type Dispatcher struct {
	conn   Connection
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher over conn.
func NewDispatcher(conn Connection, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{conn: conn, logger: logger}
}

// Send issues the message if the connection is live and the message is
// fully formed. Partially-formed messages and sends without a live
// connection are dropped silently, not queued or errored.
func (d *Dispatcher) Send(ctx context.Context, msg *bus.OutboundMessage) {
	if msg == nil || msg.Text == "" || msg.Channel == "" {
		return
	}
	if !d.conn.Ready() {
		d.logger.Debug("dispatcher: dropping message, connection not ready", "channel", msg.Channel)
		return
	}
	if err := d.conn.Send(msg.Text, msg.Channel); err != nil {
		d.logger.Warn("dispatcher: send failed", "channel", msg.Channel, "err", err)
		return
	}
	metrics.RepliesTotal.Inc()
}
