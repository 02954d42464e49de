// Package router classifies inbound chat events and drives their two
// independent effects: persisting an activity record and, for messages
// that mention the bot, dispatching a reply. Neither effect may block
// or suppress the other.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
	"github.com/nothingworksright/unblinkingbot/internal/metrics"
	"github.com/nothingworksright/unblinkingbot/internal/store"
)

// replyTemplate is the fixed auto-reply, filled with the sender's
// resolved display name.
const replyTemplate = "That's my name %s, don't wear it out!"

// Store is the slice of the activity store the router writes through.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Trim(ctx context.Context, prefix string, keep int) (int, error)
}

// Resolver resolves user IDs to display names via the live connection.
type Resolver interface {
	ResolveUser(ctx context.Context, id string) (string, error)
}

// Sender consumes the outbound messages the router constructs.
type Sender interface {
	Send(ctx context.Context, msg *bus.OutboundMessage)
}

// Config holds the routing policy knobs.
type Config struct {
	// BotName is the name token mention detection matches
	// case-insensitively.
	BotName string

	// Retain is the number of activity records kept per trim pass.
	Retain int
}

// Router is the consumer loop over the connection's event stream.
type Router struct {
	cfg      Config
	store    Store
	keys     *store.Keyer
	resolver Resolver
	sender   Sender
	self     func() bus.Identity
	notifier bus.Notifier
	logger   *slog.Logger
}

// New creates a router. self reports the currently-authenticated bot
// identity (zero when not connected).
func New(cfg Config, st Store, keys *store.Keyer, resolver Resolver, sender Sender, self func() bus.Identity, notifier bus.Notifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		cfg:      cfg,
		store:    st,
		keys:     keys,
		resolver: resolver,
		sender:   sender,
		self:     self,
		notifier: notifier,
		logger:   logger,
	}
}

// Run consumes events until ctx is cancelled or the stream closes.
// Events are handled strictly in arrival order.
func (r *Router) Run(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle classifies one event exactly once. A failure in the logging
// path is logged and never escalates to the reply path, and vice versa.
func (r *Router) Handle(ctx context.Context, ev bus.Event) {
	metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case bus.EventMessage:
		r.record(ctx, ev)
		r.maybeReply(ctx, ev.Message)
	case bus.EventGoodbye, bus.EventReactionAdded:
		r.record(ctx, ev)
	}
}

// activityRecord is the persisted snapshot of one observed event.
type activityRecord struct {
	Kind      string `json:"kind"`
	Sender    string `json:"sender,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Text      string `json:"text,omitempty"`
	Reaction  string `json:"reaction,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (r *Router) record(ctx context.Context, ev bus.Event) {
	rec := activityRecord{Kind: string(ev.Kind)}
	switch {
	case ev.Message != nil:
		rec.Sender = ev.Message.SenderID
		rec.Channel = ev.Message.Channel
		rec.Text = ev.Message.Text
		rec.Timestamp = ev.Message.Timestamp
	case ev.Reaction != nil:
		rec.Sender = ev.Reaction.SenderID
		rec.Channel = ev.Reaction.Channel
		rec.Reaction = ev.Reaction.Reaction
		rec.Timestamp = ev.Reaction.Timestamp
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		r.logger.Error("router: encoding activity record", "err", err)
		return
	}

	key := r.keys.Next()
	if err := r.store.Put(ctx, key, payload); err != nil {
		r.logger.Error("router: writing activity record", "key", key, "err", err)
		return
	}

	deleted, err := r.store.Trim(ctx, r.keys.Prefix(), r.cfg.Retain)
	if err != nil {
		r.logger.Error("router: trimming activity records", "prefix", r.keys.Prefix(), "err", err)
	} else if deleted > 0 {
		metrics.TrimDeletedTotal.Add(float64(deleted))
	}

	r.notifier.Emit("slackActivity", rec)
}

// maybeReply applies mention detection and, on a match, constructs and
// dispatches the templated reply. Identity-resolution failures skip the
// reply; they never crash the loop.
func (r *Router) maybeReply(ctx context.Context, msg *bus.MessageEvent) {
	if msg == nil || msg.Text == "" {
		return
	}
	if !r.mentioned(msg.Text) {
		return
	}

	name, err := r.resolver.ResolveUser(ctx, msg.SenderID)
	if err != nil {
		r.logger.Warn("router: skipping reply, cannot resolve sender", "sender", msg.SenderID, "err", err)
		return
	}

	r.sender.Send(ctx, &bus.OutboundMessage{
		Text:    fmt.Sprintf(replyTemplate, name),
		Channel: msg.Channel,
	})
}

// mentioned reports whether text names the bot, either by its
// configured name token (case-insensitive) or by the literal user ID of
// the authenticated bot user.
func (r *Router) mentioned(text string) bool {
	if r.cfg.BotName != "" &&
		strings.Contains(strings.ToLower(text), strings.ToLower(r.cfg.BotName)) {
		return true
	}
	if id := r.self().UserID; id != "" && strings.Contains(text, id) {
		return true
	}
	return false
}
