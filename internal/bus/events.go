package bus

// EventKind classifies an event coming off the chat platform connection.
type EventKind string

const (
	EventAuthenticated    EventKind = "authenticated"
	EventConnectionOpened EventKind = "connection_opened"
	EventDisconnected     EventKind = "disconnected"
	EventGoodbye          EventKind = "goodbye"
	EventMessage          EventKind = "message"
	EventReactionAdded    EventKind = "reaction_added"
)

// Identity is the resolved team/user identity of the authenticated bot.
type Identity struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

// MessageEvent is an inbound chat message as received from the platform.
type MessageEvent struct {
	SenderID  string `json:"sender"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ReactionEvent is an emoji reaction added to an item.
type ReactionEvent struct {
	SenderID  string `json:"sender"`
	Channel   string `json:"channel"`
	Reaction  string `json:"reaction"`
	Timestamp string `json:"timestamp"`
}

// Event is one entry on the connection's event stream. Kind determines
// which of the optional fields is populated.
type Event struct {
	Kind     EventKind
	Identity *Identity      // EventConnectionOpened
	Reason   string         // EventDisconnected
	Message  *MessageEvent  // EventMessage
	Reaction *ReactionEvent // EventReactionAdded
}

// OutboundMessage is a reply to send back through the connection. It is
// request-scoped: constructed by the router, consumed once by the
// dispatcher, never persisted.
type OutboundMessage struct {
	Text    string
	Channel string
}

// Notifier pushes best-effort notifications to connected observers.
// Implementations must not block the caller; observers that are not
// connected simply miss the notification.
type Notifier interface {
	Emit(event string, payload any)
}
