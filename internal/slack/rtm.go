package slack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	slackapi "github.com/slack-go/slack"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
)

// rtmClient adapts the slack-go RTM client to the Client capability.
type rtmClient struct {
	api    *slackapi.Client
	rtm    *slackapi.RTM
	events chan bus.Event
	logger *slog.Logger
	once   sync.Once
}

// RTMFactory returns a Factory producing slack-go RTM connections.
func RTMFactory(debug bool, logger *slog.Logger) Factory {
	return func(token string) Client {
		api := slackapi.New(token, slackapi.OptionDebug(debug))
		return &rtmClient{
			api:    api,
			rtm:    api.NewRTM(),
			events: make(chan bus.Event, 64),
			logger: logger,
		}
	}
}

func (c *rtmClient) Start() {
	c.once.Do(func() {
		go c.rtm.ManageConnection()
		go c.pump()
	})
}

func (c *rtmClient) Disconnect() error {
	if err := c.rtm.Disconnect(); err != nil {
		return fmt.Errorf("slack: disconnect: %w", err)
	}
	return nil
}

func (c *rtmClient) Send(text, channel string) error {
	c.rtm.SendMessage(c.rtm.NewOutgoingMessage(text, channel))
	return nil
}

func (c *rtmClient) ResolveUser(ctx context.Context, id string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, id)
	if err != nil {
		return "", fmt.Errorf("slack: resolve user %s: %w", id, err)
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName, nil
	}
	if user.RealName != "" {
		return user.RealName, nil
	}
	return user.Name, nil
}

func (c *rtmClient) ResolveTeam(ctx context.Context) (string, error) {
	team, err := c.api.GetTeamInfoContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack: resolve team: %w", err)
	}
	return team.Name, nil
}

func (c *rtmClient) Events() <-chan bus.Event {
	return c.events
}

// pump translates raw RTM events into the typed stream. Unknown event
// types are dropped after a debug log; the consumer only ever sees the
// typed set.
func (c *rtmClient) pump() {
	defer close(c.events)
	for msg := range c.rtm.IncomingEvents {
		switch ev := msg.Data.(type) {
		case *slackapi.ConnectingEvent:
			c.logger.Debug("slack: connecting", "attempt", ev.Attempt)

		case *slackapi.HelloEvent:
			c.events <- bus.Event{Kind: bus.EventAuthenticated}

		case *slackapi.ConnectedEvent:
			identity := &bus.Identity{}
			if ev.Info != nil {
				if ev.Info.User != nil {
					identity.UserID = ev.Info.User.ID
					identity.UserName = ev.Info.User.Name
				}
				if ev.Info.Team != nil {
					identity.TeamID = ev.Info.Team.ID
					identity.TeamName = ev.Info.Team.Name
				}
			}
			c.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: identity}

		case *slackapi.DisconnectedEvent:
			reason := "connection closed"
			if ev.Cause != nil {
				reason = ev.Cause.Error()
			}
			c.events <- bus.Event{Kind: bus.EventDisconnected, Reason: reason}
			if ev.Intentional {
				return
			}

		case *slackapi.InvalidAuthEvent:
			c.events <- bus.Event{Kind: bus.EventDisconnected, Reason: "invalid credentials"}
			return

		case *slackapi.MessageEvent:
			c.events <- bus.Event{Kind: bus.EventMessage, Message: &bus.MessageEvent{
				SenderID:  ev.User,
				Channel:   ev.Channel,
				Text:      ev.Text,
				Timestamp: ev.Timestamp,
			}}

		case *slackapi.ReactionAddedEvent:
			c.events <- bus.Event{Kind: bus.EventReactionAdded, Reaction: &bus.ReactionEvent{
				SenderID:  ev.User,
				Channel:   ev.Item.Channel,
				Reaction:  ev.Reaction,
				Timestamp: ev.EventTimestamp,
			}}

		case *slackapi.RTMError:
			c.logger.Warn("slack: rtm error", "code", ev.Code, "msg", ev.Msg)

		case *slackapi.LatencyReport:
			c.logger.Debug("slack: latency", "value", ev.Value)

		default:
			c.logger.Debug("slack: unhandled event", "type", msg.Type)
		}
	}
}
