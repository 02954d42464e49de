package router

import (
	"context"
	"errors"
	"testing"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
)

type fakeConn struct {
	ready    bool
	failSend bool
	sent     []bus.OutboundMessage
}

func (f *fakeConn) Ready() bool { return f.ready }

func (f *fakeConn) Send(text, channel string) error {
	if f.failSend {
		return errors.New("socket closed")
	}
	f.sent = append(f.sent, bus.OutboundMessage{Text: text, Channel: channel})
	return nil
}

func TestDispatcherGuards(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		msg      *bus.OutboundMessage
		wantSent int
	}{
		{"nil message", true, nil, 0},
		{"missing text", true, &bus.OutboundMessage{Channel: "C1"}, 0},
		{"missing channel", true, &bus.OutboundMessage{Text: "hi"}, 0},
		{"connection not ready", false, &bus.OutboundMessage{Text: "hi", Channel: "C1"}, 0},
		{"fully formed and ready", true, &bus.OutboundMessage{Text: "hi", Channel: "C1"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{ready: tt.ready}
			d := NewDispatcher(conn, nil)
			d.Send(context.Background(), tt.msg)
			if len(conn.sent) != tt.wantSent {
				t.Errorf("sent %d messages, want %d", len(conn.sent), tt.wantSent)
			}
		})
	}
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	conn := &fakeConn{ready: true, failSend: true}
	d := NewDispatcher(conn, nil)
	// Fire-and-forget: a transport failure must not panic or propagate.
	d.Send(context.Background(), &bus.OutboundMessage{Text: "hi", Channel: "C1"})
}
