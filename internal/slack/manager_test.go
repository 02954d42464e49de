package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nothingworksright/unblinkingbot/internal/bus"
)

type fakeClient struct {
	events chan bus.Event

	mu          sync.Mutex
	starts      int
	disconnects int
	sent        []bus.OutboundMessage
	users       map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		events: make(chan bus.Event, 16),
		users:  map[string]string{},
	}
}

func (f *fakeClient) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeClient) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeClient) Send(text, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, bus.OutboundMessage{Text: text, Channel: channel})
	return nil
}

func (f *fakeClient) ResolveUser(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.users[id]
	if !ok {
		return "", fmt.Errorf("unknown user %s", id)
	}
	return name, nil
}

func (f *fakeClient) ResolveTeam(context.Context) (string, error) {
	return "unblinking", nil
}

func (f *fakeClient) Events() <-chan bus.Event {
	return f.events
}

type recordingNotifier struct {
	mu       sync.Mutex
	emitted  []string
	payloads []any
}

func (n *recordingNotifier) Emit(event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emitted = append(n.emitted, event)
	n.payloads = append(n.payloads, payload)
}

func (n *recordingNotifier) snapshot() ([]string, []any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.emitted...), append([]any(nil), n.payloads...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func newTestManager() (*Manager, *fakeClient, *recordingNotifier) {
	fake := newFakeClient()
	notifier := &recordingNotifier{}
	m := NewManager(func(string) Client { return fake }, notifier, nil)
	return m, fake, notifier
}

func TestConnectRejectsEmptyToken(t *testing.T) {
	m, _, _ := newTestManager()
	if err := m.Connect(""); err == nil {
		t.Fatal("Connect with empty token should fail")
	}
	if m.State() != StateDisconnected {
		t.Errorf("state after failed connect: %s", m.State())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	m, fake, _ := newTestManager()
	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}

	m.Start()
	m.Start()
	m.Start()

	fake.mu.Lock()
	starts := fake.starts
	fake.mu.Unlock()
	if starts != 1 {
		t.Errorf("handshakes issued: %d, want 1", starts)
	}
	if m.State() != StateConnecting {
		t.Errorf("state after Start: %s, want connecting", m.State())
	}
}

func TestStartWithoutConnectIsNoop(t *testing.T) {
	m, _, _ := newTestManager()
	m.Start()
	if m.State() != StateDisconnected {
		t.Errorf("state: %s, want disconnected", m.State())
	}
}

func TestDisconnectWhenAlreadyDisconnected(t *testing.T) {
	m, _, notifier := newTestManager()

	m.Disconnect("User request")
	m.Disconnect("User request")

	events, payloads := notifier.snapshot()
	if len(events) != 2 {
		t.Fatalf("notifications: %d, want 2", len(events))
	}
	for i := range events {
		if events[i] != "slackDisconnection" {
			t.Errorf("notification %d: %s, want slackDisconnection", i, events[i])
		}
		if payloads[i] != payloads[0] {
			t.Errorf("notification payloads differ: %v vs %v", payloads[i], payloads[0])
		}
	}
}

func TestLifecycleTransitions(t *testing.T) {
	m, fake, notifier := newTestManager()
	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}
	m.Start()

	fake.events <- bus.Event{Kind: bus.EventAuthenticated}
	waitFor(t, func() bool { return m.State() == StateAuthenticated })

	fake.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: &bus.Identity{
		UserID: "U123", UserName: "unblinkingbot", TeamID: "T1", TeamName: "unblinking",
	}}
	waitFor(t, func() bool { return m.State() == StateConnected })

	if !m.Ready() {
		t.Error("Ready should be true once connected")
	}
	if m.Self().UserID != "U123" {
		t.Errorf("self identity: %+v", m.Self())
	}

	events, payloads := notifier.snapshot()
	if len(events) != 1 || events[0] != "slackConnectionOpened" {
		t.Fatalf("notifications: %v", events)
	}
	msg, _ := payloads[0].(string)
	if !strings.Contains(msg, "unblinking") || !strings.Contains(msg, "unblinkingbot") {
		t.Errorf("connection notification missing resolved names: %q", msg)
	}
}

func TestDisconnectTearsDownLiveConnection(t *testing.T) {
	m, fake, notifier := newTestManager()
	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}
	m.Start()
	fake.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: &bus.Identity{UserID: "U1"}}
	waitFor(t, func() bool { return m.Ready() })

	m.Disconnect("User request")

	fake.mu.Lock()
	disconnects := fake.disconnects
	fake.mu.Unlock()
	if disconnects != 1 {
		t.Errorf("client disconnects: %d, want 1", disconnects)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state: %s, want disconnected", m.State())
	}

	events, payloads := notifier.snapshot()
	last := len(events) - 1
	if events[last] != "slackDisconnection" || payloads[last] != "User request" {
		t.Errorf("disconnect notification: %s %v", events[last], payloads[last])
	}
}

func TestRemoteDisconnectNotifiesOnce(t *testing.T) {
	m, fake, notifier := newTestManager()
	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}
	m.Start()
	fake.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: &bus.Identity{UserID: "U1"}}
	waitFor(t, func() bool { return m.Ready() })

	fake.events <- bus.Event{Kind: bus.EventDisconnected, Reason: "connection dropped"}
	waitFor(t, func() bool { return m.State() == StateDisconnected })

	events, payloads := notifier.snapshot()
	var reasons []any
	for i, e := range events {
		if e == "slackDisconnection" {
			reasons = append(reasons, payloads[i])
		}
	}
	if len(reasons) != 1 || reasons[0] != "connection dropped" {
		t.Errorf("disconnect notifications: %v", reasons)
	}
}

func TestSendGuardedByState(t *testing.T) {
	m, fake, _ := newTestManager()
	if err := m.Send("hi", "C1"); err == nil {
		t.Fatal("Send while disconnected should fail")
	}

	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}
	m.Start()
	fake.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: &bus.Identity{UserID: "U1"}}
	waitFor(t, func() bool { return m.Ready() })

	if err := m.Send("hi", "C1"); err != nil {
		t.Fatal(err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 1 || fake.sent[0].Channel != "C1" {
		t.Errorf("sent: %+v", fake.sent)
	}
}

func TestConnectWhileLiveFails(t *testing.T) {
	m, fake, _ := newTestManager()
	if err := m.Connect("xoxb-test"); err != nil {
		t.Fatal(err)
	}
	m.Start()
	fake.events <- bus.Event{Kind: bus.EventConnectionOpened, Identity: &bus.Identity{UserID: "U1"}}
	waitFor(t, func() bool { return m.Ready() })

	if err := m.Connect("xoxb-other"); err == nil {
		t.Fatal("Connect while connected should fail")
	}
}
