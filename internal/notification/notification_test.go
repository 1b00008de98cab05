package notification

import (
	"errors"
	"strings"
	"testing"
)

type fakeNotifier struct {
	name    string
	enabled bool
	sent    []*Notification
	sendErr error
}

func (f *fakeNotifier) Send(n *Notification) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) Name() string    { return f.name }
func (f *fakeNotifier) IsEnabled() bool { return f.enabled }

func TestManagerFanOut(t *testing.T) {
	m := NewManager()
	a := &fakeNotifier{name: "a", enabled: true}
	b := &fakeNotifier{name: "b", enabled: true}
	m.AddNotifier(a)
	m.AddNotifier(b)

	err := m.SendSignal("bitcoin-up-or-down-15m-1756500000", "Down", "FADE_UP", 75, 0.42, 0.045)
	if err != nil {
		t.Fatalf("Should send without error, got %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("Should deliver to both providers, got %d and %d", len(a.sent), len(b.sent))
	}
	if a.sent[0].Type != NotifySignal {
		t.Errorf("Should be a signal notification, got %s", a.sent[0].Type)
	}
	if !strings.Contains(a.sent[0].Message, "Score: 75") {
		t.Errorf("Should mention the score, got %q", a.sent[0].Message)
	}
}

func TestManagerSkipsDisabledProviders(t *testing.T) {
	m := NewManager()
	off := &fakeNotifier{name: "off", enabled: false}
	on := &fakeNotifier{name: "on", enabled: true}
	m.AddNotifier(off)
	m.AddNotifier(on)

	m.SendPositionOpen("market-a", "Up", 0.55, 18.50)

	if len(off.sent) != 0 {
		t.Error("Should not deliver to disabled providers")
	}
	if len(on.sent) != 1 {
		t.Errorf("Should deliver to enabled provider, got %d", len(on.sent))
	}
}

func TestManagerReturnsProviderError(t *testing.T) {
	m := NewManager()
	failing := &fakeNotifier{name: "failing", enabled: true, sendErr: errors.New("webhook down")}
	working := &fakeNotifier{name: "working", enabled: true}
	m.AddNotifier(failing)
	m.AddNotifier(working)

	err := m.SendError("Scan failed", "gamma API timeout")
	if err == nil {
		t.Error("Should surface the provider error")
	}
	if len(working.sent) != 1 {
		t.Error("Should still deliver to the working provider")
	}
}

func TestPositionCloseMessageContents(t *testing.T) {
	m := NewManager()
	n := &fakeNotifier{name: "n", enabled: true}
	m.AddNotifier(n)

	m.SendPositionClose("market-a", "Down", 0.42, 0.47, 2.38, 11.9, "take_profit")

	if len(n.sent) != 1 {
		t.Fatalf("Should deliver one notification, got %d", len(n.sent))
	}
	msg := n.sent[0].Message
	if !strings.Contains(msg, "0.420 → 0.470") {
		t.Errorf("Should show entry and exit prices, got %q", msg)
	}
	if !strings.Contains(msg, "take_profit") {
		t.Errorf("Should show the exit reason, got %q", msg)
	}
	if !strings.Contains(n.sent[0].Title, "✅") {
		t.Errorf("Should mark a winning close, got %q", n.sent[0].Title)
	}
}

func TestDisabledNotifierConstructors(t *testing.T) {
	tg := NewTelegramNotifier(TelegramConfig{Enabled: true})
	if tg.IsEnabled() {
		t.Error("Should disable telegram without credentials")
	}

	dc := NewDiscordNotifier(DiscordConfig{Enabled: true})
	if dc.IsEnabled() {
		t.Error("Should disable discord without a webhook URL")
	}
}
