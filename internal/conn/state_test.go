package conn

import (
	"testing"
	"time"

	"lingozap/internal/bus"
)

func TestMachineValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
	}{
		{"fresh pairing", []State{AwaitingQR, Open, Closed, Connecting}},
		{"resumed session", []State{Open, Closed, Connecting, Open}},
		{"qr timeout retry", []State{AwaitingQR, Connecting, AwaitingQR}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			for _, to := range tt.path {
				if err := m.Transition(to); err != nil {
					t.Fatalf("Transition(%s) error = %v", to, err)
				}
			}
			if m.Current() != tt.path[len(tt.path)-1] {
				t.Errorf("Current() = %s, want %s", m.Current(), tt.path[len(tt.path)-1])
			}
		})
	}
}

func TestMachineInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Open); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(AwaitingQR); err == nil {
		t.Error("Open -> AwaitingQR should be rejected")
	}
	if m.Current() != Open {
		t.Errorf("state changed on rejected transition: %s", m.Current())
	}
}

func TestMachineTerminalFreezes(t *testing.T) {
	m := NewMachine(nil)
	_ = m.Transition(Open)
	_ = m.Transition(Closed)
	m.MarkTerminal()

	if err := m.Transition(Connecting); err == nil {
		t.Error("terminal machine accepted a transition")
	}
	if !m.Snapshot().Terminal {
		t.Error("Snapshot().Terminal = false")
	}
}

func TestMachineQRLifecycle(t *testing.T) {
	m := NewMachine(nil)

	// Challenges are ignored outside AwaitingQR.
	m.SetQR("early")
	if m.QR() != "" {
		t.Errorf("QR() = %q before AwaitingQR", m.QR())
	}

	_ = m.Transition(AwaitingQR)
	m.SetQR("code-1")
	m.SetQR("code-2")
	if m.QR() != "code-2" {
		t.Errorf("QR() = %q, want latest code", m.QR())
	}

	// Leaving AwaitingQR discards the challenge.
	_ = m.Transition(Open)
	if m.QR() != "" {
		t.Errorf("QR() = %q after leaving AwaitingQR", m.QR())
	}
}

func TestMachinePublishesStatusChanges(t *testing.T) {
	b := bus.New()
	sub, cancel := b.Subscribe("conn", 8)
	defer cancel()

	m := NewMachine(b)
	if err := m.Transition(AwaitingQR); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-sub:
		if ev.Kind != bus.ConnStatusChanged {
			t.Errorf("Kind = %s", ev.Kind)
		}
		change, ok := ev.Payload.(StatusChange)
		if !ok {
			t.Fatalf("Payload type = %T", ev.Payload)
		}
		if change.From != Connecting || change.To != AwaitingQR {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no status event published")
	}
}
