// Package conn tracks the transport connection lifecycle and drives
// reconnection policy when the link drops.
package conn

import (
	"fmt"
	"slices"
	"sync"

	"lingozap/internal/bus"
)

// State represents a connection lifecycle state.
type State string

const (
	Connecting State = "CONNECTING"
	AwaitingQR State = "AWAITING_QR"
	Open       State = "OPEN"
	Closed     State = "CLOSED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Connecting: {AwaitingQR, Open, Closed},
	AwaitingQR: {Open, Connecting, Closed},
	Open:       {Closed},
	Closed:     {Connecting},
}

// Machine tracks and enforces connection state transitions. Once marked
// terminal (credentials revoked) it refuses every further transition.
type Machine struct {
	mu       sync.RWMutex
	current  State
	qr       string
	terminal bool
	bus      *bus.Bus
}

// NewMachine creates a new state machine starting in Connecting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Connecting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid
// or the machine is terminal. Leaving AwaitingQR discards the stored challenge.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminal {
		return fmt.Errorf("connection is terminal, refusing transition to %s", to)
	}
	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if from == AwaitingQR {
		m.qr = ""
	}
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind: bus.ConnStatusChanged,
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// SetQR stores the active pairing challenge. Only meaningful in AwaitingQR;
// the server rotates codes every few seconds, so the latest one wins.
func (m *Machine) SetQR(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != AwaitingQR {
		return
	}
	m.qr = code
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:    bus.ConnQRRotated,
			Payload: code,
		})
	}
}

// QR returns the active pairing challenge, or empty when none is pending.
func (m *Machine) QR() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qr
}

// MarkTerminal freezes the machine. Used when the account logged us out:
// reconnecting with revoked credentials would just loop.
func (m *Machine) MarkTerminal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminal = true
}

// Terminal reports whether the machine refuses further transitions.
func (m *Machine) Terminal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.terminal
}

// Snapshot is a point-in-time view of the connection for health reporting.
type Snapshot struct {
	State    State  `json:"state"`
	QR       string `json:"-"`
	Terminal bool   `json:"terminal"`
}

// Snapshot returns the current state, challenge and terminal flag together.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.current, QR: m.qr, Terminal: m.terminal}
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
