package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/postbot/internal/bus"
)

// State is the daemon's runtime state.
type State string

const (
	Booting      State = "BOOTING"
	Connecting   State = "CONNECTING"
	AuthRequired State = "AUTH_REQUIRED"
	Ready        State = "READY"
	Degraded     State = "DEGRADED"
	Stopping     State = "STOPPING"
	Error        State = "ERROR"
)

// validTransitions lists the states reachable from each state. AuthRequired
// means the bot serves Telegram while a WhatsApp pairing is pending.
var validTransitions = map[State][]State{
	Booting:      {Connecting, Error},
	Connecting:   {Ready, AuthRequired, Degraded, Error},
	AuthRequired: {Connecting, Ready, Degraded, Stopping, Error},
	Ready:        {Degraded, AuthRequired, Stopping, Error},
	Degraded:     {Ready, Connecting, AuthRequired, Stopping, Error},
	Error:        {Booting, Stopping},
	Stopping:     {},
}

// Machine tracks and enforces daemon state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Booting.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Serving reports whether the bot accepts conversation turns and fires jobs.
func (m *Machine) Serving() bool {
	switch m.Current() {
	case Ready, Degraded, AuthRequired:
		return true
	}
	return false
}

// Transition moves to a new state. A transition to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == to {
		return nil
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.KindStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload of daemon.status_changed events.
type StatusChange struct {
	From State
	To   State
}
