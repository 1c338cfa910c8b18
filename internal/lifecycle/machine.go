package lifecycle

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/blackzap/internal/bus"
)

// Phase is a runtime phase of a client session or of the daemon.
type Phase string

// Client session phases.
const (
	Booting   Phase = "BOOTING"
	SignedOut Phase = "SIGNED_OUT"
	Loading   Phase = "LOADING"
	Ready     Phase = "READY"
	Error     Phase = "ERROR"
)

// Daemon phases. The daemon also starts in Booting and may end in Error.
const (
	Serving  Phase = "SERVING"
	Stopping Phase = "STOPPING"
)

// Table lists the allowed transitions out of each phase.
type Table map[Phase][]Phase

// SessionTable drives the client session: a stored session is loaded on
// boot, sign-in and token refresh reload it, sign-out can happen at any
// point after boot.
var SessionTable = Table{
	Booting:   {SignedOut, Loading},
	SignedOut: {Loading},
	Loading:   {Ready, Error, SignedOut},
	Ready:     {Loading, SignedOut},
	Error:     {Loading, SignedOut},
}

// DaemonTable drives bzd.
var DaemonTable = Table{
	Booting: {Serving, Error},
	Serving: {Stopping, Error},
	Error:   {Stopping},
}

// Machine tracks and enforces phase transitions, publishing each one on the
// bus under kind.
type Machine struct {
	mu      sync.RWMutex
	current Phase
	since   time.Time
	table   Table
	kind    string
	bus     *bus.Bus
}

// NewMachine creates a machine in Booting. b may be nil.
func NewMachine(b *bus.Bus, kind string, table Table) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		table:   table,
		kind:    kind,
		bus:     b,
	}
}

// NewSession creates a machine for a client session.
func NewSession(b *bus.Bus) *Machine {
	return NewMachine(b, bus.KindPhaseChanged, SessionTable)
}

// NewDaemon creates a machine for the daemon.
func NewDaemon(b *bus.Bus) *Machine {
	return NewMachine(b, bus.KindDaemonPhase, DaemonTable)
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current phase was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition moves to a new phase. Returns an error if the table does not
// allow it.
func (m *Machine) Transition(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.table[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      m.kind,
			Timestamp: m.since,
			Payload:   Change{From: from, To: to},
		})
	}
	return nil
}

// Change is the payload of phase change events.
type Change struct {
	From Phase
	To   Phase
}
