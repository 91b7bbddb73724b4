package phase

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Machine applies one command at a time to the current phase and keeps
// the transition log. Illegal commands are rejected silently; once a
// terminal phase is entered the machine is sealed and every further
// Apply is a no-op.
type Machine struct {
	mu      sync.Mutex
	current Phase
	sealed  bool
	records []TransitionRecord
}

// NewMachine starts a machine in idle.
func NewMachine() *Machine {
	return &Machine{current: Phase{Kind: Idle}}
}

// Apply attempts one transition. The returned phase is the machine's
// phase after the attempt; ok reports whether a transition happened.
func (m *Machine) Apply(cmd Command) (Phase, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return m.current, false
	}
	from := m.current
	to, ok := next(from, cmd)
	if !ok {
		log.Debug().
			Str("command", string(cmd.Kind)).
			Str("phase", string(from.Kind)).
			Msg("phase.Machine.Apply rejected")
		return from, false
	}
	m.records = append(m.records, TransitionRecord{
		From:    from,
		To:      to,
		Command: cmd.Kind,
		At:      time.Now(),
	})
	m.current = to
	if to.Terminal() {
		m.sealed = true
	}
	log.Info().
		Str("command", string(cmd.Kind)).
		Str("from", string(from.Kind)).
		Str("to", string(to.Kind)).
		Bool("sealed", m.sealed).
		Msg("phase.Machine.Apply transition")
	return to, true
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Sealed reports whether a terminal phase has been reached.
func (m *Machine) Sealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sealed
}

// Records returns a defensive copy of the transition log.
func (m *Machine) Records() []TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TransitionRecord, len(m.records))
	copy(out, m.records)
	return out
}
