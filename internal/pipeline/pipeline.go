// Package pipeline owns ordered event handling for activation decisions.
//
// Ownership boundary:
// - handler registration order and in-order execution
// - single-flight dispatch with drop-on-busy
// - published-phase bookkeeping and terminal short-circuit
//
// Handlers decide phase changes; the pipeline never invents one.
package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/phase"
)

// Event is one tagged occurrence flowing through the pipeline. Payload
// fields are set per kind; unused fields stay zero.
type Event struct {
	Kind      string
	Connected bool
	Allowed   bool
	Endpoint  string
	Data      map[string]any
}

// EmitFunc lets a handler schedule a follow-up event. Follow-ups run
// after the in-flight event finishes, within the same dispatch flight.
type EmitFunc func(Event)

// Handler inspects one event against the current published phase and
// either returns a new phase or reports not-applicable.
type Handler func(ev Event, current phase.Phase, emit EmitFunc) (phase.Phase, bool)

type namedHandler struct {
	name string
	fn   Handler
}

// Pipeline runs handlers strictly in registration order, one dispatch at
// a time. An event arriving while a dispatch is in flight is dropped,
// not queued.
type Pipeline struct {
	mu        sync.Mutex
	handlers  []namedHandler
	published phase.Phase

	busy atomic.Bool

	// OnDrop observes events rejected by the busy guard.
	OnDrop func(Event)
}

// New starts a pipeline publishing idle.
func New() *Pipeline {
	return &Pipeline{published: phase.Phase{Kind: phase.Idle}}
}

// Register appends a handler. Order of registration is execution order.
func (p *Pipeline) Register(name string, fn Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, namedHandler{name: name, fn: fn})
}

// Published returns the phase the pipeline currently exposes.
func (p *Pipeline) Published() phase.Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

func (p *Pipeline) setPublished(ph phase.Phase) {
	p.mu.Lock()
	p.published = ph
	p.mu.Unlock()
}

func (p *Pipeline) snapshot() []namedHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]namedHandler, len(p.handlers))
	copy(out, p.handlers)
	return out
}

// Dispatch runs the event (and any handler-emitted follow-ups) through
// the chain. Returns false when the event was dropped because another
// dispatch was in flight.
func (p *Pipeline) Dispatch(ev Event) bool {
	if !p.busy.CompareAndSwap(false, true) {
		log.Warn().Str("event", ev.Kind).Msg("pipeline.Dispatch dropped, dispatch in flight")
		if p.OnDrop != nil {
			p.OnDrop(ev)
		}
		return false
	}
	defer p.busy.Store(false)

	queue := []Event{ev}
	var emit EmitFunc = func(next Event) {
		queue = append(queue, next)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		p.run(current, emit)
	}
	return true
}

// run executes one event through the chain. A terminal result ends the
// chain for this event; non-terminal results let later handlers observe
// the updated phase.
func (p *Pipeline) run(ev Event, emit EmitFunc) {
	for _, h := range p.snapshot() {
		current := p.Published()
		next, ok := h.fn(ev, current, emit)
		if !ok {
			continue
		}
		p.setPublished(next)
		log.Debug().
			Str("event", ev.Kind).
			Str("handler", h.name).
			Str("phase", string(next.Kind)).
			Msg("pipeline.run phase published")
		if next.Terminal() {
			return
		}
	}
}
