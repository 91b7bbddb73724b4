package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/attribution"
	"github.com/davren/igniter/internal/connectivity"
	"github.com/davren/igniter/internal/gate"
	"github.com/davren/igniter/internal/observability"
	"github.com/davren/igniter/internal/phase"
	"github.com/davren/igniter/internal/pipeline"
	"github.com/davren/igniter/internal/resolver"
	"github.com/davren/igniter/internal/store"
)

// Mode is the render surface the orchestrator asks for.
type Mode string

const (
	ModeLoading Mode = "loading"
	ModeActive  Mode = "active"
	ModeStandby Mode = "standby"
	ModeOffline Mode = "offline"
)

// RenderDecision is the orchestrator's only outward effect.
type RenderDecision struct {
	Mode                 Mode   `json:"render_mode"`
	Endpoint             string `json:"endpoint,omitempty"`
	ShowPermissionPrompt bool   `json:"show_permission_prompt"`
}

// Config holds activation timing settings.
type Config struct {
	GlobalTimeout      time.Duration
	Debounce           time.Duration
	OrganicGraceDelay  time.Duration
	PermissionCooldown time.Duration
}

// DefaultConfig returns the boot timing defaults.
func DefaultConfig() Config {
	return Config{
		GlobalTimeout:      30 * time.Second,
		Debounce:           5 * time.Second,
		OrganicGraceDelay:  3 * time.Second,
		PermissionCooldown: 72 * time.Hour,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = def.GlobalTimeout
	}
	if c.Debounce <= 0 {
		c.Debounce = def.Debounce
	}
	if c.OrganicGraceDelay <= 0 {
		c.OrganicGraceDelay = def.OrganicGraceDelay
	}
	if c.PermissionCooldown <= 0 {
		c.PermissionCooldown = def.PermissionCooldown
	}
	return c
}

// Orchestrator wires the state machine, handler pipeline, consolidator,
// resolver, and connectivity monitor into one boot attempt. All
// collaborators are injected; the orchestrator owns no transport of its
// own and never surfaces a component error to its caller.
type Orchestrator struct {
	cfg Config

	st       store.Store
	gate     gate.Validator
	provider resolver.Provider
	monitor  connectivity.Monitor

	machine      *phase.Machine
	pipe         *pipeline.Pipeline
	consolidator *attribution.Consolidator

	deviceID string

	ctx     context.Context
	timeout *time.Timer

	mu       sync.Mutex
	deeplink attribution.Map
	decision RenderDecision

	sealOnce  sync.Once
	startOnce sync.Once
	done      chan struct{}
	stopCh    chan struct{}
}

// New builds an orchestrator in idle with all collaborators injected.
func New(
	cfg Config,
	st store.Store,
	validator gate.Validator,
	provider resolver.Provider,
	monitor connectivity.Monitor,
) *Orchestrator {
	cfg = cfg.WithDefaults()
	o := &Orchestrator{
		cfg:          cfg,
		st:           st,
		gate:         validator,
		provider:     provider,
		monitor:      monitor,
		machine:      phase.NewMachine(),
		pipe:         pipeline.New(),
		consolidator: attribution.New(st, cfg.Debounce),
		ctx:          context.Background(),
		done:         make(chan struct{}),
		stopCh:       make(chan struct{}),
	}
	o.pipe.OnDrop = func(ev pipeline.Event) {
		observability.RecordDroppedDispatch(ev.Kind)
	}
	o.deviceID = o.provisionDeviceID()
	o.registerHandlers()
	return o
}

// Start runs the bootstrap sequence once: dispatch Launch, arm the
// global timeout, start the connectivity monitor, and begin listening
// for attribution and deeplink arrivals.
func (o *Orchestrator) Start(ctx context.Context) {
	o.startOnce.Do(func() {
		o.ctx = ctx
		log.Info().
			Str("device_id", o.deviceID).
			Dur("global_timeout", o.cfg.GlobalTimeout).
			Msg("orchestrator.Start bootstrap")

		o.timeout = time.AfterFunc(o.cfg.GlobalTimeout, func() {
			o.dispatch(pipeline.Event{Kind: eventTimeout})
		})
		o.monitor.Start()
		go o.forwardConnectivity()
		go o.forwardArrivals()

		o.dispatch(pipeline.Event{Kind: eventBoot})
	})
}

// Stop aborts background work without forcing a transition. A sealed
// orchestrator is already stopped.
func (o *Orchestrator) Stop() {
	o.sealOnce.Do(func() {
		o.shutdown()
		close(o.done)
	})
}

// Done closes once a terminal phase is reached or Stop is called.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Phase returns the published phase.
func (o *Orchestrator) Phase() phase.Phase {
	return o.pipe.Published()
}

// Records returns the diagnostic transition log.
func (o *Orchestrator) Records() []phase.TransitionRecord {
	return o.machine.Records()
}

// SubmitAttribution feeds an external attribution arrival.
func (o *Orchestrator) SubmitAttribution(m attribution.Map) {
	o.consolidator.SubmitAttribution(m)
}

// SubmitDeeplink feeds an external deeplink arrival.
func (o *Orchestrator) SubmitDeeplink(m attribution.Map) {
	o.consolidator.SubmitDeeplink(m)
}

// Decision returns the current render decision. Before sealing it
// reflects the published phase; after sealing it is fixed. In the
// window between the seal and finalize storing the decision, the mode
// is derived from the final phase so a caller never sees an empty one.
func (o *Orchestrator) Decision() RenderDecision {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.machine.Sealed() {
		if o.decision.Mode != "" {
			return o.decision
		}
		final := o.machine.Phase()
		if final.Kind == phase.Operational {
			return RenderDecision{Mode: ModeActive, Endpoint: final.Endpoint}
		}
		return RenderDecision{Mode: ModeStandby}
	}
	if o.pipe.Published().Kind == phase.Disconnected {
		return RenderDecision{Mode: ModeOffline}
	}
	return RenderDecision{Mode: ModeLoading}
}

// dispatch runs one event through the pipeline and finalizes the boot
// attempt once the machine seals.
func (o *Orchestrator) dispatch(ev pipeline.Event) {
	o.pipe.Dispatch(ev)
	if o.machine.Sealed() {
		o.finalize()
	}
}

// apply is the machine transition entry point for handlers; successful
// transitions are recorded as metrics.
func (o *Orchestrator) apply(cmd phase.Command) (phase.Phase, bool) {
	before := o.machine.Phase()
	p, ok := o.machine.Apply(cmd)
	if ok {
		observability.RecordTransition(string(cmd.Kind), string(before.Kind), string(p.Kind))
	}
	return p, ok
}

// finalize runs exactly once per lifetime: cancel the timeout, stop the
// monitor, compute the one-shot permission signal, and fix the decision.
func (o *Orchestrator) finalize() {
	o.sealOnce.Do(func() {
		o.shutdown()

		final := o.machine.Phase()
		decision := RenderDecision{Mode: ModeStandby}
		if final.Kind == phase.Operational {
			decision = RenderDecision{Mode: ModeActive, Endpoint: final.Endpoint}
		}
		decision.ShowPermissionPrompt = o.shouldRequestPermission(time.Now())

		o.mu.Lock()
		o.decision = decision
		o.mu.Unlock()

		log.Info().
			Str("phase", string(final.Kind)).
			Str("render_mode", string(decision.Mode)).
			Bool("permission_prompt", decision.ShowPermissionPrompt).
			Msg("orchestrator.finalize sealed")
		close(o.done)
	})
}

func (o *Orchestrator) shutdown() {
	if o.timeout != nil {
		o.timeout.Stop()
	}
	o.monitor.Stop()
	close(o.stopCh)
}

// forwardConnectivity maps reachability edges onto commands until the
// machine seals.
func (o *Orchestrator) forwardConnectivity() {
	for {
		select {
		case <-o.stopCh:
			return
		case connected, ok := <-o.monitor.Events():
			if !ok {
				return
			}
			if o.machine.Sealed() {
				return
			}
			o.dispatch(pipeline.Event{Kind: eventConnectivity, Connected: connected})
		}
	}
}

// forwardArrivals feeds consolidator output into the pipeline. The raw
// deeplink dataset is kept aside for the organic-install merge.
func (o *Orchestrator) forwardArrivals() {
	for {
		select {
		case <-o.stopCh:
			return
		case dl := <-o.consolidator.Deeplinks():
			o.mu.Lock()
			o.deeplink = dl
			o.mu.Unlock()
		case merged := <-o.consolidator.Merged():
			observability.RecordConsolidation()
			o.dispatch(pipeline.Event{Kind: eventAttribution, Data: merged})
		}
	}
}

// provisionDeviceID loads the stored device id or generates one.
func (o *Orchestrator) provisionDeviceID() string {
	if v, ok, err := o.st.Get(store.KeyDeviceID); err == nil && ok && v != "" {
		return v
	}
	id := uuid.NewString()
	if err := o.st.Set(store.KeyDeviceID, id); err != nil {
		log.Warn().Err(err).Msg("orchestrator.provisionDeviceID persist")
	}
	return id
}
