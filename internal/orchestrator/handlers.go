package orchestrator

import (
	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/phase"
	"github.com/davren/igniter/internal/pipeline"
)

// Event kinds flowing through the pipeline.
const (
	eventBoot         = "boot"
	eventGateVerdict  = "gate_verdict"
	eventAttribution  = "attribution_ready"
	eventActivate     = "activate"
	eventExpire       = "expire"
	eventConnectivity = "connectivity"
	eventTimeout      = "timeout"
)

// registerHandlers installs the decision chain. Registration order is
// execution order and must stay deterministic.
func (o *Orchestrator) registerHandlers() {
	o.pipe.Register("launch", o.handleLaunch)
	o.pipe.Register("gate_start", o.handleGateStart)
	o.pipe.Register("gate_verdict", o.handleGateVerdict)
	o.pipe.Register("attribution", o.handleAttribution)
	o.pipe.Register("activate", o.handleActivate)
	o.pipe.Register("expire", o.handleExpire)
	o.pipe.Register("connectivity", o.handleConnectivity)
	o.pipe.Register("timeout", o.handleTimeout)
}

// handleLaunch applies the idle -> launching transition on boot.
func (o *Orchestrator) handleLaunch(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventBoot || current.Kind != phase.Idle {
		return phase.Phase{}, false
	}
	return o.apply(phase.Launch())
}

// handleGateStart publishes validating and begins the one-shot gate
// check. The verdict arrives as a separate dispatch.
func (o *Orchestrator) handleGateStart(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventBoot || current.Kind != phase.Launching {
		return phase.Phase{}, false
	}
	go o.runGateCheck()
	return phase.Phase{Kind: phase.Validating}, true
}

// handleGateVerdict maps the gate outcome onto validate-or-expire.
// Denial and failure route identically: fail closed.
func (o *Orchestrator) handleGateVerdict(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventGateVerdict || current.Terminal() {
		return phase.Phase{}, false
	}
	if ev.Allowed {
		return o.apply(phase.Validate())
	}
	return o.apply(phase.Expire())
}

// handleAttribution starts the resolution flow once the consolidated
// dataset is available. The flow's outcome arrives as activate/expire.
func (o *Orchestrator) handleAttribution(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventAttribution || current.Terminal() || current.Kind == phase.Disconnected {
		return phase.Phase{}, false
	}
	go o.runResolution(ev.Data)
	return phase.Phase{}, false
}

// handleActivate applies the transition into operational.
func (o *Orchestrator) handleActivate(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventActivate {
		return phase.Phase{}, false
	}
	return o.apply(phase.Activate(ev.Endpoint))
}

// handleExpire applies the transition into suspended.
func (o *Orchestrator) handleExpire(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventExpire {
		return phase.Phase{}, false
	}
	return o.apply(phase.Expire())
}

// handleConnectivity maps reachability edges onto disconnect/reconnect.
// Reconnect suspends rather than re-attempting resolution; a disconnect
// is fatal to the boot attempt.
func (o *Orchestrator) handleConnectivity(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventConnectivity || current.Terminal() {
		return phase.Phase{}, false
	}
	if !ev.Connected {
		if current.Kind == phase.Disconnected {
			return phase.Phase{}, false
		}
		return o.apply(phase.Disconnect())
	}
	if current.Kind == phase.Disconnected {
		return o.apply(phase.Reconnect())
	}
	return phase.Phase{}, false
}

// handleTimeout expires the boot attempt when the global timeout fires
// before sealing.
func (o *Orchestrator) handleTimeout(ev pipeline.Event, current phase.Phase, _ pipeline.EmitFunc) (phase.Phase, bool) {
	if ev.Kind != eventTimeout || current.Terminal() {
		return phase.Phase{}, false
	}
	log.Warn().Str("phase", string(current.Kind)).Msg("orchestrator global timeout elapsed")
	return o.apply(phase.Expire())
}

// runGateCheck performs the single gate validation and dispatches the
// verdict. An error is a denial.
func (o *Orchestrator) runGateCheck() {
	allowed, err := o.gate.Validate(o.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("orchestrator gate check failed, treating as denied")
		allowed = false
	}
	o.dispatch(pipeline.Event{Kind: eventGateVerdict, Allowed: allowed})
}
