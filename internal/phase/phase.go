package phase

import "time"

// Kind names one activation phase.
type Kind string

const (
	Idle         Kind = "idle"
	Launching    Kind = "launching"
	Validating   Kind = "validating"
	Verified     Kind = "verified"
	Operational  Kind = "operational"
	Suspended    Kind = "suspended"
	Disconnected Kind = "disconnected"
)

// Phase is one activation state. Endpoint is set only for operational.
type Phase struct {
	Kind     Kind   `json:"kind"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Terminal reports whether the phase seals the machine.
func (p Phase) Terminal() bool {
	return p.Kind == Operational || p.Kind == Suspended
}

// CommandKind names one activation command.
type CommandKind string

const (
	CommandLaunch     CommandKind = "launch"
	CommandValidate   CommandKind = "validate"
	CommandActivate   CommandKind = "activate"
	CommandDisconnect CommandKind = "disconnect"
	CommandReconnect  CommandKind = "reconnect"
	CommandExpire     CommandKind = "expire"
)

// Command is one tagged activation request. Endpoint is set only for activate.
type Command struct {
	Kind     CommandKind
	Endpoint string
}

// Launch requests the idle -> launching transition.
func Launch() Command { return Command{Kind: CommandLaunch} }

// Validate requests the launching -> verified transition after a gate allow.
func Validate() Command { return Command{Kind: CommandValidate} }

// Activate requests the transition into operational with the given endpoint.
func Activate(endpoint string) Command {
	return Command{Kind: CommandActivate, Endpoint: endpoint}
}

// Disconnect requests the transition into disconnected.
func Disconnect() Command { return Command{Kind: CommandDisconnect} }

// Reconnect requests the disconnected -> suspended transition.
func Reconnect() Command { return Command{Kind: CommandReconnect} }

// Expire requests the transition into suspended.
func Expire() Command { return Command{Kind: CommandExpire} }

// TransitionRecord is one applied transition kept for diagnostics.
type TransitionRecord struct {
	From    Phase       `json:"from"`
	To      Phase       `json:"to"`
	Command CommandKind `json:"command"`
	At      time.Time   `json:"at"`
}

// next computes the legal successor phase for one command, or rejects it.
func next(current Phase, cmd Command) (Phase, bool) {
	switch cmd.Kind {
	case CommandLaunch:
		if current.Kind == Idle {
			return Phase{Kind: Launching}, true
		}
	case CommandValidate:
		if current.Kind == Launching {
			return Phase{Kind: Verified}, true
		}
	case CommandActivate:
		if current.Kind == Launching || current.Kind == Verified {
			return Phase{Kind: Operational, Endpoint: cmd.Endpoint}, true
		}
	case CommandDisconnect:
		if !current.Terminal() {
			return Phase{Kind: Disconnected}, true
		}
	case CommandReconnect:
		if current.Kind == Disconnected {
			return Phase{Kind: Suspended}, true
		}
	case CommandExpire:
		if !current.Terminal() {
			return Phase{Kind: Suspended}, true
		}
	}
	return Phase{}, false
}
