// Package orchestrator owns the activation boot attempt.
//
// Ownership boundary:
// - bootstrap sequencing and the single global timeout
// - endpoint resolution policy with cached fallback
// - connectivity-aware suspension
// - one-shot permission prompt signal and render decision
//
// The orchestrator never surfaces a collaborator error; every failure
// resolves into one of the defined phases.
package orchestrator
