// Package phase owns the activation state model.
//
// Ownership boundary:
// - phase and command enumerations
// - transition legality table
// - single-flight machine with seal semantics and transition log
//
// The package never performs IO; gate checks and endpoint resolution
// live with the orchestrator.
package phase
