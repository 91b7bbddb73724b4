// Package store owns local key/value persistence.
//
// Ownership boundary:
// - well-known activation keys
// - sqlite-backed store for daemon runs
// - in-memory store for tests and store-less runs
package store

// Well-known keys the orchestrator persists across boots.
const (
	KeyCachedEndpoint        = "cached_endpoint"
	KeyOverrideEndpoint      = "override_endpoint"
	KeyBootMode              = "boot_mode"
	KeyFirstLaunchDone       = "first_launch_done"
	KeyBroadcastDone         = "attribution_broadcast_done"
	KeyPermissionGranted     = "permission_granted"
	KeyPermissionDenied      = "permission_denied"
	KeyPermissionRequestedAt = "permission_requested_at"
	KeyAttributionSnapshot   = "attribution_snapshot"
	KeyDeviceID              = "device_id"
)

// Boot mode values observed from the resolution backend.
const (
	BootModeActive   = "active"
	BootModeInactive = "inactive"
)

// Store is the narrow persistence contract activation components depend on.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}
