package orchestrator

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/store"
)

// shouldRequestPermission computes the one-shot prompt signal at seal
// time: never after a grant or denial, never within the cooldown window
// of a prior request. A true signal records the request timestamp.
func (o *Orchestrator) shouldRequestPermission(now time.Time) bool {
	if v, ok, _ := o.st.Get(store.KeyPermissionGranted); ok && v == "true" {
		return false
	}
	if v, ok, _ := o.st.Get(store.KeyPermissionDenied); ok && v == "true" {
		return false
	}
	if raw, ok, _ := o.st.Get(store.KeyPermissionRequestedAt); ok && raw != "" {
		last, err := time.Parse(time.RFC3339, raw)
		if err == nil && now.Sub(last) < o.cfg.PermissionCooldown {
			return false
		}
	}
	if err := o.st.Set(store.KeyPermissionRequestedAt, now.Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("orchestrator.shouldRequestPermission persist timestamp")
	}
	return true
}
