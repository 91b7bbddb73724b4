package orchestrator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/attribution"
	"github.com/davren/igniter/internal/observability"
	"github.com/davren/igniter/internal/pipeline"
	"github.com/davren/igniter/internal/store"
)

// runResolution executes the endpoint decision policy and dispatches
// the outcome. Every failure path resolves into a phase; nothing is
// surfaced to the caller.
func (o *Orchestrator) runResolution(merged attribution.Map) {
	endpoint, ok := o.decideEndpoint(merged)
	if !ok {
		o.dispatch(pipeline.Event{Kind: eventExpire})
		return
	}
	o.dispatch(pipeline.Event{Kind: eventActivate, Endpoint: endpoint})
}

// decideEndpoint walks the resolution policy in order; the first match
// wins.
func (o *Orchestrator) decideEndpoint(merged attribution.Map) (string, bool) {
	// 1. nothing to resolve with
	if len(merged) == 0 {
		log.Info().Msg("orchestrator.decideEndpoint no attribution data, using cache")
		return o.cachedEndpoint()
	}

	// 2. previously observed kill switch
	if mode, ok, _ := o.st.Get(store.KeyBootMode); ok && mode == store.BootModeInactive {
		log.Info().Msg("orchestrator.decideEndpoint boot mode inactive, expiring")
		return "", false
	}

	// 3. organic first launch: wait out the grace delay, take a fresh
	// attribution snapshot, and go straight to resolution. A pending
	// override is left untouched for a later boot.
	if o.isFirstLaunch() && isOrganic(merged) {
		merged = o.refreshOrganicSnapshot(merged)
		return o.resolveAndCache(merged)
	}

	// 4. one-shot transient override
	override, ok, err := o.st.Get(store.KeyOverrideEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("orchestrator.decideEndpoint read override")
	}
	if ok && strings.TrimSpace(override) != "" {
		if err := o.st.Delete(store.KeyOverrideEndpoint); err != nil {
			log.Warn().Err(err).Msg("orchestrator.decideEndpoint clear override")
		}
		log.Info().Msg("orchestrator.decideEndpoint using transient override endpoint")
		return override, true
	}

	// 5. network resolution with cached fallback
	return o.resolveAndCache(merged)
}

// resolveAndCache performs the single resolution attempt; success
// overwrites the cached endpoint and marks the boot state, failure
// falls back to the cache.
func (o *Orchestrator) resolveAndCache(merged attribution.Map) (string, bool) {
	start := time.Now()
	endpoint, err := o.provider.ResolveEndpoint(o.ctx, merged)
	observability.RecordResolution(err == nil, time.Since(start))
	if err != nil {
		log.Warn().Err(err).Msg("orchestrator.resolveAndCache resolution failed, falling back to cache")
		return o.cachedEndpoint()
	}

	if err := o.st.Set(store.KeyCachedEndpoint, endpoint); err != nil {
		log.Error().Err(err).Msg("orchestrator.resolveAndCache cache endpoint")
	}
	if err := o.st.Set(store.KeyBootMode, store.BootModeActive); err != nil {
		log.Error().Err(err).Msg("orchestrator.resolveAndCache persist boot mode")
	}
	if err := o.st.Set(store.KeyFirstLaunchDone, "true"); err != nil {
		log.Error().Err(err).Msg("orchestrator.resolveAndCache persist first-launch flag")
	}
	return endpoint, true
}

// refreshOrganicSnapshot waits the grace delay, fetches a fresh
// attribution snapshot, merges deeplink keys the snapshot lacks, and
// persists the result. On any failure the original dataset stands.
func (o *Orchestrator) refreshOrganicSnapshot(merged attribution.Map) attribution.Map {
	select {
	case <-time.After(o.cfg.OrganicGraceDelay):
	case <-o.stopCh:
		return merged
	}

	snapshot, err := o.provider.Attribution(o.ctx, o.deviceID)
	if err != nil || len(snapshot) == 0 {
		log.Warn().Err(err).Msg("orchestrator.refreshOrganicSnapshot fetch failed, keeping dataset")
		return merged
	}

	o.mu.Lock()
	deeplink := o.deeplink
	o.mu.Unlock()
	fresh := snapshot.Clone()
	for k, v := range deeplink {
		if _, exists := fresh[k]; !exists {
			fresh[k] = v
		}
	}

	if raw, err := json.Marshal(fresh); err == nil {
		if err := o.st.Set(store.KeyAttributionSnapshot, string(raw)); err != nil {
			log.Warn().Err(err).Msg("orchestrator.refreshOrganicSnapshot persist")
		}
	}
	log.Info().Int("keys", len(fresh)).Msg("orchestrator.refreshOrganicSnapshot refreshed dataset")
	return fresh
}

// cachedEndpoint falls back to the last successful resolution.
func (o *Orchestrator) cachedEndpoint() (string, bool) {
	cached, ok, err := o.st.Get(store.KeyCachedEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("orchestrator.cachedEndpoint read")
		return "", false
	}
	if !ok || strings.TrimSpace(cached) == "" {
		return "", false
	}
	return cached, true
}

func (o *Orchestrator) isFirstLaunch() bool {
	v, ok, _ := o.st.Get(store.KeyFirstLaunchDone)
	return !(ok && v == "true")
}

// isOrganic reports whether the dataset marks the install as organic:
// an explicit organic status, or no campaign at all.
func isOrganic(m attribution.Map) bool {
	if status, ok := m["af_status"].(string); ok {
		return strings.EqualFold(status, "organic")
	}
	campaign, ok := m["campaign"].(string)
	return !ok || strings.TrimSpace(campaign) == ""
}
