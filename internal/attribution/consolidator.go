// Package attribution owns install-metadata consolidation.
//
// Ownership boundary:
// - attribution and deeplink dataset intake
// - debounce-with-early-exit merge timing
// - at-most-once merged broadcast, persisted across restarts
package attribution

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/davren/igniter/internal/store"
)

// Map is one key/value dataset from an attribution or deeplink source.
// Values are opaque; JSON intake produces strings, numbers, and bools.
type Map map[string]any

// Clone returns a shallow copy of the map.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Consolidator merges two independently-arriving datasets and broadcasts
// the merged result at most once per installation. Attribution arrival
// arms a debounce timer so a slow or absent deeplink source cannot stall
// consolidation; deeplink arrival cancels the timer and merges early.
type Consolidator struct {
	mu sync.Mutex

	st       store.Store
	debounce time.Duration

	attribution Map
	deeplink    Map
	timer       *time.Timer
	done        bool

	mergedCh   chan Map
	deeplinkCh chan Map
}

// New builds a consolidator. The broadcast-done flag is loaded from the
// store so a restart with stale partial data can never re-emit.
func New(st store.Store, debounce time.Duration) *Consolidator {
	c := &Consolidator{
		st:         st,
		debounce:   debounce,
		mergedCh:   make(chan Map, 1),
		deeplinkCh: make(chan Map, 1),
	}
	if v, ok, err := st.Get(store.KeyBroadcastDone); err != nil {
		log.Warn().Err(err).Msg("attribution.Consolidator load broadcast flag")
	} else if ok && v == "true" {
		c.done = true
	}
	return c
}

// Merged is the channel carrying the single consolidated dataset.
func (c *Consolidator) Merged() <-chan Map {
	return c.mergedCh
}

// Deeplinks is the channel carrying the raw deeplink dataset, emitted
// immediately on arrival, independent of consolidation.
func (c *Consolidator) Deeplinks() <-chan Map {
	return c.deeplinkCh
}

// SubmitAttribution stores the attribution dataset and either merges
// immediately (deeplink already present) or arms the debounce timer.
func (c *Consolidator) SubmitAttribution(m Map) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		log.Debug().Msg("attribution.SubmitAttribution ignored, already broadcast")
		return
	}
	if c.attribution != nil {
		log.Debug().Msg("attribution.SubmitAttribution ignored, dataset already present")
		return
	}
	c.attribution = m.Clone()
	if c.deeplink != nil {
		c.consolidateLocked()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.onDebounce)
	log.Info().Dur("debounce", c.debounce).Int("keys", len(m)).
		Msg("attribution.SubmitAttribution armed debounce")
}

// SubmitDeeplink stores the deeplink dataset, broadcasts it on its own
// channel, cancels any armed debounce, and merges early if attribution
// data is already present. Ignored entirely once broadcast is done.
func (c *Consolidator) SubmitDeeplink(m Map) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		log.Debug().Msg("attribution.SubmitDeeplink ignored, already broadcast")
		return
	}
	if c.deeplink != nil {
		log.Debug().Msg("attribution.SubmitDeeplink ignored, dataset already present")
		return
	}
	c.deeplink = m.Clone()
	select {
	case c.deeplinkCh <- m.Clone():
	default:
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.attribution != nil {
		c.consolidateLocked()
	}
}

// onDebounce fires when the deeplink source never arrived in time;
// consolidation proceeds from attribution alone.
func (c *Consolidator) onDebounce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.attribution == nil {
		return
	}
	log.Info().Msg("attribution.Consolidator debounce elapsed")
	c.consolidateLocked()
}

// consolidateLocked merges deeplink keys into attribution keys where the
// attribution dataset lacks them, emits the result, and persists the
// broadcast-done flag. Callers hold c.mu.
func (c *Consolidator) consolidateLocked() {
	merged := c.attribution.Clone()
	for k, v := range c.deeplink {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	c.done = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if err := c.st.Set(store.KeyBroadcastDone, "true"); err != nil {
		log.Error().Err(err).Msg("attribution.Consolidator persist broadcast flag")
	}
	select {
	case c.mergedCh <- merged:
	default:
	}
	log.Info().Int("keys", len(merged)).Msg("attribution.Consolidator broadcast merged dataset")
}
