package attribution

import (
	"testing"
	"time"

	"github.com/davren/igniter/internal/store"
)

func waitMerged(t *testing.T, c *Consolidator, within time.Duration) Map {
	t.Helper()
	select {
	case m := <-c.Merged():
		return m
	case <-time.After(within):
		t.Fatalf("no merged broadcast within %v", within)
		return nil
	}
}

func assertNoMerged(t *testing.T, c *Consolidator, within time.Duration) {
	t.Helper()
	select {
	case m := <-c.Merged():
		t.Fatalf("unexpected merged broadcast: %v", m)
	case <-time.After(within):
	}
}

func TestConsolidatorDebounceElapsesWithAttributionAlone(t *testing.T) {
	c := New(store.NewMemory(), 20*time.Millisecond)

	c.SubmitAttribution(Map{"af_status": "Organic"})
	merged := waitMerged(t, c, time.Second)
	if merged["af_status"] != "Organic" {
		t.Fatalf("merged = %v", merged)
	}
}

func TestConsolidatorDeeplinkCancelsDebounce(t *testing.T) {
	c := New(store.NewMemory(), time.Hour)

	c.SubmitAttribution(Map{"af_status": "Non-organic", "campaign": "spring"})
	c.SubmitDeeplink(Map{"deep_link_value": "promo", "campaign": "ignored"})

	merged := waitMerged(t, c, time.Second)
	if merged["deep_link_value"] != "promo" {
		t.Fatalf("deeplink key missing: %v", merged)
	}
	// attribution takes precedence on conflicting keys
	if merged["campaign"] != "spring" {
		t.Fatalf("campaign overwritten: %v", merged)
	}
	// the cancelled timer must not produce a second broadcast
	assertNoMerged(t, c, 50*time.Millisecond)
}

func TestConsolidatorDeeplinkBeforeAttribution(t *testing.T) {
	c := New(store.NewMemory(), time.Hour)

	c.SubmitDeeplink(Map{"deep_link_value": "promo"})
	select {
	case dl := <-c.Deeplinks():
		if dl["deep_link_value"] != "promo" {
			t.Fatalf("deeplink broadcast = %v", dl)
		}
	case <-time.After(time.Second):
		t.Fatalf("deeplink channel never fired")
	}
	assertNoMerged(t, c, 50*time.Millisecond)

	c.SubmitAttribution(Map{"af_status": "Organic"})
	merged := waitMerged(t, c, time.Second)
	if merged["af_status"] != "Organic" || merged["deep_link_value"] != "promo" {
		t.Fatalf("merged = %v", merged)
	}
}

func TestConsolidatorBroadcastsAtMostOnce(t *testing.T) {
	st := store.NewMemory()
	c := New(st, 10*time.Millisecond)

	c.SubmitAttribution(Map{"af_status": "Organic"})
	waitMerged(t, c, time.Second)

	c.SubmitAttribution(Map{"af_status": "Non-organic"})
	c.SubmitDeeplink(Map{"deep_link_value": "late"})
	assertNoMerged(t, c, 50*time.Millisecond)

	if v, ok, _ := st.Get(store.KeyBroadcastDone); !ok || v != "true" {
		t.Fatalf("broadcast flag not persisted: %q ok=%v", v, ok)
	}
}

func TestConsolidatorHonorsPersistedFlagAcrossRestart(t *testing.T) {
	st := store.NewMemory()
	first := New(st, 10*time.Millisecond)
	first.SubmitAttribution(Map{"af_status": "Organic"})
	waitMerged(t, first, time.Second)

	// simulated restart with stale partial data arriving again
	second := New(st, 10*time.Millisecond)
	second.SubmitAttribution(Map{"af_status": "Organic"})
	second.SubmitDeeplink(Map{"deep_link_value": "promo"})
	assertNoMerged(t, second, 50*time.Millisecond)

	select {
	case dl := <-second.Deeplinks():
		t.Fatalf("deeplink broadcast after done flag: %v", dl)
	case <-time.After(50 * time.Millisecond):
	}
}
