package orchestrator

import (
	"errors"
	"strings"
	"testing"

	"github.com/davren/igniter/internal/attribution"
	"github.com/davren/igniter/internal/store"
	"github.com/davren/igniter/internal/testutil/testlog"
)

func newDecisionFixture(t *testing.T, st store.Store, provider *fakeProvider) *Orchestrator {
	t.Helper()
	testlog.Start(t)
	return New(testConfig(), st, &fakeGate{allowed: true}, provider, newFakeMonitor())
}

func TestDecideEndpointEmptyDatasetUsesCache(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyCachedEndpoint, "https://cached.example")
	provider := &fakeProvider{endpoint: "https://fresh.example"}
	o := newDecisionFixture(t, st, provider)

	endpoint, ok := o.decideEndpoint(nil)
	if !ok || endpoint != "https://cached.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if provider.resolveCalls.Load() != 0 {
		t.Fatalf("empty dataset must not resolve")
	}
}

func TestDecideEndpointEmptyDatasetNoCacheExpires(t *testing.T) {
	o := newDecisionFixture(t, store.NewMemory(), &fakeProvider{})

	if _, ok := o.decideEndpoint(attribution.Map{}); ok {
		t.Fatalf("expected expiry with no data and no cache")
	}
}

func TestDecideEndpointInactiveBootModeBeatsCacheAndOverride(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyBootMode, store.BootModeInactive)
	_ = st.Set(store.KeyCachedEndpoint, "https://cached.example")
	_ = st.Set(store.KeyOverrideEndpoint, "https://override.example")
	o := newDecisionFixture(t, st, &fakeProvider{endpoint: "https://fresh.example"})

	if _, ok := o.decideEndpoint(attribution.Map{"campaign": "spring"}); ok {
		t.Fatalf("inactive boot mode must expire")
	}
	// the override must survive untouched when the kill switch wins
	if v, ok, _ := st.Get(store.KeyOverrideEndpoint); !ok || v != "https://override.example" {
		t.Fatalf("override consumed despite inactive boot mode: %q", v)
	}
}

func TestDecideEndpointOverrideBeatsResolution(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyFirstLaunchDone, "true")
	_ = st.Set(store.KeyOverrideEndpoint, "https://override.example")
	provider := &fakeProvider{endpoint: "https://fresh.example"}
	o := newDecisionFixture(t, st, provider)

	endpoint, ok := o.decideEndpoint(attribution.Map{"campaign": "spring"})
	if !ok || endpoint != "https://override.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if provider.resolveCalls.Load() != 0 {
		t.Fatalf("override must skip resolution")
	}
	if _, ok, _ := st.Get(store.KeyOverrideEndpoint); ok {
		t.Fatalf("override not consumed")
	}
}

func TestDecideEndpointOrganicFirstLaunchIgnoresOverride(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyOverrideEndpoint, "https://override.example")
	provider := &fakeProvider{
		endpoint: "https://resolved.example",
		snapshot: attribution.Map{"af_status": "Organic"},
	}
	o := newDecisionFixture(t, st, provider)

	endpoint, ok := o.decideEndpoint(attribution.Map{"af_status": "Organic"})
	if !ok || endpoint != "https://resolved.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if provider.resolveCalls.Load() != 1 {
		t.Fatalf("resolve calls = %d, want 1", provider.resolveCalls.Load())
	}
	// the override survives an organic first launch for a later boot
	if v, ok, _ := st.Get(store.KeyOverrideEndpoint); !ok || v != "https://override.example" {
		t.Fatalf("override consumed on organic first launch: %q", v)
	}
	if v, _, _ := st.Get(store.KeyCachedEndpoint); v != "https://resolved.example" {
		t.Fatalf("cached endpoint = %q", v)
	}
	if v, _, _ := st.Get(store.KeyBootMode); v != store.BootModeActive {
		t.Fatalf("boot mode = %q", v)
	}
	if v, _, _ := st.Get(store.KeyFirstLaunchDone); v != "true" {
		t.Fatalf("first-launch flag = %q", v)
	}
}

// faultyStore fails reads of one key while delegating everything else.
type faultyStore struct {
	store.Store
	failKey string
}

func (f *faultyStore) Get(key string) (string, bool, error) {
	if key == f.failKey {
		return "", false, errors.New("read failure")
	}
	return f.Store.Get(key)
}

func TestDecideEndpointOverrideReadFailureFallsThroughToResolution(t *testing.T) {
	mem := store.NewMemory()
	_ = mem.Set(store.KeyFirstLaunchDone, "true")
	st := &faultyStore{Store: mem, failKey: store.KeyOverrideEndpoint}
	provider := &fakeProvider{endpoint: "https://resolved.example"}
	o := newDecisionFixture(t, st, provider)

	endpoint, ok := o.decideEndpoint(attribution.Map{"campaign": "spring"})
	if !ok || endpoint != "https://resolved.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if provider.resolveCalls.Load() != 1 {
		t.Fatalf("resolve calls = %d, want 1", provider.resolveCalls.Load())
	}
}

func TestDecideEndpointSuccessPersistsState(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyFirstLaunchDone, "true")
	o := newDecisionFixture(t, st, &fakeProvider{endpoint: "https://fresh.example"})

	endpoint, ok := o.decideEndpoint(attribution.Map{"campaign": "spring"})
	if !ok || endpoint != "https://fresh.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if v, _, _ := st.Get(store.KeyCachedEndpoint); v != "https://fresh.example" {
		t.Fatalf("cached endpoint = %q", v)
	}
	if v, _, _ := st.Get(store.KeyBootMode); v != store.BootModeActive {
		t.Fatalf("boot mode = %q", v)
	}
}

func TestDecideEndpointOrganicFirstLaunchRefreshesSnapshot(t *testing.T) {
	st := store.NewMemory()
	provider := &fakeProvider{
		endpoint: "https://fresh.example",
		snapshot: attribution.Map{"af_status": "Organic", "media_source": "none"},
	}
	o := newDecisionFixture(t, st, provider)
	o.mu.Lock()
	o.deeplink = attribution.Map{"deep_link_value": "promo", "media_source": "link"}
	o.mu.Unlock()

	if _, ok := o.decideEndpoint(attribution.Map{"af_status": "organic"}); !ok {
		t.Fatalf("expected activation")
	}
	if provider.fetchCalls.Load() != 1 {
		t.Fatalf("snapshot fetches = %d", provider.fetchCalls.Load())
	}
	// snapshot persisted with deeplink-only keys merged in; snapshot keys win
	raw, ok, _ := st.Get(store.KeyAttributionSnapshot)
	if !ok || raw == "" {
		t.Fatalf("snapshot not persisted")
	}
	if want := `"deep_link_value":"promo"`; !strings.Contains(raw, want) {
		t.Fatalf("snapshot %q missing %q", raw, want)
	}
	if want := `"media_source":"none"`; !strings.Contains(raw, want) {
		t.Fatalf("snapshot %q lost precedence: want %q", raw, want)
	}
}

func TestDecideEndpointOrganicSnapshotFailureKeepsDataset(t *testing.T) {
	st := store.NewMemory()
	provider := &fakeProvider{
		endpoint:    "https://fresh.example",
		snapshotErr: errors.New("network down"),
	}
	o := newDecisionFixture(t, st, provider)

	endpoint, ok := o.decideEndpoint(attribution.Map{"af_status": "organic"})
	if !ok || endpoint != "https://fresh.example" {
		t.Fatalf("decideEndpoint = %q, %v", endpoint, ok)
	}
	if _, ok, _ := st.Get(store.KeyAttributionSnapshot); ok {
		t.Fatalf("snapshot persisted despite fetch failure")
	}
}

func TestIsOrganic(t *testing.T) {
	cases := []struct {
		name string
		m    attribution.Map
		want bool
	}{
		{"explicit organic", attribution.Map{"af_status": "Organic"}, true},
		{"explicit non-organic", attribution.Map{"af_status": "Non-organic", "campaign": ""}, false},
		{"no campaign", attribution.Map{"install_time": "now"}, true},
		{"blank campaign", attribution.Map{"campaign": "  "}, true},
		{"campaign set", attribution.Map{"campaign": "spring"}, false},
	}
	for _, tc := range cases {
		if got := isOrganic(tc.m); got != tc.want {
			t.Errorf("%s: isOrganic = %v, want %v", tc.name, got, tc.want)
		}
	}
}
