package orchestrator

import (
	"testing"
	"time"

	"github.com/davren/igniter/internal/store"
	"github.com/davren/igniter/internal/testutil/testlog"
)

func newPermissionFixture(t *testing.T, st store.Store) *Orchestrator {
	t.Helper()
	testlog.Start(t)
	return New(testConfig(), st, &fakeGate{allowed: true}, &fakeProvider{}, newFakeMonitor())
}

func TestPermissionPromptFirstTime(t *testing.T) {
	st := store.NewMemory()
	o := newPermissionFixture(t, st)
	now := time.Now()

	if !o.shouldRequestPermission(now) {
		t.Fatalf("first evaluation must prompt")
	}
	raw, ok, _ := st.Get(store.KeyPermissionRequestedAt)
	if !ok {
		t.Fatalf("request timestamp not persisted")
	}
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		t.Fatalf("bad timestamp %q: %v", raw, err)
	}
}

func TestPermissionPromptSuppressedAfterGrant(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyPermissionGranted, "true")
	o := newPermissionFixture(t, st)

	if o.shouldRequestPermission(time.Now()) {
		t.Fatalf("must not prompt after grant")
	}
}

func TestPermissionPromptSuppressedAfterDenial(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyPermissionDenied, "true")
	o := newPermissionFixture(t, st)

	if o.shouldRequestPermission(time.Now()) {
		t.Fatalf("must not prompt after denial")
	}
}

func TestPermissionPromptCooldown(t *testing.T) {
	st := store.NewMemory()
	o := newPermissionFixture(t, st)
	now := time.Now()

	if !o.shouldRequestPermission(now) {
		t.Fatalf("first evaluation must prompt")
	}
	if o.shouldRequestPermission(now.Add(time.Hour)) {
		t.Fatalf("prompt inside cooldown window")
	}
	if !o.shouldRequestPermission(now.Add(o.cfg.PermissionCooldown + time.Minute)) {
		t.Fatalf("prompt expected after cooldown elapsed")
	}
}

func TestPermissionPromptUnparsableTimestampPrompts(t *testing.T) {
	st := store.NewMemory()
	_ = st.Set(store.KeyPermissionRequestedAt, "not-a-time")
	o := newPermissionFixture(t, st)

	if !o.shouldRequestPermission(time.Now()) {
		t.Fatalf("corrupt timestamp must not suppress the prompt")
	}
}
