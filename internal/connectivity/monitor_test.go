package connectivity

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitEvent(t *testing.T, m Monitor, within time.Duration) bool {
	t.Helper()
	select {
	case v := <-m.Events():
		return v
	case <-time.After(within):
		t.Fatalf("no event within %v", within)
		return false
	}
}

func TestMonitorEmitsInitialObservation(t *testing.T) {
	m := NewMonitorWithProbe(func() bool { return true }, 5*time.Millisecond)
	m.Start()
	defer m.Stop()

	if got := waitEvent(t, m, time.Second); !got {
		t.Fatalf("expected initial connected=true")
	}
}

func TestMonitorEmitsOnlyOnChange(t *testing.T) {
	var connected atomic.Bool
	connected.Store(true)
	m := NewMonitorWithProbe(connected.Load, 5*time.Millisecond)
	m.Start()
	defer m.Stop()

	if !waitEvent(t, m, time.Second) {
		t.Fatalf("expected connected")
	}

	// steady state emits nothing
	select {
	case v := <-m.Events():
		t.Fatalf("unexpected event %v in steady state", v)
	case <-time.After(30 * time.Millisecond):
	}

	connected.Store(false)
	if waitEvent(t, m, time.Second) {
		t.Fatalf("expected disconnect edge")
	}

	connected.Store(true)
	if !waitEvent(t, m, time.Second) {
		t.Fatalf("expected reconnect edge")
	}
}

func TestMonitorStopEndsEmission(t *testing.T) {
	var connected atomic.Bool
	m := NewMonitorWithProbe(connected.Load, 5*time.Millisecond)
	m.Start()
	waitEvent(t, m, time.Second)
	m.Stop()

	connected.Store(true)
	select {
	case v := <-m.Events():
		t.Fatalf("event %v after stop", v)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestMonitorStartStopIdempotent(t *testing.T) {
	m := NewMonitorWithProbe(func() bool { return true }, time.Millisecond)
	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}
