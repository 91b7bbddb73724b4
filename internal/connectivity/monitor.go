// Package connectivity owns network reachability observation.
//
// Ownership boundary:
// - periodic reachability probing
// - connect/disconnect edge detection and emission
//
// How the orchestrator reacts to the edges is not this package's
// concern.
package connectivity

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Monitor emits a boolean on every reachability change between Start
// and Stop.
type Monitor interface {
	Start()
	Stop()
	Events() <-chan bool
}

// ProbeFunc reports whether the network is currently reachable.
type ProbeFunc func() bool

// ProbeMonitor observes reachability by dialing a probe address on a
// fixed interval. The first observation counts as a change.
type ProbeMonitor struct {
	interval time.Duration
	probe    ProbeFunc

	events chan bool
	stopCh chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewProbeMonitor builds a monitor that dials addr over TCP.
func NewProbeMonitor(addr string, interval, timeout time.Duration) *ProbeMonitor {
	return NewMonitorWithProbe(func() bool {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, interval)
}

// NewMonitorWithProbe builds a monitor around an arbitrary probe.
func NewMonitorWithProbe(probe ProbeFunc, interval time.Duration) *ProbeMonitor {
	return &ProbeMonitor{
		interval: interval,
		probe:    probe,
		events:   make(chan bool, 4),
		stopCh:   make(chan struct{}),
	}
}

// Events is the reachability-change stream.
func (m *ProbeMonitor) Events() <-chan bool {
	return m.events
}

// Start begins the probe loop. Repeated calls are no-ops.
func (m *ProbeMonitor) Start() {
	m.startOnce.Do(func() {
		go m.loop()
	})
}

// Stop ends emission. Repeated calls are no-ops.
func (m *ProbeMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *ProbeMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var last *bool
	observe := func() {
		connected := m.probe()
		if last != nil && *last == connected {
			return
		}
		last = &connected
		select {
		case m.events <- connected:
			log.Info().Bool("connected", connected).Msg("connectivity.Monitor reachability change")
		default:
			log.Warn().Bool("connected", connected).Msg("connectivity.Monitor event dropped, subscriber busy")
		}
	}

	observe()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			observe()
		}
	}
}
