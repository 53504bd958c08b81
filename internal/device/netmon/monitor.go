// Package netmon tracks whether the device currently has a network path to
// CORE. The trigger pipeline reads Online to pick the online or offline path.
package netmon

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/finn/internal/logging"
)

// Reachability reports the last known network state.
type Reachability interface {
	Online() bool
}

// Static is a fixed Reachability.
type Static bool

func (s Static) Online() bool { return bool(s) }

// Prober performs one reachability check.
type Prober interface {
	Probe(ctx context.Context) error
}

// DialProber probes by opening a TCP connection to Addr.
type DialProber struct {
	Addr string
}

func (p DialProber) Probe(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Monitor probes periodically and remembers the outcome. It starts out
// online so the first trigger is attempted before the first probe finishes.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	online atomic.Bool

	mu        sync.Mutex
	listeners []func(online bool)
}

func NewMonitor(p Prober, interval time.Duration, log logging.Logger) *Monitor {
	timeout := 3 * time.Second
	if interval > 0 && interval < timeout {
		timeout = interval
	}
	m := &Monitor{prober: p, interval: interval, timeout: timeout, log: log}
	m.online.Store(true)
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnChange registers fn to run after every transition. fn runs on the
// monitor goroutine.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Check probes once and records the result.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(ctx)
	cancel()

	now := err == nil
	if prev := m.online.Swap(now); prev != now {
		if err != nil {
			m.log.Info(ctx, "network unreachable", "error", err)
		} else {
			m.log.Info(ctx, "network reachable")
		}
		m.notify(now)
	}
	return now
}

// Run probes immediately and then every interval until ctx is done. A
// non-positive interval probes only once.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)
	if m.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) notify(online bool) {
	m.mu.Lock()
	ls := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range ls {
		fn(online)
	}
}
