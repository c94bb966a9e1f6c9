// Package monitor polls chain connectivity and height at a fixed interval
// and publishes the result to subscribers.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeroa-labs/lasko-core/internal/chain"
	"github.com/zeroa-labs/lasko-core/internal/log"
	"github.com/zeroa-labs/lasko-core/internal/metrics"
)

// Status is one observation of a coin's network state.
type Status struct {
	Connected bool
	Height    uint64
	CheckedAt time.Time
}

// Monitor runs a fixed-interval poll of the chain tip for one coin.
// The polling loop is the only writer of the published state; any number of
// goroutines may read it or subscribe.
type Monitor struct {
	adapter  chain.Adapter
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex // Guards running/stop/done transitions.
	running bool
	stop    chan struct{}
	done    chan struct{}

	stateMu sync.RWMutex
	last    Status
	subs    map[int]chan Status
	nextSub int
}

// New creates a monitor for the adapter's coin. interval must be positive.
func New(adapter chain.Adapter, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		adapter:  adapter,
		interval: interval,
		logger:   log.Monitor.With().Str("coin", adapter.Coin().Symbol).Logger(),
		subs:     make(map[int]chan Status),
	}
}

// Start begins polling. Safe to call repeatedly; subsequent calls are no-ops
// while the monitor is running.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
	m.logger.Info().Dur("interval", m.interval).Msg("monitor started")
}

// Stop cancels the polling loop and drops all subscriptions. Idempotent; no
// status is delivered after Stop returns, and the last observed status stays
// readable via Last.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done

	m.stateMu.Lock()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.stateMu.Unlock()
	m.logger.Info().Msg("monitor stopped")
}

// Last returns the most recently observed status.
func (m *Monitor) Last() Status {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.last
}

// Subscribe registers for status updates. The returned cancel function
// removes the subscription. Slow subscribers never block the poll loop: the
// channel holds the latest status only.
func (m *Monitor) Subscribe() (<-chan Status, func()) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Status, 1)
	m.subs[id] = ch

	cancel := func() {
		m.stateMu.Lock()
		defer m.stateMu.Unlock()
		if sub, ok := m.subs[id]; ok {
			close(sub)
			delete(m.subs, id)
		}
	}
	return ch, cancel
}

func (m *Monitor) loop(stop, done chan struct{}) {
	defer close(done)

	// Poll once immediately so consumers see a status before the first tick.
	m.poll()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	height, err := m.adapter.TipHeight(ctx)
	status := Status{
		Connected: err == nil && height > 0,
		Height:    height,
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		status.Height = 0
		m.logger.Debug().Err(err).Msg("tip height poll failed")
		metrics.MonitorPolls.WithLabelValues(m.adapter.Coin().Symbol, "error").Inc()
	} else {
		metrics.MonitorPolls.WithLabelValues(m.adapter.Coin().Symbol, "ok").Inc()
	}

	m.stateMu.Lock()
	m.last = status
	for _, ch := range m.subs {
		// Drop the stale value if the subscriber hasn't drained it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
	m.stateMu.Unlock()
}
