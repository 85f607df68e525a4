package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/pkg/config"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Breaker states as reported by Status.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// gauge values for the breaker state metric
func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// IsShortCircuit reports whether err was returned without running the call because the
// breaker was open or its half-open probe budget was used up.
func IsShortCircuit(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Listener is a consumer the Manager can pause and resume.
type Listener interface {
	Topic() string
	Pause()
	Resume()
	Paused() bool
	Running() bool
}

// Gate runs a call behind the named breaker.
type Gate interface {
	Execute(name string, fn func() error) error
}

type ListenerStatus struct {
	IsRunning bool     `json:"isRunning"`
	IsPaused  bool     `json:"isPaused"`
	Topics    []string `json:"topics"`
}

type BreakerStatus struct {
	Name                    string                    `json:"name"`
	State                   string                    `json:"state"`
	FailureRate             float64                   `json:"failureRate"`
	NumberOfBufferedCalls   uint32                    `json:"numberOfBufferedCalls"`
	NumberOfFailedCalls     uint32                    `json:"numberOfFailedCalls"`
	NumberOfSuccessfulCalls uint32                    `json:"numberOfSuccessfulCalls"`
	Listeners               map[string]ListenerStatus `json:"listeners"`
}

// Manager owns one circuit breaker per event stream. While any breaker is OPEN, or after a
// manual PauseAll, every registered listener is paused. Listeners resume once no breaker is
// OPEN, so the HALF_OPEN probe calls can flow.
type Manager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	names    []string
	interval time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu        sync.Mutex
	states    map[string]gobreaker.State
	listeners map[string][]Listener
	manual    bool
	paused    bool
}

var _ Gate = (*Manager)(nil)

// NewManager creates a closed breaker for each name.
func NewManager(cfg config.BreakerConfig, names []string, m *metrics.Metrics) *Manager {
	mgr := &Manager{
		breakers:  make(map[string]*gobreaker.CircuitBreaker, len(names)),
		interval:  cfg.HealthCheckInterval,
		metrics:   m,
		log:       logger.Named("circuit-breaker"),
		states:    make(map[string]gobreaker.State, len(names)),
		listeners: map[string][]Listener{},
	}
	if mgr.interval <= 0 {
		mgr.interval = 5 * time.Second
	}

	minimum := cfg.MinimumCalls
	threshold := cfg.FailureRateThreshold
	for _, name := range names {
		if _, dup := mgr.breakers[name]; dup {
			continue
		}
		mgr.names = append(mgr.names, name)
		mgr.states[name] = gobreaker.StateClosed
		mgr.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.HalfOpenMaxCalls,
			Interval:    cfg.Window,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.Requests >= minimum && failureRate(c) >= threshold
			},
			IsSuccessful:  countsAsSuccess,
			OnStateChange: mgr.onStateChange,
		})
		m.SetBreakerState(name, StateClosed, 0)
	}
	sort.Strings(mgr.names)
	return mgr
}

// countsAsSuccess keeps skipped events and shutdown cancellations out of the failure rate.
func countsAsSuccess(err error) bool {
	return err == nil || IsInvalid(err) || errors.Is(err, context.Canceled)
}

func failureRate(c gobreaker.Counts) float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) * 100 / float64(c.Requests)
}

// Register attaches a listener to the named breaker. A listener registered while consumption
// is paused starts paused.
func (m *Manager) Register(name string, l Listener) {
	m.mu.Lock()
	m.listeners[name] = append(m.listeners[name], l)
	paused := m.paused
	m.mu.Unlock()
	if paused {
		l.Pause()
	}
}

// Execute runs fn behind the named breaker.
func (m *Manager) Execute(name string, fn func() error) error {
	cb, ok := m.breakers[name]
	if !ok {
		return fmt.Errorf("unknown circuit breaker %q", name)
	}
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// onStateChange runs with the breaker's lock held, so it must not call back into the breaker.
func (m *Manager) onStateChange(name string, from, to gobreaker.State) {
	m.mu.Lock()
	m.states[name] = to
	m.mu.Unlock()

	m.log.Warn("circuit breaker state changed",
		zap.String("breaker", name),
		zap.String("from", stateName(from)),
		zap.String("to", stateName(to)),
	)
	m.metrics.SetBreakerState(name, stateName(to), stateValue(to))
	m.reconcile()
}

// reconcile pauses or resumes every listener when the desired state changes.
func (m *Manager) reconcile() {
	m.mu.Lock()
	var open []string
	for name, s := range m.states {
		if s == gobreaker.StateOpen {
			open = append(open, name)
		}
	}
	pause := m.manual || len(open) > 0
	changed := pause != m.paused
	m.paused = pause
	var all []Listener
	if changed {
		for _, ls := range m.listeners {
			all = append(all, ls...)
		}
	}
	manual := m.manual
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range all {
		if pause {
			l.Pause()
		} else {
			l.Resume()
		}
	}
	m.metrics.SetListenersPaused(pause)
	if pause {
		sort.Strings(open)
		m.log.Warn("paused all listeners", zap.Strings("openBreakers", open), zap.Bool("manual", manual))
	} else {
		m.log.Info("resumed all listeners")
	}
}

// PauseAll pauses every listener until ResumeAll.
func (m *Manager) PauseAll() {
	m.mu.Lock()
	m.manual = true
	m.mu.Unlock()
	m.reconcile()
}

// ResumeAll clears a manual pause. Listeners stay paused while a breaker is OPEN; the result
// reports whether consumption resumed.
func (m *Manager) ResumeAll() bool {
	m.mu.Lock()
	m.manual = false
	m.mu.Unlock()
	m.reconcile()

	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.paused
}

// Paused reports whether listeners are currently held paused.
func (m *Manager) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Healthy reports whether no breaker is OPEN.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.states {
		if s == gobreaker.StateOpen {
			return false
		}
	}
	return true
}

// CheckBreakers reads every breaker's state, which moves OPEN breakers past their timeout to
// HALF_OPEN, and then reconciles the listeners.
func (m *Manager) CheckBreakers() {
	for _, name := range m.names {
		m.breakers[name].State()
	}
	m.reconcile()
}

// Run checks the breakers every health interval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.CheckBreakers()
		}
	}
}

// Status reports every breaker with its counts and listeners, ordered by name.
func (m *Manager) Status() []BreakerStatus {
	out := make([]BreakerStatus, 0, len(m.names))
	for _, name := range m.names {
		cb := m.breakers[name]
		state := cb.State()
		counts := cb.Counts()

		m.mu.Lock()
		ls := append([]Listener(nil), m.listeners[name]...)
		m.mu.Unlock()

		listeners := make(map[string]ListenerStatus, len(ls))
		for i, l := range ls {
			id := name
			if i > 0 {
				id = fmt.Sprintf("%s-%d", name, i)
			}
			listeners[id] = ListenerStatus{IsRunning: l.Running(), IsPaused: l.Paused(), Topics: []string{l.Topic()}}
		}

		out = append(out, BreakerStatus{
			Name:                    name,
			State:                   stateName(state),
			FailureRate:             failureRate(counts),
			NumberOfBufferedCalls:   counts.Requests,
			NumberOfFailedCalls:     counts.TotalFailures,
			NumberOfSuccessfulCalls: counts.TotalSuccesses,
			Listeners:               listeners,
		})
	}
	return out
}
