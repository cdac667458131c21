// Package memory implements a process-wide heap-pressure monitor that
// drives periodic and reactive cleanup of registered callbacks and
// weak/expirable resources.
package memory

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/meow-stack/stageflow/internal/stageerr"
)

// State is the heap-pressure state derived from the used/max heap fraction.
type State int

const (
	StateNormal State = iota
	StateWarning
	StateCritical
	StateEmergency
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateEmergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// Thresholds configures the fractional boundaries between states.
type Thresholds struct {
	Warning   float64
	Critical  float64
	Emergency float64
}

// DefaultThresholds matches the system's documented defaults.
var DefaultThresholds = Thresholds{Warning: 0.75, Critical: 0.85, Emergency: 0.95}

func (t Thresholds) stateFor(u float64) State {
	switch {
	case u >= t.Emergency:
		return StateEmergency
	case u >= t.Critical:
		return StateCritical
	case u >= t.Warning:
		return StateWarning
	default:
		return StateNormal
	}
}

// Config controls a Manager's intervals and thresholds.
type Config struct {
	Thresholds            Thresholds
	MonitoringInterval    time.Duration
	CleanupInterval       time.Duration
	MinCleanupGap         time.Duration // minimum time between reactive cleanups
	GCSleepDelay          time.Duration
	MaxHeapBytes          uint64 // 0 = use runtime/debug.SetMemoryLimit's configured value, falling back to reported Sys
	Logger                *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MonitoringInterval <= 0 {
		c.MonitoringInterval = 5 * time.Second
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 60 * time.Second
	}
	if c.MinCleanupGap <= 0 {
		c.MinCleanupGap = 60 * time.Second
	}
	if c.GCSleepDelay <= 0 {
		c.GCSleepDelay = 2 * time.Second
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = DefaultThresholds
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Manager owns the registered cleanup tasks and resources, and runs the
// background monitor/cleanup loops. Construct with New and release with
// Close.
type Manager struct {
	cfg Config

	mu          sync.Mutex
	tasks       []CleanupTask
	taskNames   map[string]bool
	weakEntries []weakEntry
	weakNames   map[string]bool
	expirables  expirableQueue

	state          State
	lastCleanup    time.Time
	lastCleanupMu  sync.RWMutex

	metrics *Metrics

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	running   bool
}

// New builds and starts a Manager with the given configuration.
func New(cfg Config, metrics *Metrics) *Manager {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	m := &Manager{
		cfg:        cfg,
		taskNames:  make(map[string]bool),
		weakNames:  make(map[string]bool),
		expirables: expirableQueue{},
		state:      StateNormal,
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		running:    true,
	}
	heap.Init(&m.expirables)

	m.wg.Add(2)
	go m.monitorLoop()
	go m.cleanupLoop()
	return m
}

// RegisterCleanupTask adds a named cleanup callback. Names must be
// non-blank and unique among registered cleanup tasks.
func (m *Manager) RegisterCleanupTask(task CleanupTask) error {
	if task.Name() == "" {
		return stageerr.InputInvalid("memory: cleanup task name must not be blank")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taskNames[task.Name()] {
		return stageerr.InputInvalidf("memory: cleanup task %q already registered", task.Name())
	}
	m.taskNames[task.Name()] = true
	m.tasks = append(m.tasks, task)
	return nil
}

// RegisterExpirable adds a resource closed once its expiration passes. A
// past expiration is rejected outright rather than closed immediately, so
// callers notice the mistake.
func (m *Manager) RegisterExpirable(r ExpirableResource) error {
	if r.Name == "" {
		return stageerr.InputInvalid("memory: expirable resource name must not be blank")
	}
	if !r.ExpiresAt.After(time.Now()) {
		return stageerr.InputInvalidf("memory: expirable resource %q has a past expiration", r.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	heap.Push(&m.expirables, r)
	return nil
}

// RegisterWeak tracks resource without holding a strong reference to it,
// so the caller's own lifecycle decides when it is collected. A cleanup
// pass drops the entry once the referent has been collected and leaves a
// live referent alone; the manager never calls Close on it.
func RegisterWeak[T io.Closer](m *Manager, name string, resource *T) error {
	if name == "" {
		return stageerr.InputInvalid("memory: weak resource name must not be blank")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.weakNames[name] {
		return stageerr.InputInvalidf("memory: weak resource %q already registered", name)
	}
	m.weakNames[name] = true
	m.weakEntries = append(m.weakEntries, registerWeak(name, resource))
	return nil
}

// State returns the manager's current heap-pressure state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) monitorLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.MonitoringInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.performCleanup(false)
		}
	}
}

func (m *Manager) tick() {
	u := m.heapFraction()
	next := m.cfg.Thresholds.stateFor(u)

	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	m.metrics.SetHeapPercentage(u)

	if prev != next {
		m.cfg.Logger.Info("memory state transition", "from", prev.String(), "to", next.String(), "heap_fraction", u)
	}

	if next >= StateCritical && m.cleanupGapElapsed() {
		m.performCleanup(next >= StateEmergency)
	}
}

func (m *Manager) cleanupGapElapsed() bool {
	m.lastCleanupMu.RLock()
	defer m.lastCleanupMu.RUnlock()
	return time.Since(m.lastCleanup) >= m.cfg.MinCleanupGap
}

func (m *Manager) heapFraction() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	max := m.cfg.MaxHeapBytes
	if max == 0 {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			max = uint64(limit)
		}
	}
	if max == 0 {
		max = stats.Sys
	}
	if max == 0 {
		return 0
	}
	return float64(stats.HeapAlloc) / float64(max)
}

// performCleanup runs the documented five-step cleanup sequence. A panic
// or error from one CleanupTask never prevents the others from running.
func (m *Manager) performCleanup(aggressive bool) {
	start := time.Now()
	var freed int64

	m.mu.Lock()
	for m.expirables.Len() > 0 && m.expirables[0].ExpiresAt.Before(start) {
		item := heap.Pop(&m.expirables).(ExpirableResource)
		if err := item.Resource.Close(); err != nil {
			m.cfg.Logger.Warn("memory: expirable resource close failed", "name", item.Name, "error", err)
		}
		freed++
	}

	alive := m.weakEntries[:0]
	for _, e := range m.weakEntries {
		if res, ok := e.check(); ok {
			alive = append(alive, e)
			_ = res
		} else {
			delete(m.weakNames, e.name)
			freed++
		}
	}
	m.weakEntries = alive

	tasks := make([]CleanupTask, len(m.tasks))
	copy(tasks, m.tasks)
	m.mu.Unlock()

	for _, task := range tasks {
		m.runTaskSafely(task, aggressive)
	}

	if aggressive {
		debug.FreeOSMemory()
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			select {
			case <-time.After(m.cfg.GCSleepDelay):
				m.cfg.Logger.Info("memory: post-GC heap usage", "heap_fraction", m.heapFraction())
			case <-m.stopCh:
			}
		}()
	}

	elapsed := time.Since(start)
	m.lastCleanupMu.Lock()
	m.lastCleanup = start
	m.lastCleanupMu.Unlock()

	m.metrics.ObserveCleanup(elapsed, freed)
	m.cfg.Logger.Debug("memory: cleanup complete", "aggressive", aggressive, "freed", freed, "elapsed", elapsed)
}

// runTaskSafely invokes a single CleanupTask, converting a panic into a
// logged error so one misbehaving task cannot abort the cleanup pass.
func (m *Manager) runTaskSafely(task CleanupTask, aggressive bool) {
	defer func() {
		if r := recover(); r != nil {
			m.cfg.Logger.Error("memory: cleanup task panicked", "task", task.Name(), "panic", fmt.Sprint(r))
		}
	}()
	if err := task.Cleanup(aggressive); err != nil {
		m.cfg.Logger.Warn("memory: cleanup task failed", "task", task.Name(), "error", err)
	}
}

// Close stops the background loops within a 10-second graceful window,
// runs one final non-aggressive cleanup, and is idempotent.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()

		close(m.stopCh)

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			err = stageerr.New(stageerr.CodeResourceFatal, "memory: background loops did not stop within the graceful window")
		case <-ctx.Done():
			err = ctx.Err()
		}

		m.performCleanup(false)
	})
	return err
}
