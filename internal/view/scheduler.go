package view

import (
	"sort"
	"sync"
	"time"
)

// Task is a pending deferred effect
type Task interface {
	// Stop cancels the task. It reports false if the task already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler runs deferred effects
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// TimerScheduler is backed by time.AfterFunc
var TimerScheduler Scheduler = timerScheduler{}

// ManualScheduler only runs tasks when Advance moves its clock forward
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	owner *ManualScheduler
	at    time.Duration
	seq   int
	f     func()
	done  bool
}

// NewManualScheduler creates a ManualScheduler at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{owner: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves the clock by d, running due tasks in deadline order.
// Callbacks run without the scheduler lock held.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		next.done = true
		m.now = next.at
		m.mu.Unlock()
		next.f()
		m.mu.Lock()
	}
	m.now = target
	m.compact()
	m.mu.Unlock()
}

// Pending returns how many tasks have neither run nor been stopped
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.pending {
		if !t.done {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) nextDue(target time.Duration) *manualTask {
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at != m.pending[j].at {
			return m.pending[i].at < m.pending[j].at
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	for _, t := range m.pending {
		if t.done {
			continue
		}
		if t.at <= target {
			return t
		}
		return nil
	}
	return nil
}

func (m *ManualScheduler) compact() {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.done {
			live = append(live, t)
		}
	}
	m.pending = live
}
