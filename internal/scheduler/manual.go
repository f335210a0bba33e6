package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler whose time only moves when Advance is called.
type Manual struct {
	// mu protects now, tasks and seq.
	mu sync.Mutex
	// now is the current fake time.
	now time.Time
	// tasks are the pending calls.
	tasks []*manualTask
	// seq orders tasks due at the same instant by creation.
	seq uint64
}

// manualTask is a call registered on a Manual scheduler.
type manualTask struct {
	owner *Manual
	due   time.Time
	seq   uint64
	fn    func()
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the fake time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// AfterFunc registers fn to run once the fake time reaches now+delay.
func (m *Manual) AfterFunc(delay time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	task := &manualTask{
		owner: m,
		due:   m.now.Add(delay),
		seq:   m.seq,
		fn:    fn,
	}
	m.tasks = append(m.tasks, task)

	return task
}

// Pending returns the number of calls not yet run or stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.tasks)
}

// Advance moves the fake time forward by d, running due calls in order.
// Calls registered while advancing run too when they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	m.mu.Unlock()

	for {
		task := m.popDue(end)
		if task == nil {
			break
		}

		task.fn()
	}

	m.mu.Lock()
	m.now = end
	m.mu.Unlock()
}

// popDue removes and returns the earliest task due not after end, moving the
// clock to its due time.
func (m *Manual) popDue(end time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) == 0 {
		return nil
	}

	sort.Slice(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}

		return m.tasks[i].due.Before(m.tasks[j].due)
	})

	task := m.tasks[0]
	if task.due.After(end) {
		return nil
	}

	m.tasks = m.tasks[1:]
	if task.due.After(m.now) {
		m.now = task.due
	}

	return task
}

// Stop removes the task from its scheduler.
func (t *manualTask) Stop() bool {
	m := t.owner

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, task := range m.tasks {
		if task == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return true
		}
	}

	return false
}
