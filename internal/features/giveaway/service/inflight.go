package service

import (
	"sync"
	"time"
)

// Ticket is held by one completion task between Acquire and Release.
type Ticket struct {
	ID         string
	Ending     int64
	Generation uint64
}

type slot struct {
	ending     int64
	setAt      time.Time
	generation uint64
	finishing  bool
}

// inflight tracks, per giveaway id, the single completion task allowed to
// perform the terminal actions. A task waiting on an ending that no longer
// matches its slot's generation has been superseded and must stop.
type inflight struct {
	mu     sync.Mutex
	slots  map[string]*slot
	next   uint64
	window time.Duration
	now    func() time.Time
}

func newInflight(window time.Duration, now func() time.Time) *inflight {
	return &inflight{
		slots:  make(map[string]*slot),
		window: window,
		now:    now,
	}
}

// Acquire claims the slot for (id, ending). ok is false when the call
// duplicates a task that is already waiting on the same ending, or when the
// slot is past the point of no return.
func (f *inflight) Acquire(id string, ending int64) (t Ticket, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	s, exists := f.slots[id]
	if exists {
		if s.finishing {
			return Ticket{}, false
		}
		if s.ending == ending && now.Sub(s.setAt) < f.window {
			return Ticket{}, false
		}
	}

	f.next++
	f.slots[id] = &slot{ending: ending, setAt: now, generation: f.next}
	return Ticket{ID: id, Ending: ending, Generation: f.next}, true
}

// Begin moves the slot to finishing. It fails when another Acquire has
// replaced the ticket's generation since.
func (f *inflight) Begin(t Ticket) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, exists := f.slots[t.ID]
	if !exists || s.generation != t.Generation || s.finishing {
		return false
	}
	s.finishing = true
	return true
}

// Release drops the slot if it still belongs to t.
func (f *inflight) Release(t Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, exists := f.slots[t.ID]; exists && s.generation == t.Generation {
		delete(f.slots, t.ID)
	}
}

// Len is the number of giveaways with a waiting or finishing task.
func (f *inflight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.slots)
}
