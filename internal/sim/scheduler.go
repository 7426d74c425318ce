package sim

import (
	"context"
	"time"
)

// Drainer delivers buffered inbound notifications until none remain.
// Implemented by do.Repository.
type Drainer interface {
	PollTillEmpty()
}

// TaskID is the stable handle a registered tick task is addressed by.
type TaskID uint64

type taskEntry struct {
	id TaskID
	fn func()
}

// Scheduler is the authority-side fixed-rate cooperative loop. Each tick it
// first fully drains pending notifications, then runs every registered task
// exactly once in registration order. Everything runs on the goroutine that
// calls Run (or Tick), so tasks need no locking.
//
// Tasks may add or remove tasks at any point. The pass iterates a snapshot of
// the registration order taken after the drain: a task removed mid-pass is
// skipped if it has not run yet, and whether a task added during the drain
// runs in the same tick is unspecified.
type Scheduler struct {
	drainer Drainer
	nextID  TaskID
	tasks   []taskEntry
	live    map[TaskID]func()
}

func NewScheduler(d Drainer) *Scheduler {
	return &Scheduler{drainer: d, live: make(map[TaskID]func())}
}

// Add registers fn to run once per tick and returns its handle.
func (s *Scheduler) Add(fn func()) TaskID {
	s.nextID++
	id := s.nextID
	s.tasks = append(s.tasks, taskEntry{id: id, fn: fn})
	s.live[id] = fn
	return id
}

// Remove deregisters a task. Safe to call from inside a task.
func (s *Scheduler) Remove(id TaskID) {
	if _, ok := s.live[id]; !ok {
		return
	}
	delete(s.live, id)
	for i, e := range s.tasks {
		if e.id == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
}

// Len reports the number of registered tasks.
func (s *Scheduler) Len() int { return len(s.live) }

// Tick runs one drain-then-callbacks iteration.
func (s *Scheduler) Tick() {
	s.drainer.PollTillEmpty()
	snapshot := make([]TaskID, len(s.tasks))
	for i, e := range s.tasks {
		snapshot[i] = e.id
	}
	for _, id := range snapshot {
		if fn, ok := s.live[id]; ok {
			fn()
		}
	}
}

// Run ticks at the fixed rate until ctx is done.
func (s *Scheduler) Run(ctx context.Context, tickRateHz int) error {
	ticker := time.NewTicker(time.Second / time.Duration(tickRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// FrameLoop is the client-side cooperative loop: each frame drains pending
// notifications, then runs its one-shot completion tasks. A completion task
// returns true when its precondition finally holds; it is then removed.
// Completions registered from inside a running completion start on the next
// frame.
type FrameLoop struct {
	drainer Drainer
	pending []func() bool
}

func NewFrameLoop(d Drainer) *FrameLoop {
	return &FrameLoop{drainer: d}
}

// AddCompletion registers a task that retries every frame until it reports
// done.
func (l *FrameLoop) AddCompletion(fn func() bool) {
	l.pending = append(l.pending, fn)
}

// Frame runs one drain-then-completions iteration.
func (l *FrameLoop) Frame() {
	l.drainer.PollTillEmpty()
	running := l.pending
	l.pending = nil
	for _, fn := range running {
		if !fn() {
			l.pending = append(l.pending, fn)
		}
	}
}

// Run frames at the fixed rate until ctx is done.
func (l *FrameLoop) Run(ctx context.Context, frameRateHz int) error {
	ticker := time.NewTicker(time.Second / time.Duration(frameRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Frame()
		}
	}
}
