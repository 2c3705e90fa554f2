package application

import (
	"context"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const DefaultPollInterval = 2 * time.Second

type TickDecision int

const (
	TickContinue TickDecision = iota
	TickStop
)

type Tick struct {
	SessionID domain.SessionID
	// Elapsed is measured from the session's persisted creation time, so a
	// recovered task keeps its original deadline.
	Elapsed time.Duration
	Attempt int
}

// TickFunc handles one poll. Returning TickStop removes the task only after
// the handler has finished, so any finalization it did is visible first.
type TickFunc func(ctx context.Context, tick Tick) TickDecision

type SchedulerOptions struct {
	Interval time.Duration
	Logger   *log.Logger
	Observer Observer
}

type pollTask struct {
	id        domain.SessionID
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	// prev is a stopped task for the same id that may still be inside its
	// handler; the new task waits for it before its first tick, even when
	// it is stopped itself while waiting.
	prev *pollTask
}

// schedulerState is the set of active tasks plus whether the keepalive is
// held. Both change together under mu.
type schedulerState struct {
	mu            sync.Mutex
	tasks         map[domain.SessionID]*pollTask
	retiring      map[domain.SessionID]*pollTask
	keepaliveHeld bool
}

// PollScheduler runs at most one polling task per session id. Ticks within
// a task are strictly sequential.
type PollScheduler struct {
	tick      TickFunc
	keepalive ports.Keepalive
	clock     ports.Clock
	interval  time.Duration
	logger    *log.Logger
	observer  Observer

	state *schedulerState
	wg    sync.WaitGroup
}

func NewPollScheduler(tick TickFunc, keepalive ports.Keepalive, clock ports.Clock, opts SchedulerOptions) *PollScheduler {
	if tick == nil {
		panic("application: NewPollScheduler requires a tick handler")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	return &PollScheduler{
		tick:      tick,
		keepalive: keepalive,
		clock:     clock,
		interval:  opts.Interval,
		logger:    opts.Logger,
		observer:  observerOrNop(opts.Observer),
		state: &schedulerState{
			tasks:    make(map[domain.SessionID]*pollTask),
			retiring: make(map[domain.SessionID]*pollTask),
		},
	}
}

// Start begins polling id and fires the first tick immediately. since is the
// origin for Tick.Elapsed; the zero time means now. Start reports false when
// a task for id is already running.
func (s *PollScheduler) Start(id domain.SessionID, since time.Time) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.state.tasks[id]; ok {
		return false
	}
	if since.IsZero() {
		since = s.clock.Now()
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &pollTask{
		id:        id,
		startedAt: since,
		cancel:    cancel,
		done:      make(chan struct{}),
		prev:      s.state.retiring[id],
	}
	s.state.tasks[id] = task
	if !s.state.keepaliveHeld {
		s.state.keepaliveHeld = true
		if s.keepalive != nil {
			s.keepalive.Acquire()
		}
	}

	s.wg.Add(1)
	go s.run(ctx, task)

	s.observer.TaskStarted(id)
	return true
}

// Stop cancels the task for id. It is safe to call from inside a tick
// handler and for ids that are not running.
func (s *PollScheduler) Stop(id domain.SessionID) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	task, ok := s.state.tasks[id]
	if !ok {
		return
	}
	s.retireLocked(task)
}

func (s *PollScheduler) StopAll() {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for _, task := range s.state.tasks {
		s.retireLocked(task)
	}
}

func (s *PollScheduler) IsActive(id domain.SessionID) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	_, ok := s.state.tasks[id]
	return ok
}

func (s *PollScheduler) Active() []domain.SessionID {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	ids := make([]domain.SessionID, 0, len(s.state.tasks))
	for id := range s.state.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Wait blocks until every task goroutine, including stopped ones still
// inside their handler, has returned.
func (s *PollScheduler) Wait() {
	s.wg.Wait()
}

// stopTask retires task only if it is still the registered task for its id.
func (s *PollScheduler) stopTask(task *pollTask) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.tasks[task.id] == task {
		s.retireLocked(task)
	}
}

func (s *PollScheduler) retireLocked(task *pollTask) {
	task.cancel()
	delete(s.state.tasks, task.id)
	s.state.retiring[task.id] = task
	s.observer.TaskStopped(task.id, s.clock.Now().Sub(task.startedAt))

	if len(s.state.tasks) == 0 && s.state.keepaliveHeld {
		s.state.keepaliveHeld = false
		if s.keepalive != nil {
			s.keepalive.Release()
		}
	}
}

func (s *PollScheduler) run(ctx context.Context, task *pollTask) {
	defer s.wg.Done()
	defer s.finish(task)

	// done closes only after prev's has, so a chain of restarts never lets
	// two handlers for one id overlap.
	if task.prev != nil {
		<-task.prev.done
		if ctx.Err() != nil {
			return
		}
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if s.fire(ctx, task, attempt) == TickStop {
			s.stopTask(task)
			return
		}

		timer.Reset(s.interval)
	}
}

func (s *PollScheduler) fire(ctx context.Context, task *pollTask, attempt int) (decision TickDecision) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Printf("scheduler: tick handler panicked for session %s: %v", task.id, recovered)
			decision = TickContinue
		}
	}()

	return s.tick(ctx, Tick{
		SessionID: task.id,
		Elapsed:   s.clock.Now().Sub(task.startedAt),
		Attempt:   attempt,
	})
}

func (s *PollScheduler) finish(task *pollTask) {
	close(task.done)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.retiring[task.id] == task {
		delete(s.state.retiring, task.id)
	}
	task.prev = nil
}
