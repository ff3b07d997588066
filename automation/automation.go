package automation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrServerStopped is returned when scheduling on a stopped server.
var ErrServerStopped = errors.New("automation server stopped")

// Scheduler runs recurring tasks.
type Scheduler interface {
	// ScheduleEvery runs task every interval until the scheduler stops.
	// Registration is fire-and-forget: there is no way to unschedule a
	// single task.
	ScheduleEvery(name string, task func(), interval time.Duration)
}

// job is a recurring task registered with the server.
type job struct {
	name     string
	task     func()
	interval time.Duration
}

// Server is a set of automation services running recurring tasks for the
// daemon. Tasks scheduled before Start begin running once the server starts.
type Server struct {
	mtx     sync.Mutex
	started bool
	stopped bool
	pending []job

	wg        sync.WaitGroup
	ctx       context.Context
	cancelCtx func()
}

// A compile time check to ensure Server implements the Scheduler interface.
var _ Scheduler = (*Server)(nil)

// NewServer creates a new automation server.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:       ctx,
		cancelCtx: cancel,
	}
	return s
}

// ScheduleEvery registers a recurring task. A single task never runs
// concurrently with itself: if a run takes longer than the interval, the
// missed ticks are dropped.
func (s *Server) ScheduleEvery(name string, task func(),
	interval time.Duration) {

	if interval <= 0 {
		log.Errorf("Not scheduling task %q: invalid interval %v", name,
			interval)
		return
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stopped {
		log.Warnf("Not scheduling task %q: %v", name, ErrServerStopped)
		return
	}

	j := job{name: name, task: task, interval: interval}
	if !s.started {
		s.pending = append(s.pending, j)
		return
	}

	s.launch(j)
}

// launch starts the goroutine driving j. The caller must hold mtx.
func (s *Server) launch(j job) {
	log.Debugf("Running task %q every %s", j.name, j.interval)

	s.wg.Add(1)
	go s.runTask(j)
}

// runTask invokes the task on every tick until the server is stopped.
func (s *Server) runTask(j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		log.Tracef("Time to run task %q", j.name)
		j.task()
	}
}

// Start launches all tasks scheduled so far.
func (s *Server) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stopped {
		return ErrServerStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	for _, j := range s.pending {
		s.launch(j)
	}
	s.pending = nil

	return nil
}

// Stop cancels all tasks and waits for running ones to return.
func (s *Server) Stop() error {
	s.mtx.Lock()
	if s.stopped {
		s.mtx.Unlock()
		return nil
	}
	s.stopped = true
	s.mtx.Unlock()

	s.cancelCtx()
	s.wg.Wait()
	return nil
}
