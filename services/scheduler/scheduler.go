// File: services/scheduler/scheduler.go
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"agendabot/utils"
)

// Job is a unit of deferred work. Errors are logged, never retried; jobs that
// need retry semantics enqueue through the delivery queue instead.
type Job func(ctx context.Context) error

type entry struct {
	runAt time.Time
	name  string
	job   Job
	seq   int64
	index int
}

type jobHeap []*entry

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].runAt.Equal(h[j].runAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].runAt.Before(h[j].runAt)
}
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *jobHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler runs deferred jobs from a min-heap ordered by due time. A single
// polling goroutine pops due entries and runs each inline, so jobs sharing a
// due instant execute in insertion order.
type Scheduler struct {
	mu    sync.Mutex
	heap  jobHeap
	seq   int64
	clock utils.Clock
	poll  time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func New(clock utils.Clock, poll time.Duration) *Scheduler {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Scheduler{
		clock: clock,
		poll:  poll,
		done:  make(chan struct{}),
	}
}

// Start launches the polling loop. Safe to call once.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop()
	})
}

// Stop halts the polling loop and waits for an in-flight job to finish.
// Pending entries are abandoned; persisted jobs are re-armed on next boot.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// ScheduleAt enrolls a job to run at the given instant. A past instant fires
// on the next poll, which is how restored jobs catch up after downtime.
func (s *Scheduler) ScheduleAt(at time.Time, name string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	heap.Push(&s.heap, &entry{runAt: at, name: name, job: job, seq: s.seq})
}

// ScheduleIn enrolls a job to run after the given delay.
func (s *Scheduler) ScheduleIn(d time.Duration, name string, job Job) {
	s.ScheduleAt(s.clock.Now().Add(d), name, job)
}

// ScheduleDaily enrolls a job at the next occurrence of hour:min and re-enrolls
// it for the following day after every run, failures included.
func (s *Scheduler) ScheduleDaily(hour, min int, name string, job Job) {
	at := nextDaily(s.clock.Now(), hour, min)
	s.ScheduleAt(at, name, s.dailyWrap(hour, min, name, job))
}

func (s *Scheduler) dailyWrap(hour, min int, name string, job Job) Job {
	return func(ctx context.Context) error {
		defer func() {
			next := nextDaily(s.clock.Now(), hour, min)
			s.ScheduleAt(next, name, s.dailyWrap(hour, min, name, job))
		}()
		return job(ctx)
	}
}

// nextDaily picks today's hour:min if still ahead, otherwise tomorrow's.
func nextDaily(now time.Time, hour, min int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.runDue()
		}
	}
}

// runDue drains every due entry and runs each inline on the loop goroutine.
func (s *Scheduler) runDue() {
	now := s.clock.Now()
	for {
		s.mu.Lock()
		if s.heap.Len() == 0 || s.heap[0].runAt.After(now) {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.heap).(*entry)
		s.mu.Unlock()

		s.wg.Add(1)
		s.run(e)
	}
}

func (s *Scheduler) run(e *entry) {
	defer s.wg.Done()
	logger := utils.GetLogger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled job panicked",
				zap.String("job", e.name),
				zap.Any("panic", r))
		}
	}()
	if err := e.job(context.Background()); err != nil {
		logger.Error("scheduled job failed",
			zap.String("job", e.name),
			zap.Error(err))
	}
}
