// File: services/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"agendabot/utils"
)

func newTestScheduler() *Scheduler {
	return New(utils.NewClock(time.UTC), 10*time.Millisecond)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPastDueJobFiresExactlyOnce(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	defer s.Stop()

	var fired int32
	s.ScheduleAt(time.Now().Add(-time.Hour), "overdue", func(ctx context.Context) error {
		atomic.AddInt32(&fired, 1)
		return nil
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("overdue job fired %d times, expected 1", n)
	}
}

func TestDueJobsFireInOrder(t *testing.T) {
	s := newTestScheduler()

	var order []string
	done := make(chan struct{})
	base := time.Now().Add(-time.Minute)
	s.ScheduleAt(base.Add(time.Second), "second", func(ctx context.Context) error {
		order = append(order, "second")
		close(done)
		return nil
	})
	s.ScheduleAt(base, "first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})

	// The production drain runs jobs inline, so pop order is execution order.
	s.runDue()
	<-done

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("expected [first second], got %v", order)
	}
}

func TestFailedJobDoesNotStopOthers(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	defer s.Stop()

	var fired int32
	s.ScheduleIn(-time.Second, "failing", func(ctx context.Context) error {
		return errors.New("send failed")
	})
	s.ScheduleIn(-time.Second, "healthy", func(ctx context.Context) error {
		atomic.AddInt32(&fired, 1)
		return nil
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 1 })
}

func TestStopPreventsFurtherRuns(t *testing.T) {
	s := newTestScheduler()
	s.Start()

	var fired int32
	s.Stop()
	s.ScheduleAt(time.Now().Add(-time.Second), "late", func(ctx context.Context) error {
		atomic.AddInt32(&fired, 1)
		return nil
	})

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("job ran after Stop")
	}
}

func TestNextDaily(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	if got := nextDaily(now, 7, 0); !got.Equal(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected today 07:00, got %v", got)
	}

	now = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	if got := nextDaily(now, 7, 0); !got.Equal(time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected tomorrow 07:00 when exactly due, got %v", got)
	}

	now = time.Date(2026, 3, 2, 22, 15, 0, 0, time.UTC)
	if got := nextDaily(now, 7, 0); !got.Equal(time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected tomorrow 07:00, got %v", got)
	}
}

func TestScheduleDailyReenrolls(t *testing.T) {
	s := newTestScheduler()

	var runs int32
	s.ScheduleDaily(7, 0, "summary", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("send failed")
	})

	s.mu.Lock()
	pending := s.heap.Len()
	s.mu.Unlock()
	if pending != 1 {
		t.Fatalf("expected 1 pending entry, got %d", pending)
	}

	// Force the pending entry due and drain; the wrapper must re-enroll for
	// the next day even though the job failed.
	s.mu.Lock()
	s.heap[0].runAt = time.Now().Add(-time.Second)
	s.mu.Unlock()
	s.runDue()

	waitFor(t, func() bool { return atomic.LoadInt32(&runs) == 1 })
	waitFor(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.heap.Len() == 1 && s.heap[0].runAt.After(time.Now())
	})
}
