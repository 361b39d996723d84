package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_SupersedesPendingTask(t *testing.T) {
	s := NewScheduler(20 * time.Millisecond)
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule(func() { first.Add(1) })
	s.Schedule(func() { second.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatalf("expected superseded task to be cancelled")
	}
	if second.Load() != 1 {
		t.Fatalf("expected last task to run once, ran %d times", second.Load())
	}
}

func TestScheduler_FlushRunsImmediately(t *testing.T) {
	s := NewScheduler(time.Hour)
	defer s.Stop()

	var ran atomic.Int32
	s.Schedule(func() { ran.Add(1) })
	s.Flush()
	if ran.Load() != 1 {
		t.Fatalf("expected flush to run the pending task")
	}
	// A second flush with nothing pending is a no-op.
	s.Flush()
	if ran.Load() != 1 {
		t.Fatalf("expected no re-run, got %d", ran.Load())
	}
}

func TestScheduler_StopCancels(t *testing.T) {
	s := NewScheduler(10 * time.Millisecond)

	var ran atomic.Int32
	s.Schedule(func() { ran.Add(1) })
	s.Stop()

	time.Sleep(40 * time.Millisecond)
	if ran.Load() != 0 {
		t.Fatalf("expected stopped task not to run")
	}
}
