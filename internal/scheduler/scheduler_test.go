package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stopAfter replaces the scheduler's sleep with one that advances a fake
// clock for the first n sleeps and then reports shutdown.
func stopAfter(s *Scheduler, clock *time.Time, n int) {
	calls := 0
	s.now = func() time.Time { return *clock }
	s.sleep = func(ctx context.Context, d time.Duration) bool {
		calls++
		if calls > n {
			return false
		}
		*clock = clock.Add(d)
		return true
	}
}

func TestStartupPassRunsAllJobsInOrder(t *testing.T) {
	s := New()
	clock := time.Date(2026, 8, 26, 12, 2, 0, 0, time.UTC)
	stopAfter(s, &clock, 0)

	var order []string
	for _, id := range []string{"first", "second", "third"} {
		id := id
		s.Add(Job{ID: id, Trigger: Every(5), Run: func(ctx context.Context) error {
			order = append(order, id)
			return nil
		}})
	}

	s.Start(context.Background())

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("startup pass ran %d jobs, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("startup order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestJobFailureDoesNotStopOthers(t *testing.T) {
	s := New()
	clock := time.Date(2026, 8, 26, 12, 2, 0, 0, time.UTC)
	stopAfter(s, &clock, 0)

	var ran []string
	s.Add(Job{ID: "failing", Trigger: Every(5), Run: func(ctx context.Context) error {
		ran = append(ran, "failing")
		return errors.New("query timed out")
	}})
	s.Add(Job{ID: "panicking", Trigger: Every(5), Run: func(ctx context.Context) error {
		ran = append(ran, "panicking")
		panic("label cardinality mismatch")
	}})
	s.Add(Job{ID: "healthy", Trigger: Every(5), Run: func(ctx context.Context) error {
		ran = append(ran, "healthy")
		return nil
	}})

	s.Start(context.Background())

	if len(ran) != 3 {
		t.Fatalf("ran %d jobs, want 3: %v", len(ran), ran)
	}
	if ran[2] != "healthy" {
		t.Errorf("healthy job did not run after failures: %v", ran)
	}
}

func TestTriggerLoopDispatchesDueJobs(t *testing.T) {
	s := New()
	clock := time.Date(2026, 8, 26, 12, 2, 0, 0, time.UTC)
	stopAfter(s, &clock, 1)

	runs := 0
	s.Add(Job{ID: "limits", Trigger: Every(5), Run: func(ctx context.Context) error {
		runs++
		return nil
	}})

	s.Start(context.Background())

	// Once at startup, once at the 12:05 mark.
	if runs != 2 {
		t.Errorf("job ran %d times, want 2", runs)
	}
}

func TestDisabledJobNotRegistered(t *testing.T) {
	s := New()
	s.Add(Job{ID: "disabled", Trigger: nil, Run: func(ctx context.Context) error { return nil }})
	if len(s.Jobs()) != 0 {
		t.Errorf("disabled job was registered")
	}
}

func TestDuplicateJobIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate job ID did not panic")
		}
	}()
	s := New()
	run := func(ctx context.Context) error { return nil }
	s.Add(Job{ID: "dup", Trigger: Every(5), Run: run})
	s.Add(Job{ID: "dup", Trigger: Every(5), Run: run})
}

func TestResolveTrigger(t *testing.T) {
	s := New()
	def := Every(5)

	t.Run("default when no override", func(t *testing.T) {
		if got := s.ResolveTrigger("some_job", def, nil); got != def {
			t.Errorf("got %v, want default", got)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("SCHEDULE_SOME_JOB", "hour=7,minute=30")
		got := s.ResolveTrigger("some_job", def, nil)
		if got == nil || got.String() != "daily at 07:30" {
			t.Errorf("got %v, want daily at 07:30", got)
		}
	})

	t.Run("env disables job", func(t *testing.T) {
		t.Setenv("SCHEDULE_SOME_JOB", "disabled")
		if got := s.ResolveTrigger("some_job", def, nil); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("SCHEDULE_SOME_JOB", "*/10")
		got := s.ResolveTrigger("some_job", def, map[string]string{"some_job": "*/15"})
		if got == nil || got.String() != "every 10m0s" {
			t.Errorf("got %v, want every 10m0s", got)
		}
	})

	t.Run("file override", func(t *testing.T) {
		got := s.ResolveTrigger("some_job", def, map[string]string{"some_job": "10,50"})
		if got == nil || got.String() != "hourly at :10,:50" {
			t.Errorf("got %v, want hourly at :10,:50", got)
		}
	})

	t.Run("malformed falls back to default", func(t *testing.T) {
		if got := s.ResolveTrigger("some_job", def, map[string]string{"some_job": "what"}); got != def {
			t.Errorf("got %v, want default", got)
		}
	})
}
