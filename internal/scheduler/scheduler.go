package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"sfmon_exporter/internal/logger"

	"github.com/phuslu/log"
)

// Job binds one collector function to a trigger.
type Job struct {
	// ID uniquely names the job; also the key for schedule overrides
	// (SCHEDULE_<ID-upper-cased> env var or the override file).
	ID string

	// Trigger drives recurring dispatch after the startup pass.
	Trigger Trigger

	// Run executes one refresh cycle. Errors are logged at this boundary
	// and never propagate further; the previous gauge snapshot stays.
	Run func(ctx context.Context) error
}

// Scheduler dispatches jobs serially on one goroutine.
type Scheduler struct {
	jobs []Job
	log  log.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		log: logger.NewLoggerWithContext("scheduler"),
		now: time.Now,
		sleep: func(ctx context.Context, d time.Duration) bool {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return false
			case <-timer.C:
				return true
			}
		},
	}
}

// Add registers a job. Jobs run in registration order during the startup
// pass. A nil trigger (disabled job) is ignored entirely.
func (s *Scheduler) Add(job Job) {
	if job.Trigger == nil {
		s.log.Info().Str("job", job.ID).Msg("Job disabled, not registered")
		return
	}
	for _, existing := range s.jobs {
		if existing.ID == job.ID {
			panic(fmt.Sprintf("scheduler: duplicate job id %q", job.ID))
		}
	}
	s.jobs = append(s.jobs, job)
	s.log.Debug().Str("job", job.ID).Str("trigger", job.Trigger.String()).Msg("Job registered")
}

// Jobs returns the registered jobs in declaration order.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Start runs every job once synchronously in declaration order, then enters
// the trigger loop until ctx is cancelled. An in-flight job is allowed to
// finish; no new jobs are dispatched after cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Executing all jobs once at startup")
	for i := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, &s.jobs[i])
	}
	s.log.Info().Msg("Initial execution completed, entering trigger loop")

	next := make([]time.Time, len(s.jobs))
	for i := range s.jobs {
		next[i] = s.jobs[i].Trigger.Next(s.now())
	}

	for ctx.Err() == nil {
		// Find the earliest due job. With a table this small a scan beats
		// maintaining a heap.
		earliest := -1
		for i := range next {
			if earliest < 0 || next[i].Before(next[earliest]) {
				earliest = i
			}
		}
		if earliest < 0 {
			return
		}

		if wait := next[earliest].Sub(s.now()); wait > 0 {
			if !s.sleep(ctx, wait) {
				return
			}
		}

		// Dispatch everything due at this instant, in declaration order.
		now := s.now()
		for i := range s.jobs {
			if next[i].After(now) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.runJob(ctx, &s.jobs[i])
			fireTime := next[i]
			next[i] = s.jobs[i].Trigger.Next(s.now())
			if late := s.now().Sub(fireTime); late > time.Minute {
				s.log.Warn().
					Str("job", s.jobs[i].ID).
					Dur("late_by", late).
					Msg("Job ran late; a previous job overran its slot")
			}
		}
	}
}

// runJob is the single failure-isolation boundary: a panicking or failing
// collector is logged and the loop continues with the previous gauge
// snapshot still exported.
func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("job", job.ID).
				Str("panic", fmt.Sprint(r)).
				Msg("Job panicked; previous gauge snapshot retained")
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.ID).
			Msg("Job failed; previous gauge snapshot retained")
		return
	}
	s.log.Debug().
		Str("job", job.ID).
		Dur("took", s.now().Sub(start)).
		Msg("Job completed")
}

// ResolveTrigger applies overrides to a job's default trigger, in priority
// order: SCHEDULE_<ID> environment variable, then the override file, then
// the default. Returns nil when the job is disabled. Malformed expressions
// fall back to the default with a logged warning.
func (s *Scheduler) ResolveTrigger(jobID string, def Trigger, overrides map[string]string) Trigger {
	expr, source := "", ""
	if v := os.Getenv("SCHEDULE_" + strings.ToUpper(jobID)); v != "" {
		expr, source = v, "env"
	} else if v, ok := overrides[jobID]; ok {
		expr, source = v, "override file"
	}
	if expr == "" {
		return def
	}

	trigger, err := ParseSchedule(expr)
	if err == ErrDisabled {
		s.log.Info().Str("job", jobID).Str("source", source).Msg("Job disabled by schedule override")
		return nil
	}
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("job", jobID).
			Str("schedule", expr).
			Msg("Could not parse schedule override, using default")
		return def
	}
	s.log.Info().
		Str("job", jobID).
		Str("trigger", trigger.String()).
		Str("source", source).
		Msg("Using custom schedule")
	return trigger
}
