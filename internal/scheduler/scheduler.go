// Package scheduler fires a job at fixed local times every day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gnzdotmx/viralshorts/internal/utils"
)

// Job is one pipeline run. It must return when ctx is done.
type Job func(ctx context.Context) error

type clock struct {
	hour, minute int
}

// Scheduler runs a Job at each configured time of day. Jobs run one at a
// time; slots that pass while a job is running are skipped.
type Scheduler struct {
	times   []clock
	timeout time.Duration
	job     Job

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New parses the "HH:MM" times and returns a scheduler whose runs are
// bounded by timeout.
func New(times []string, timeout time.Duration, job Job) (*Scheduler, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("run timeout must be positive")
	}
	if job == nil {
		return nil, fmt.Errorf("job cannot be nil")
	}

	s := &Scheduler{timeout: timeout, job: job, now: time.Now, after: time.After}
	for _, t := range times {
		h, m, err := utils.ParseClockTime(t)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule time %q: %w", t, err)
		}
		s.times = append(s.times, clock{hour: h, minute: m})
	}
	sort.Slice(s.times, func(i, j int) bool {
		if s.times[i].hour != s.times[j].hour {
			return s.times[i].hour < s.times[j].hour
		}
		return s.times[i].minute < s.times[j].minute
	})
	return s, nil
}

// NextRun returns the first scheduled time strictly after t, in t's location.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	for day := 0; day <= 1; day++ {
		for _, c := range s.times {
			candidate := time.Date(t.Year(), t.Month(), t.Day()+day, c.hour, c.minute, 0, 0, t.Location())
			if candidate.After(t) {
				return candidate
			}
		}
	}
	// Unreachable with at least one time; tomorrow's first slot always qualifies.
	c := s.times[0]
	return time.Date(t.Year(), t.Month(), t.Day()+1, c.hour, c.minute, 0, 0, t.Location())
}

// RunOnce runs the job under the run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := s.now()
	err := s.job(ctx)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("run abandoned after %s: %w", s.timeout, context.DeadlineExceeded)
	}
	if err != nil {
		return err
	}
	utils.LogVerbose("Run finished in %s", s.now().Sub(started).Round(time.Second))
	return nil
}

// Run waits for each scheduled time and runs the job, until ctx is done.
// With runNow the job also runs once immediately. Job failures are logged
// and do not stop the schedule.
func (s *Scheduler) Run(ctx context.Context, runNow bool) error {
	if runNow {
		s.fire(ctx)
	}

	for {
		now := s.now()
		next := s.NextRun(now)
		utils.LogInfo("Next run at %s", next.Format("2006-01-02 15:04"))

		select {
		case <-ctx.Done():
			utils.LogInfo("Scheduler stopped")
			return nil
		case <-s.after(next.Sub(now)):
		}
		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	utils.LogInfo("Starting scheduled run")
	if err := s.RunOnce(ctx); err != nil {
		utils.LogError("Scheduled run failed: %v", err)
		return
	}
	utils.LogSuccess("Scheduled run completed")
}
