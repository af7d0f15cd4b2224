// Package scheduler drives the daily maintenance loop: sleep until the
// configured time of day, run the task, compute the next occurrence, repeat.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"

	"dockmaint/internal/config"
	"dockmaint/internal/executor"
	"dockmaint/pkg/logx"
)

// State is the externally observable phase of the loop.
type State int32

const (
	Idle State = iota
	Sleeping
	Executing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sleeping:
		return "sleeping"
	case Executing:
		return "executing"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Task is the unit of work the loop triggers once per day.
type Task interface {
	RunAll(ctx context.Context) []executor.Result
}

// RunRecord is one completed maintenance run kept in the in-memory history.
type RunRecord struct {
	Started  time.Time
	Finished time.Time
	Results  []executor.Result
}

// Failed counts the steps of the run that did not exit cleanly.
func (r RunRecord) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

const historySize = 16

// Loop owns the schedule. The wait is chunked into short polls so
// cancellation is observed within one poll interval even on platforms where
// the timer itself cannot be interrupted. A run in progress is never
// cancelled mid-step: cancellation takes effect at the next sleep.
type Loop struct {
	clock      clock.Clock
	sched      cron.Schedule
	loc        *time.Location
	poll       time.Duration
	runOnStart bool
	task       Task
	log        logx.Logger

	state atomic.Int32

	mu      sync.Mutex
	history []RunRecord
}

// New builds the loop from config. The schedule is fixed for the lifetime of
// the loop; a changed schedule in config requires a restart.
func New(cfg *config.Config, task Task, log logx.Logger, clk clock.Clock) (*Loop, error) {
	tod, err := cfg.TimeOfDay()
	if err != nil {
		return nil, err
	}
	spec := fmt.Sprintf("%d %d %d * * *", tod.Second, tod.Minute, tod.Hour)
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("build schedule from %q: %w", cfg.Schedule.At, err)
	}

	return &Loop{
		clock:      clk,
		sched:      sched,
		loc:        cfg.Location(),
		poll:       cfg.PollInterval(),
		runOnStart: cfg.Schedule.RunOnStart,
		task:       task,
		log:        log.With(logx.String("component", "scheduler")),
	}, nil
}

// State reports the current phase of the loop.
func (l *Loop) State() State { return State(l.state.Load()) }

// NextRun returns the next scheduled occurrence after now.
func (l *Loop) NextRun() time.Time {
	return l.sched.Next(l.clock.Now().In(l.loc))
}

// History returns a copy of the retained run records, oldest first.
func (l *Loop) History() []RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RunRecord(nil), l.history...)
}

// Run blocks until ctx is cancelled. Each iteration computes the next
// occurrence from the current clock, so a run that itself takes hours cannot
// drift the schedule or trigger a zero-length sleep.
func (l *Loop) Run(ctx context.Context) error {
	if l.runOnStart {
		l.log.Info("running maintenance on startup")
		l.execute(ctx)
	}

	for {
		next := l.NextRun()
		l.setState(Sleeping)
		l.log.Info("sleeping until next maintenance window",
			logx.Time("next_run", next),
			logx.Duration("in", next.Sub(l.clock.Now())),
		)

		if !l.sleepUntil(ctx, next) {
			l.setState(Cancelled)
			l.log.Info("scheduler cancelled")
			return ctx.Err()
		}

		l.log.Info("maintenance window reached")
		l.execute(ctx)
		l.setState(Idle)

		if ctx.Err() != nil {
			l.setState(Cancelled)
			l.log.Info("scheduler cancelled")
			return ctx.Err()
		}
	}
}

// execute runs the task to completion. The run uses a context detached from
// cancellation: once started, all five steps get their chance to run.
func (l *Loop) execute(ctx context.Context) {
	l.setState(Executing)
	started := l.clock.Now()
	results := l.task.RunAll(context.WithoutCancel(ctx))
	l.record(RunRecord{Started: started, Finished: l.clock.Now(), Results: results})
}

// sleepUntil waits for target in chunks of at most the poll interval. It
// returns false if ctx was cancelled first.
func (l *Loop) sleepUntil(ctx context.Context, target time.Time) bool {
	for {
		remaining := target.Sub(l.clock.Now())
		if remaining <= 0 {
			return true
		}
		if remaining > l.poll {
			remaining = l.poll
		}
		t := l.clock.Timer(remaining)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

func (l *Loop) record(r RunRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, r)
	if len(l.history) > historySize {
		l.history = l.history[len(l.history)-historySize:]
	}
}
