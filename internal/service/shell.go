// Package service wraps the daemon body in an OS-service shell: a small
// lifecycle state machine plus platform integration (systemd or the Windows
// service control manager) and a controller for install/remove operations.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dockmaint/pkg/logx"
)

// RunFunc is the daemon body. It must block until ctx is cancelled and
// return promptly afterwards.
type RunFunc func(ctx context.Context) error

// State is the lifecycle phase of the shell.
type State int32

const (
	Stopped State = iota
	Running
	StopPending
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case StopPending:
		return "stop-pending"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
	ErrStopTimeout    = errors.New("service did not stop in time")
)

// Shell drives one RunFunc through Stopped -> Running -> StopPending ->
// Stopped. Redundant transitions (starting a running shell, stopping a
// stopped one) are warnings and no-ops, so racing control requests cannot
// wedge the lifecycle.
type Shell struct {
	run         RunFunc
	stopTimeout time.Duration
	log         logx.Logger

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

func NewShell(run RunFunc, stopTimeout time.Duration, log logx.Logger) *Shell {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &Shell{
		run:         run,
		stopTimeout: stopTimeout,
		log:         log.With(logx.String("component", "service")),
	}
}

func (s *Shell) State() State { return State(s.state.Load()) }

// Done is closed when the current run has fully exited. Valid after Start.
func (s *Shell) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the error the run exited with, once Done is closed.
func (s *Shell) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Start launches the run body in its own goroutine. Starting an already
// running shell is a no-op.
func (s *Shell) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		s.log.Warn("start requested but service is not stopped",
			logx.String("state", s.State().String()))
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.runErr = nil
	s.mu.Unlock()

	s.log.Info("service starting")
	go func() {
		err := s.run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("service run exited", logx.Err(err))
		}
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		s.state.Store(int32(Stopped))
		close(done)
	}()
	return nil
}

// Stop cancels the run and waits for it, bounded by the stop timeout.
// Stopping a shell that is not running is a no-op. A run that outlives the
// timeout is reported but not waited on further.
func (s *Shell) Stop() error {
	if !s.state.CompareAndSwap(int32(Running), int32(StopPending)) {
		s.log.Warn("stop requested but service is not running",
			logx.String("state", s.State().String()))
		return ErrNotRunning
	}

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.log.Info("service stopping", logx.Duration("timeout", s.stopTimeout))
	cancel()

	select {
	case <-done:
		s.log.Info("service stopped")
		return nil
	case <-time.After(s.stopTimeout):
		s.log.Error("shutdown did not complete in time",
			logx.Duration("timeout", s.stopTimeout))
		s.state.Store(int32(Stopped))
		return ErrStopTimeout
	}
}
