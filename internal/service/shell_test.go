package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"dockmaint/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func blockingRun(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestShellLifecycle(t *testing.T) {
	sh := NewShell(blockingRun, 2*time.Second, logx.Nop())
	if got := sh.State(); got != Stopped {
		t.Fatalf("initial state = %v, want Stopped", got)
	}

	if err := sh.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := sh.State(); got != Running {
		t.Fatalf("state after Start = %v, want Running", got)
	}

	if err := sh.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sh.State(); got != Stopped {
		t.Fatalf("state after Stop = %v, want Stopped", got)
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	sh := NewShell(blockingRun, 2*time.Second, logx.Nop())
	if err := sh.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sh.Stop()

	if err := sh.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if got := sh.State(); got != Running {
		t.Errorf("state = %v, want Running", got)
	}
}

func TestStopWhileStoppedIsNoOp(t *testing.T) {
	sh := NewShell(blockingRun, 2*time.Second, logx.Nop())
	if err := sh.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop on stopped shell = %v, want ErrNotRunning", err)
	}
}

func TestStopTimeout(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	sh := NewShell(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		<-release
		return ctx.Err()
	}, 100*time.Millisecond, logx.Nop())

	if err := sh.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	if err := sh.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop = %v, want ErrStopTimeout", err)
	}
	close(release)
	<-sh.Done()
}

func TestRunErrorIsRetained(t *testing.T) {
	wantErr := errors.New("body failed")
	sh := NewShell(func(context.Context) error { return wantErr }, 2*time.Second, logx.Nop())

	if err := sh.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-sh.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run body did not exit")
	}
	if got := sh.Err(); !errors.Is(got, wantErr) {
		t.Fatalf("Err() = %v, want %v", got, wantErr)
	}
	if got := sh.State(); got != Stopped {
		t.Errorf("state = %v, want Stopped", got)
	}
}

func TestRestartAfterStop(t *testing.T) {
	sh := NewShell(blockingRun, 2*time.Second, logx.Nop())
	for i := 0; i < 2; i++ {
		if err := sh.Start(context.Background()); err != nil {
			t.Fatalf("Start #%d: %v", i+1, err)
		}
		if err := sh.Stop(); err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
	}
}
