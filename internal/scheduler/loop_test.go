package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"

	"dockmaint/internal/config"
	"dockmaint/internal/executor"
	"dockmaint/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type signalTask struct {
	ran     chan struct{}
	results []executor.Result
}

func newSignalTask() *signalTask {
	return &signalTask{ran: make(chan struct{}, 4)}
}

func (t *signalTask) RunAll(context.Context) []executor.Result {
	t.ran <- struct{}{}
	return t.results
}

func loopConfig(at string) *config.Config {
	cfg := config.Default()
	cfg.Schedule.At = at
	cfg.Schedule.Timezone = "UTC"
	cfg.Maintenance.ApplicationPath = "/opt/docker-desktop/docker-desktop"
	cfg.Maintenance.ImagePath = "/var/lib/docker-desktop/docker.img"
	return cfg
}

func waitState(t *testing.T, l *Loop, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if l.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", l.State(), want)
}

func TestNextRun(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before window runs same day",
			now:  time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "after window runs next day",
			now:  time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at window runs next day",
			now:  time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
			want: time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := clock.NewMock()
			mock.Set(tc.now)
			l, err := New(loopConfig("02:00:00"), newSignalTask(), logx.Nop(), mock)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := l.NextRun(); !got.Equal(tc.want) {
				t.Errorf("NextRun() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	cfg := loopConfig("25:00:00")
	if _, err := New(cfg, newSignalTask(), logx.Nop(), clock.NewMock()); err == nil {
		t.Fatal("New accepted an out-of-range schedule")
	}
}

func TestRunOnStart(t *testing.T) {
	cfg := loopConfig("02:00:00")
	cfg.Schedule.RunOnStart = true

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	task := newSignalTask()
	l, err := New(cfg, task, logx.Nop(), mock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-task.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("startup run did not happen")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if l.State() != Cancelled {
		t.Errorf("state = %v, want Cancelled", l.State())
	}
	if got := len(l.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestRunFiresAtWindow(t *testing.T) {
	cfg := loopConfig("02:00:00")
	cfg.Schedule.PollInterval = "1s"

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 1, 59, 58, 0, time.UTC))
	task := newSignalTask()
	l, err := New(cfg, task, logx.Nop(), mock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitState(t, l, Sleeping)
	fired := false
	for i := 0; i < 5 && !fired; i++ {
		mock.Add(time.Second)
		select {
		case <-task.ran:
			fired = true
		case <-time.After(100 * time.Millisecond):
		}
	}
	if !fired {
		t.Fatal("task did not fire after the window passed")
	}

	cancel()
	<-done
}

func TestCancelDuringSleepIsPrompt(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	task := newSignalTask()
	l, err := New(loopConfig("02:00:00"), task, logx.Nop(), mock)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitState(t, l, Sleeping)
	start := time.Now()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	if len(task.ran) != 0 {
		t.Error("task ran during a cancelled sleep")
	}
}
