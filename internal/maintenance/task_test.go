package maintenance

import (
	"context"
	"testing"
	"time"

	"dockmaint/internal/config"
	"dockmaint/internal/executor"
	"dockmaint/pkg/logx"
)

// scriptRunner returns canned results keyed by spec name and records the
// order of invocations.
type scriptRunner struct {
	results map[string]executor.Result
	calls   []string
}

func (r *scriptRunner) Run(_ context.Context, spec executor.Spec) executor.Result {
	r.calls = append(r.calls, spec.Name)
	if res, ok := r.results[spec.Name]; ok {
		res.Name = spec.Name
		return res
	}
	return executor.Result{Name: spec.Name, ExitCode: 0, Duration: time.Millisecond}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Maintenance.ApplicationPath = "/opt/docker-desktop/docker-desktop"
	cfg.Maintenance.ImagePath = "/var/lib/docker-desktop/docker.img"
	return cfg
}

func TestRunAllReturnsEveryStep(t *testing.T) {
	r := &scriptRunner{}
	task := New(r, testConfig(), logx.Nop())
	task.ContainerProbe = false

	results := task.RunAll(context.Background())
	if len(results) != len(StepOrder) {
		t.Fatalf("got %d results, want %d", len(results), len(StepOrder))
	}
	for i, want := range StepOrder {
		if results[i].Name != want {
			t.Errorf("results[%d].Name = %q, want %q", i, results[i].Name, want)
		}
	}
}

func TestRunAllContinuesPastFailures(t *testing.T) {
	r := &scriptRunner{results: map[string]executor.Result{
		StepKill:     {ExitCode: 128, Stderr: "no process found"},
		StepOptimize: {ExitCode: executor.TimedOutExitCode, TimedOut: true},
	}}
	task := New(r, testConfig(), logx.Nop())
	task.ContainerProbe = false

	results := task.RunAll(context.Background())
	if len(results) != len(StepOrder) {
		t.Fatalf("got %d results, want %d", len(results), len(StepOrder))
	}

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}

	// Every step must still have been attempted, in order.
	for i, want := range StepOrder {
		if r.calls[i] != want {
			t.Errorf("calls[%d] = %q, want %q", i, r.calls[i], want)
		}
	}
}

func TestRunAllSpawnFailureDoesNotAbort(t *testing.T) {
	r := &scriptRunner{results: map[string]executor.Result{
		StepPrune: {ExitCode: executor.SpawnFailureExitCode, Stderr: "executable file not found"},
	}}
	task := New(r, testConfig(), logx.Nop())
	task.ContainerProbe = false

	results := task.RunAll(context.Background())
	if got := results[0].Outcome(); got != executor.SpawnFailure {
		t.Fatalf("results[0].Outcome() = %v, want SpawnFailure", got)
	}
	if len(results) != len(StepOrder) {
		t.Fatalf("got %d results, want %d", len(results), len(StepOrder))
	}
}

func TestContainerProbeCountsLines(t *testing.T) {
	r := &scriptRunner{results: map[string]executor.Result{
		"containers-probe": {Stdout: "0a1b2c\n3d4e5f\n\n6a7b8c\n"},
	}}
	task := New(r, testConfig(), logx.Nop())

	n, ok := task.countContainers(context.Background())
	if !ok {
		t.Fatal("countContainers reported failure")
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestBuildPlanAppliesOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Maintenance.Elevated = true
	cfg.Maintenance.Steps = map[string]config.StepOverride{
		StepOptimize: {Command: "qemu-img", Args: []string{"check", cfg.Maintenance.ImagePath}},
	}

	plan := BuildPlan(cfg)
	if len(plan) != len(StepOrder) {
		t.Fatalf("plan has %d steps, want %d", len(plan), len(StepOrder))
	}
	for i, spec := range plan {
		if spec.Name != StepOrder[i] {
			t.Errorf("plan[%d].Name = %q, want %q", i, spec.Name, StepOrder[i])
		}
		if !spec.Elevated {
			t.Errorf("plan[%d].Elevated = false, want true", i)
		}
		if spec.Timeout != cfg.StepTimeout() {
			t.Errorf("plan[%d].Timeout = %v, want %v", i, spec.Timeout, cfg.StepTimeout())
		}
	}

	var opt executor.Spec
	for _, spec := range plan {
		if spec.Name == StepOptimize {
			opt = spec
		}
	}
	if opt.Command != "qemu-img" {
		t.Errorf("optimize command = %q, want qemu-img", opt.Command)
	}
}
