package maintenance

import (
	"bufio"
	"context"
	"strings"

	"dockmaint/internal/config"
	"dockmaint/internal/executor"
	"dockmaint/pkg/logx"
)

// Task runs the maintenance plan. A run always attempts every step in order;
// a step failing changes the logged severity, never the control flow.
type Task struct {
	runner executor.Runner
	steps  []executor.Spec
	log    logx.Logger

	imagePath string

	// ContainerProbe logs the container count before and after the prune
	// step. It is best-effort: probe failures are debug-logged and ignored.
	ContainerProbe bool
}

// New builds a Task from config. The plan is fixed at construction time; a
// config change takes effect on the next New (the daemon rebuilds the task
// per run).
func New(runner executor.Runner, cfg *config.Config, log logx.Logger) *Task {
	return &Task{
		runner:         runner,
		steps:          BuildPlan(cfg),
		log:            log.With(logx.String("component", "maintenance")),
		imagePath:      cfg.Maintenance.ImagePath,
		ContainerProbe: true,
	}
}

// RunAll executes every step of the plan in order and returns one result per
// step, in plan order. It never returns early: a failed or timed-out step is
// recorded and the next step still runs.
func (t *Task) RunAll(ctx context.Context) []executor.Result {
	t.logSnapshot("before")
	before, beforeOK := t.countContainers(ctx)

	results := make([]executor.Result, 0, len(t.steps))
	for _, spec := range t.steps {
		t.log.Info("step starting",
			logx.String("step", spec.Name),
			logx.String("command", spec.Command),
			logx.Strings("args", spec.Args),
		)
		res := t.runner.Run(ctx, spec)
		t.logResult(res)
		results = append(results, res)

		if spec.Name == StepPrune && beforeOK {
			if after, ok := t.countContainers(ctx); ok {
				t.log.Info("container count after prune",
					logx.Int("before", before),
					logx.Int("after", after),
				)
			}
		}
	}

	t.logSnapshot("after")

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed == 0 {
		t.log.Info("maintenance run completed", logx.Int("steps", len(results)))
	} else {
		t.log.Warn("maintenance run completed with failures",
			logx.Int("steps", len(results)),
			logx.Int("failed", failed),
		)
	}
	return results
}

// logResult records a single step outcome. Severity follows the outcome:
// clean exit is informational, a non-zero exit is a warning (tools like
// taskkill exit non-zero when there is simply nothing to kill), spawn
// failures and timeouts are errors.
func (t *Task) logResult(res executor.Result) {
	fields := []logx.Field{
		logx.String("step", res.Name),
		logx.Int("exit_code", res.ExitCode),
		logx.Duration("elapsed", res.Duration),
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		fields = append(fields, logx.String("stdout", out))
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		fields = append(fields, logx.String("stderr", errOut))
	}

	switch res.Outcome() {
	case executor.OK:
		t.log.Info("step succeeded", fields...)
	case executor.NonZeroExit:
		t.log.Warn("step exited non-zero", fields...)
	case executor.TimedOut:
		t.log.Error("step timed out", fields...)
	default:
		t.log.Error("step failed to start", fields...)
	}
}

// countContainers runs the container probe and counts the ID lines. The probe
// reuses the step runner so it honors the same timeout and capture limits.
func (t *Task) countContainers(ctx context.Context) (int, bool) {
	if !t.ContainerProbe {
		return 0, false
	}
	cmd := containerProbeCommand()
	res := t.runner.Run(ctx, executor.Spec{
		Name:    "containers-probe",
		Command: cmd.Command,
		Args:    cmd.Args,
		Timeout: probeTimeout,
	})
	if res.Failed() {
		t.log.Debug("container probe failed",
			logx.Int("exit_code", res.ExitCode),
			logx.String("stderr", strings.TrimSpace(res.Stderr)),
		)
		return 0, false
	}

	n := 0
	sc := bufio.NewScanner(strings.NewReader(res.Stdout))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, true
}
