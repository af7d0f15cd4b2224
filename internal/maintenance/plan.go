// Package maintenance defines the fixed five-step daily plan and runs it.
package maintenance

import (
	"dockmaint/internal/config"
	"dockmaint/internal/executor"
)

// Fixed step names, in execution order. The order is significant: later steps
// (image optimization, relaunch) expect earlier ones (process kill, subsystem
// shutdown) to have at least been attempted.
const (
	StepPrune    = "prune"
	StepKill     = "kill"
	StepShutdown = "shutdown"
	StepOptimize = "optimize"
	StepRestart  = "restart"
)

// StepOrder lists the plan in its fixed execution order.
var StepOrder = []string{StepPrune, StepKill, StepShutdown, StepOptimize, StepRestart}

// BuildPlan assembles the five executor specs from config. Defaults are
// platform-specific (see plan_windows.go / plan_other.go); per-step overrides
// from config replace the command line but keep name, order, timeout and the
// elevation marker.
func BuildPlan(cfg *config.Config) []executor.Spec {
	defaults := defaultCommands(cfg.Maintenance.ApplicationPath, cfg.Maintenance.ImagePath)
	timeout := cfg.StepTimeout()

	plan := make([]executor.Spec, 0, len(StepOrder))
	for _, name := range StepOrder {
		cmd := defaults[name]
		if ov, ok := cfg.Maintenance.Steps[name]; ok {
			cmd = stepCommand{Command: ov.Command, Args: append([]string(nil), ov.Args...)}
		}
		plan = append(plan, executor.Spec{
			Name:     name,
			Command:  cmd.Command,
			Args:     cmd.Args,
			Timeout:  timeout,
			Elevated: cfg.Maintenance.Elevated,
		})
	}
	return plan
}

type stepCommand struct {
	Command string
	Args    []string
}
