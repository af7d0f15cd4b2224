//go:build !windows

package maintenance

import "path/filepath"

// defaultCommands returns the built-in command line for each step on
// non-Windows hosts. The optimize default punches holes in the backing image
// in place; hosts with a different image format override it in config.
func defaultCommands(appPath, imagePath string) map[string]stepCommand {
	return map[string]stepCommand{
		StepPrune: {
			Command: "docker",
			Args:    []string{"system", "prune", "-a", "--volumes", "--force"},
		},
		StepKill: {
			Command: "pkill",
			Args:    []string{"-f", filepath.Base(appPath)},
		},
		StepShutdown: {
			Command: "systemctl",
			Args:    []string{"stop", "docker.socket", "docker.service"},
		},
		StepOptimize: {
			Command: "fallocate",
			Args:    []string{"--dig-holes", imagePath},
		},
		StepRestart: {
			Command: "sh",
			Args:    []string{"-c", `nohup "` + appPath + `" >/dev/null 2>&1 &`},
		},
	}
}

// containerProbeCommand lists container IDs, one per line.
func containerProbeCommand() stepCommand {
	return stepCommand{Command: "docker", Args: []string{"ps", "-a", "-q"}}
}
