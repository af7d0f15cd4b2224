//go:build windows

package maintenance

// defaultCommands returns the built-in command line for each step on Windows.
// prune and optimize go through powershell because they rely on cmdlets or on
// docker CLI output handling; the rest are plain executables.
func defaultCommands(appPath, imagePath string) map[string]stepCommand {
	return map[string]stepCommand{
		StepPrune: {
			Command: "powershell",
			Args:    []string{"-NoProfile", "-Command", "docker system prune -a --volumes --force"},
		},
		StepKill: {
			Command: "taskkill",
			Args:    []string{"/F", "/IM", "docker.exe", "/IM", "Docker Desktop.exe"},
		},
		StepShutdown: {
			Command: "wsl",
			Args:    []string{"--shutdown"},
		},
		StepOptimize: {
			Command: "powershell",
			Args:    []string{"-NoProfile", "-Command", `Optimize-VHD -Path "` + imagePath + `" -Mode Full`},
		},
		StepRestart: {
			Command: "cmd",
			Args:    []string{"/c", "start", "/min", "", appPath},
		},
	}
}

// containerProbeCommand lists container IDs, one per line.
func containerProbeCommand() stepCommand {
	return stepCommand{Command: "docker", Args: []string{"ps", "-a", "-q"}}
}
