package service

import (
	"context"

	"dockmaint/pkg/logx"
)

// Controller registers and drives the daemon with the host's service
// manager: systemd units on Linux, the service control manager on Windows.
type Controller interface {
	Install(ctx context.Context) error
	Uninstall(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Status returns the manager's view of the unit (e.g. "active",
	// "inactive", "running", "stopped").
	Status(ctx context.Context) (string, error)
}

// ControlConfig describes the unit to register.
type ControlConfig struct {
	Name        string
	Description string
	// ExecPath is the daemon binary; ConfigPath is passed to it via --config.
	ExecPath   string
	ConfigPath string
}

// NewController returns the controller for this platform. Platforms without
// a supported service manager return an error.
func NewController(cfg ControlConfig, log logx.Logger) (Controller, error) {
	return newController(cfg, log.With(logx.String("component", "control")))
}
