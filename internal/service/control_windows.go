//go:build windows

package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"

	"dockmaint/pkg/logx"
)

type scmController struct {
	cfg ControlConfig
	log logx.Logger
}

func newController(cfg ControlConfig, log logx.Logger) (Controller, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("service name is empty")
	}
	return &scmController{cfg: cfg, log: log}, nil
}

func (c *scmController) Install(_ context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	if s, err := m.OpenService(c.cfg.Name); err == nil {
		s.Close()
		return fmt.Errorf("service %s already exists", c.cfg.Name)
	}

	args := []string{"run"}
	if c.cfg.ConfigPath != "" {
		args = append(args, "--config", c.cfg.ConfigPath)
	}
	s, err := m.CreateService(c.cfg.Name, c.cfg.ExecPath, mgr.Config{
		DisplayName: c.cfg.Name,
		Description: c.cfg.Description,
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()

	if err := eventlog.InstallAsEventCreate(c.cfg.Name, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		if delErr := s.Delete(); delErr != nil {
			c.log.Warn("rollback delete failed", logx.Err(delErr))
		}
		return fmt.Errorf("register event log source: %w", err)
	}
	c.log.Info("service installed", logx.String("name", c.cfg.Name))
	return nil
}

func (c *scmController) Uninstall(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.cfg.Name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", c.cfg.Name, err)
	}
	defer s.Close()

	// Best-effort stop; the service may already be stopped.
	if err := c.stopService(ctx, s); err != nil {
		c.log.Warn("stop before uninstall failed", logx.Err(err))
	}
	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if err := eventlog.Remove(c.cfg.Name); err != nil {
		c.log.Warn("remove event log source failed", logx.Err(err))
	}
	c.log.Info("service uninstalled", logx.String("name", c.cfg.Name))
	return nil
}

func (c *scmController) Start(_ context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.cfg.Name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", c.cfg.Name, err)
	}
	defer s.Close()

	if err := s.Start("run"); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

func (c *scmController) Stop(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.cfg.Name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", c.cfg.Name, err)
	}
	defer s.Close()

	return c.stopService(ctx, s)
}

// stopService sends the stop control and polls until the service reports
// Stopped or ctx expires.
func (c *scmController) stopService(ctx context.Context, s *mgr.Service) error {
	status, err := s.Control(svc.Stop)
	if err != nil {
		return fmt.Errorf("send stop control: %w", err)
	}
	for status.State != svc.Stopped {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for stop: %w", ctx.Err())
		case <-time.After(300 * time.Millisecond):
		}
		status, err = s.Query()
		if err != nil {
			return fmt.Errorf("query service state: %w", err)
		}
	}
	return nil
}

func (c *scmController) Status(_ context.Context) (string, error) {
	m, err := mgr.Connect()
	if err != nil {
		return "", fmt.Errorf("connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(c.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("open service %s: %w", c.cfg.Name, err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return "", fmt.Errorf("query service state: %w", err)
	}
	switch status.State {
	case svc.Stopped:
		return "stopped", nil
	case svc.StartPending:
		return "start-pending", nil
	case svc.StopPending:
		return "stop-pending", nil
	case svc.Running:
		return "running", nil
	case svc.ContinuePending, svc.PausePending, svc.Paused:
		return "paused", nil
	default:
		return fmt.Sprintf("state(%d)", status.State), nil
	}
}
