//go:build linux

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coreos/go-systemd/v22/dbus"

	"dockmaint/pkg/logx"
)

const unitDir = "/etc/systemd/system"

type systemdController struct {
	cfg ControlConfig
	log logx.Logger
}

func newController(cfg ControlConfig, log logx.Logger) (Controller, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("service name is empty")
	}
	return &systemdController{cfg: cfg, log: log}, nil
}

func (c *systemdController) unit() string { return c.cfg.Name + ".service" }

func (c *systemdController) unitPath() string { return filepath.Join(unitDir, c.unit()) }

func (c *systemdController) connect(ctx context.Context) (*dbus.Conn, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return conn, nil
}

func (c *systemdController) unitFile() string {
	exec := c.cfg.ExecPath + " run"
	if c.cfg.ConfigPath != "" {
		exec += " --config " + c.cfg.ConfigPath
	}
	return fmt.Sprintf(`[Unit]
Description=%s
After=network.target docker.service

[Service]
Type=notify
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, c.cfg.Description, exec)
}

func (c *systemdController) Install(ctx context.Context) error {
	if err := os.WriteFile(c.unitPath(), []byte(c.unitFile()), 0o644); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("reload systemd daemon: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{c.unit()}, false, true); err != nil {
		return fmt.Errorf("enable %s: %w", c.unit(), err)
	}
	c.log.Info("service installed",
		logx.String("unit", c.unit()),
		logx.String("path", c.unitPath()),
	)
	return nil
}

func (c *systemdController) Uninstall(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Best-effort stop; the unit may already be inactive.
	if err := c.stopUnit(ctx, conn); err != nil {
		c.log.Warn("stop before uninstall failed", logx.Err(err))
	}
	if _, err := conn.DisableUnitFilesContext(ctx, []string{c.unit()}, false); err != nil {
		return fmt.Errorf("disable %s: %w", c.unit(), err)
	}
	if err := os.Remove(c.unitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("reload systemd daemon: %w", err)
	}
	c.log.Info("service uninstalled", logx.String("unit", c.unit()))
	return nil
}

func (c *systemdController) Start(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res := make(chan string, 1)
	if _, err := conn.StartUnitContext(ctx, c.unit(), "replace", res); err != nil {
		return fmt.Errorf("start %s: %w", c.unit(), err)
	}
	return c.awaitJob(ctx, res)
}

func (c *systemdController) Stop(ctx context.Context) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return c.stopUnit(ctx, conn)
}

func (c *systemdController) stopUnit(ctx context.Context, conn *dbus.Conn) error {
	res := make(chan string, 1)
	if _, err := conn.StopUnitContext(ctx, c.unit(), "replace", res); err != nil {
		return fmt.Errorf("stop %s: %w", c.unit(), err)
	}
	return c.awaitJob(ctx, res)
}

func (c *systemdController) awaitJob(ctx context.Context, res <-chan string) error {
	select {
	case r := <-res:
		if r != "done" {
			return fmt.Errorf("systemd job finished with result %q", r)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *systemdController) Status(ctx context.Context) (string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, c.unit())
	if err != nil {
		return "", fmt.Errorf("query %s: %w", c.unit(), err)
	}
	state, _ := props["ActiveState"].(string)
	if state == "" {
		state = "unknown"
	}
	return state, nil
}
