package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dockmaint/internal/config"
	"dockmaint/internal/service"
	"dockmaint/pkg/logx"
)

const controlTimeout = 30 * time.Second

// newControlCommands returns the service management verbs. They talk to the
// host's service manager, not to a running daemon.
func newControlCommands(cfgPath *string) []*cobra.Command {
	install := &cobra.Command{
		Use:   "install",
		Short: "Register the daemon with the service manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), *cfgPath, func(ctx context.Context, ctl service.Controller) error {
				return ctl.Install(ctx)
			})
		},
	}
	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the daemon from the service manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), *cfgPath, func(ctx context.Context, ctl service.Controller) error {
				return ctl.Uninstall(ctx)
			})
		},
	}
	start := &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), *cfgPath, func(ctx context.Context, ctl service.Controller) error {
				return ctl.Start(ctx)
			})
		},
	}
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), *cfgPath, func(ctx context.Context, ctl service.Controller) error {
				return ctl.Stop(ctx)
			})
		},
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the service manager's view of the daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd.Context(), *cfgPath, func(ctx context.Context, ctl service.Controller) error {
				state, err := ctl.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
	return []*cobra.Command{install, uninstall, start, stop, status}
}

func withController(parent context.Context, cfgPath string, fn func(context.Context, service.Controller) error) error {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	absCfg, err := filepath.Abs(cfgPath)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	desc := cfg.Service.Description
	if desc == "" {
		desc = "Daily Docker host maintenance"
	}
	ctl, err := service.NewController(service.ControlConfig{
		Name:        cfg.ServiceName(),
		Description: desc,
		ExecPath:    exe,
		ConfigPath:  absCfg,
	}, logx.NewConsole(cfg.Logging.Level))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, controlTimeout)
	defer cancel()
	return fn(ctx, ctl)
}
