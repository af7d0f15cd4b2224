package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dockmaint/internal/app"
	"dockmaint/internal/service"
)

func newRunCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the maintenance daemon in the foreground",
		Long: "Run starts the daily maintenance loop and blocks until stopped. " +
			"Under systemd or the Windows service control manager it integrates " +
			"with the service lifecycle; in a terminal it stops on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(*cfgPath)
			if err != nil {
				service.ReportStartupError("dockmaint", err)
				return err
			}

			shell := service.NewShell(a.Run, a.StopTimeout(), a.Logger())
			platform := service.NewPlatform(shell, a.Config().ServiceName(), a.Logger())
			return platform.Run(cmd.Context())
		},
	}
}

func newOnceCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one full maintenance pass immediately and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(*cfgPath)
			if err != nil {
				return err
			}
			if failed := a.RunOnce(cmd.Context()); failed > 0 {
				return fmt.Errorf("%d maintenance step(s) failed", failed)
			}
			return nil
		},
	}
}
