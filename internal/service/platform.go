package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dockmaint/pkg/logx"
)

// Platform runs the shell under the host's service machinery. On Linux that
// means signals plus sd-notify; on Windows the service control manager.
// Interactive (non-service) invocations fall back to a plain signal loop on
// both.
type Platform interface {
	// Run blocks until the service stops, for whatever reason.
	Run(ctx context.Context) error

	// IsService reports whether the process was launched by the service
	// manager rather than a terminal.
	IsService() bool
}

// runInteractive is the foreground fallback: start the shell, then wait for
// a signal or for the run body to exit on its own.
func runInteractive(ctx context.Context, shell *Shell, log logx.Logger) error {
	if err := shell.Start(ctx); err != nil {
		return err
	}
	return waitShell(ctx, shell, log)
}

// waitShell blocks on a started shell until a shutdown signal arrives, ctx
// is cancelled, or the run body exits by itself.
func waitShell(ctx context.Context, shell *Shell, log logx.Logger) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		log.Info("received shutdown signal", logx.String("signal", s.String()))
		if err := shell.Stop(); err != nil && err != ErrNotRunning {
			return err
		}
		return shell.Err()
	case <-ctx.Done():
		if err := shell.Stop(); err != nil && err != ErrNotRunning {
			return err
		}
		return shell.Err()
	case <-shell.Done():
		return shell.Err()
	}
}
