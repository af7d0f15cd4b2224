//go:build !windows

package service

import (
	"context"
	"os"

	"github.com/coreos/go-systemd/v22/daemon"

	"dockmaint/pkg/logx"
)

type unixPlatform struct {
	shell *Shell
	log   logx.Logger
}

// NewPlatform wraps the shell for a unix host. Under systemd the readiness
// and stopping notifications are sent over the notify socket; outside of
// systemd they are silently skipped.
func NewPlatform(shell *Shell, _ string, log logx.Logger) Platform {
	return &unixPlatform{shell: shell, log: log.With(logx.String("component", "platform"))}
}

func (p *unixPlatform) IsService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("NOTIFY_SOCKET") != ""
}

func (p *unixPlatform) Run(ctx context.Context) error {
	notify := func(state string) {
		if ok, err := daemon.SdNotify(false, state); err != nil {
			p.log.Debug("sd_notify failed", logx.Err(err))
		} else if ok {
			p.log.Debug("sd_notify sent", logx.String("state", state))
		}
	}

	if err := p.shell.Start(ctx); err != nil {
		return err
	}
	notify(daemon.SdNotifyReady)

	// systemd stops us with SIGTERM, which the shared signal wait handles.
	err := waitShell(ctx, p.shell, p.log)
	notify(daemon.SdNotifyStopping)
	return err
}
