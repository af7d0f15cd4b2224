//go:build windows

package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"

	"dockmaint/pkg/logx"
)

type windowsPlatform struct {
	shell *Shell
	name  string
	log   logx.Logger
}

// NewPlatform wraps the shell for Windows. Launched by the service control
// manager it runs as a proper service; launched from a terminal it falls
// back to the interactive signal loop.
func NewPlatform(shell *Shell, name string, log logx.Logger) Platform {
	return &windowsPlatform{
		shell: shell,
		name:  name,
		log:   log.With(logx.String("component", "platform")),
	}
}

func (p *windowsPlatform) IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

func (p *windowsPlatform) Run(ctx context.Context) error {
	if !p.IsService() {
		return runInteractive(ctx, p.shell, p.log)
	}
	if err := svc.Run(p.name, p); err != nil {
		ReportStartupError(p.name, err)
		return err
	}
	return p.shell.Err()
}

// Execute implements svc.Handler.
func (p *windowsPlatform) Execute(_ []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown

	changes <- svc.Status{State: svc.StartPending}
	if err := p.shell.Start(context.Background()); err != nil {
		ReportStartupError(p.name, err)
		changes <- svc.Status{State: svc.Stopped}
		return true, 1
	}
	changes <- svc.Status{State: svc.Running, Accepts: accepted}
	p.log.Info("running as windows service", logx.String("name", p.name))

	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
				time.Sleep(100 * time.Millisecond)
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				p.log.Info("stop requested by service control manager")
				changes <- svc.Status{State: svc.StopPending}
				stopErr := p.shell.Stop()
				changes <- svc.Status{State: svc.Stopped}
				if stopErr == ErrStopTimeout {
					return true, 1
				}
				return false, 0
			default:
				p.log.Warn("unexpected service control command", logx.Int("cmd", int(c.Cmd)))
			}
		case <-p.shell.Done():
			changes <- svc.Status{State: svc.Stopped}
			if p.shell.Err() != nil {
				return true, 1
			}
			return false, 0
		}
	}
}

// ReportStartupError writes a startup failure to the Windows event log so it
// is visible in Event Viewer even before the log sinks are up.
func ReportStartupError(name string, err error) {
	_ = eventlog.InstallAsEventCreate(name, eventlog.Error|eventlog.Warning|eventlog.Info)
	elog, openErr := eventlog.Open(name)
	if openErr != nil {
		return
	}
	defer elog.Close()
	_ = elog.Error(1, fmt.Sprintf("failed to start: %v", err))
}
