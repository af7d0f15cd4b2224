//go:build !windows

package service

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/journal"
)

// ReportStartupError sends a startup failure straight to journald so it is
// visible in `systemctl status` even before the log sinks are up. Outside of
// systemd it is a no-op.
func ReportStartupError(name string, err error) {
	if !journal.Enabled() {
		return
	}
	_ = journal.Send(fmt.Sprintf("%s failed to start: %v", name, err), journal.PriErr, nil)
}
