//go:build !linux && !windows

package service

import (
	"fmt"
	"runtime"

	"dockmaint/pkg/logx"
)

func newController(ControlConfig, logx.Logger) (Controller, error) {
	return nil, fmt.Errorf("service control is not supported on %s", runtime.GOOS)
}
