//go:build !windows && !plan9

// File: internal/daemon/daemon_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package daemon

import "syscall"

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
