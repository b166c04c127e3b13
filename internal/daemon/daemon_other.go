//go:build windows || plan9

// File: internal/daemon/daemon_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package daemon

import "syscall"

func sysProcAttr() *syscall.SysProcAttr { return nil }
