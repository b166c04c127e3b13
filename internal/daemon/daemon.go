// File: internal/daemon/daemon.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package daemon detaches the gateway from its terminal by re-executing the
// binary in a new session. The child is recognised by an environment marker.

package daemon

import (
	"os"
	"os/exec"
)

// EnvMarker is set in the environment of the detached child.
const EnvMarker = "HIOLOAD_GATE_DAEMON"

// IsChild reports whether the current process is the detached child.
func IsChild() bool {
	return os.Getenv(EnvMarker) == "1"
}

// Command builds the re-execution of exe with args. The child runs in its own
// session with every standard stream on the null device.
func Command(exe string, args []string) *exec.Cmd {
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), EnvMarker+"=1")
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	cmd.Dir = "/"
	cmd.SysProcAttr = sysProcAttr()
	return cmd
}

// Detach starts a detached copy of the running binary with the same
// arguments and returns its pid. The caller, as parent, is expected to exit.
func Detach() (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, err
	}
	cmd := Command(exe, os.Args[1:])
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	return pid, cmd.Process.Release()
}
