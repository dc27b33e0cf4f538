//go:build windows

package process

import "os/exec"

// ConfigureProcessGroup is a no-op on Windows; stopProcess falls back to
// killing the process directly.
func ConfigureProcessGroup(cmd *exec.Cmd) {}
