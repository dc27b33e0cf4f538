//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// ConfigureProcessGroup puts cmd in its own process group so a later
// stopProcess can signal the whole group without also signaling the
// runner itself.
func ConfigureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
