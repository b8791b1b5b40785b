//go:build linux || darwin || freebsd || netbsd || openbsd

package bootstrap

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so a Ctrl+C aimed at the
// pipeline does not also stop the service.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
