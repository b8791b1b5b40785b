//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package bootstrap

import "os/exec"

func detach(cmd *exec.Cmd) {}
