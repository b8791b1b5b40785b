package bootstrap

import (
	"errors"
	"fmt"
	"os/exec"
)

// ExecLauncher runs Command with Args as a detached background process whose
// standard streams are discarded. The process is never waited on or stopped.
type ExecLauncher struct {
	Command string
	Args    []string
}

func (l ExecLauncher) Launch() error {
	if l.Command == "" {
		return errors.New("no launch command configured")
	}
	cmd := exec.Command(l.Command, l.Args...)
	// nil streams are connected to the null device
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", l.Command, err)
	}
	return cmd.Process.Release()
}
