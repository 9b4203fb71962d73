//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess puts rosterd in its own process group so it outlives the shell
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
