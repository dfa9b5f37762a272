//go:build windows

package pool

import "os/exec"

func configureSysProcAttr(cmd *exec.Cmd) {}
