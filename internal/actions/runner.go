package actions

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
)

// cmdRunner is the subprocess seam. The real implementation shells out;
// tests swap in fakes so no external tool is required.
type cmdRunner interface {
	// run executes a binary with args and returns its stdout.
	run(ctx context.Context, name string, args ...string) ([]byte, error)
	// shell runs a command line through the shell and waits.
	shell(ctx context.Context, command string) (stdout, stderr []byte, err error)
	// detach launches a command line in its own session and returns
	// immediately.
	detach(command string) error
	// lookPath reports whether a binary is installed.
	lookPath(name string) (string, error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (execRunner) shell(ctx context.Context, command string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func (execRunner) detach(command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func (execRunner) lookPath(name string) (string, error) {
	return exec.LookPath(name)
}
