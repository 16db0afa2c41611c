package git

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs a command and reports whether it succeeded
	Execute(cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its stdout
	ExecuteWithOutput(cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return newCommandError(cmd, err, stderr.String())
	}
	return nil
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput
func (e *ExecExecutor) ExecuteWithOutput(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", newCommandError(cmd, err, stderr.String())
	}
	return stdout.String(), nil
}

// CommandError describes a git invocation that exited unsuccessfully.
type CommandError struct {
	Operation string
	Args      []string
	Err       error
	Output    string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// newCommandError names the failure after the git sub-command, skipping
// the binary and any -C <dir> prefix.
func newCommandError(cmd *exec.Cmd, err error, output string) *CommandError {
	var args []string
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:]
	}
	op := ""
	for i := 0; i < len(args); i++ {
		if args[i] == "-C" {
			i++
			continue
		}
		op = args[i]
		break
	}
	return &CommandError{Operation: op, Args: args, Err: err, Output: output}
}
