// Package executil wraps external tool invocation behind a small Runner
// interface so components can be tested without shelling out.
package executil

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/logging"
)

// Runner executes external commands. All invocations are synchronous and
// honor the deadline on the supplied context.
type Runner interface {
	// Run executes the command and returns its standard output.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// RunEnv executes the command with extra environment variables
	// appended to the current process environment.
	RunEnv(ctx context.Context, extraEnv []string, name string, args ...string) (string, error)

	// LookPath reports the resolved path of a tool, or an error with code
	// ErrToolUnavailable when the tool is not installed.
	LookPath(name string) (string, error)
}

// ExecRunner is the os/exec backed Runner used outside of tests.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.RunEnv(ctx, nil, name, args...)
}

// RunEnv implements Runner.
func (r *ExecRunner) RunEnv(ctx context.Context, extraEnv []string, name string, args ...string) (string, error) {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrapf(ctx.Err(), errors.ErrToolExec, "%s timed out", name)
		}
		return "", errors.Wrapf(err, errors.ErrToolExec, "%s failed: %s",
			name, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrToolUnavailable, "required tool %q not found", name)
	}
	return path, nil
}
