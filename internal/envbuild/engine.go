package envbuild

import (
	"context"
	"errors"
	"os/exec"
)

// ExecResult carries the outcome of one executed action.
type ExecResult struct {
	// ExitStatus is the process exit status; zero means success.
	ExitStatus int
	// Log is the combined stdout/stderr of the action.
	Log []byte
}

// Engine executes a single action, an argv vector, inside a working
// directory. Implementations must honour ctx cancellation by terminating
// the running process; callers that need an action to run to completion
// pass an uncancellable context.
type Engine interface {
	Exec(ctx context.Context, dir string, argv []string) (*ExecResult, error)
}

// LocalEngine runs actions as child processes on the local host.
type LocalEngine struct{}

// Exec implements Engine. A non-zero exit status is not an error; the
// returned error is reserved for spawn failures (missing binary,
// permission problems).
func (LocalEngine) Exec(ctx context.Context, dir string, argv []string) (*ExecResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	result := &ExecResult{Log: out}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitStatus = exitErr.ExitCode()
			return result, nil
		}
		return nil, err
	}
	return result, nil
}
