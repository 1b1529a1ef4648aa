package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/daedaleanai/nap/log"
)

// Executor runs a single BuildStep and reports its exit status and captured output.
// An error is returned only when the process could not be run at all.
type Executor interface {
	Execute(ctx context.Context, step BuildStep) (StepResult, error)
}

// ProcessExecutor runs steps as child processes.
//
// The child sees exactly the step's environment: nothing is inherited from the
// current process. Stdout and stderr are captured together; if Echo is set they
// are also copied to it while the process runs.
type ProcessExecutor struct {
	Echo io.Writer
}

// Execute runs the step and waits for it to finish. Cancelling ctx kills the
// step's whole process group.
func (e ProcessExecutor) Execute(ctx context.Context, step BuildStep) (StepResult, error) {
	if len(step.Argv) == 0 {
		return StepResult{}, fmt.Errorf("step %s has an empty command", step.ShortName)
	}

	log.WithStep(step.ShortName).Debugf("Running '%s'\n", step.Command())

	cmd := exec.CommandContext(ctx, step.Argv[0], step.Argv[1:]...)
	cmd.Dir = step.WorkingRoot
	cmd.Env = step.EnvList()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var output bytes.Buffer
	var sink io.Writer = &output
	if e.Echo != nil {
		sink = io.MultiWriter(&output, e.Echo)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	err := cmd.Run()
	result := StepResult{Output: output.Bytes()}
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("step %s cancelled: %w", step.ShortName, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, err
}

// RunSteps executes steps in order and stops at the first one that fails. Stages
// of one plan build on the on-disk result of the previous stage, so nothing runs
// after a failure.
func RunSteps(ctx context.Context, executor Executor, steps []BuildStep) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepExecutionFailure{Step: step, ExitCode: -1, Err: err}
		}

		result, err := executor.Execute(ctx, step)
		if err != nil {
			return &StepExecutionFailure{Step: step, ExitCode: -1, Output: result.Output, Err: err}
		}
		if !result.Success() {
			return &StepExecutionFailure{Step: step, ExitCode: result.ExitCode, Output: result.Output}
		}
		log.WithStep(step.ShortName).Debugf("Finished '%s'\n", step.Command())
	}
	return nil
}
