package core

import (
	"fmt"
	"strings"
)

// PreconditionError reports a self-inconsistent request. It is raised while
// planning, before any process is spawned, and is never worth retrying.
type PreconditionError struct {
	Target string
	Reason string
	Input  string
	Output string
}

func (e *PreconditionError) Error() string {
	b := strings.Builder{}
	if e.Target != "" {
		fmt.Fprintf(&b, "%s: ", e.Target)
	}
	b.WriteString(e.Reason)
	if e.Input != "" {
		fmt.Fprintf(&b, " (input %q", e.Input)
		if e.Output != "" {
			fmt.Fprintf(&b, ", output %q", e.Output)
		}
		b.WriteString(")")
	} else if e.Output != "" {
		fmt.Fprintf(&b, " (output %q)", e.Output)
	}
	return b.String()
}

// StepExecutionFailure reports a step that exited non-zero or could not be
// started. Err is set in the latter case.
type StepExecutionFailure struct {
	Step     BuildStep
	ExitCode int
	Output   []byte
	Err      error
}

func (e *StepExecutionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %s failed to run: %s", e.Step.ShortName, e.Err)
	}
	return fmt.Sprintf("step %s exited with code %d", e.Step.ShortName, e.ExitCode)
}

func (e *StepExecutionFailure) Unwrap() error {
	return e.Err
}
