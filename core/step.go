package core

import (
	"fmt"

	"github.com/kballard/go-shellquote"

	"github.com/daedaleanai/nap/util"
)

// BuildStep represents one build step: a single external process invocation.
// Steps are value objects; use NewBuildStep so that the argv and environment are
// owned by the step.
type BuildStep struct {
	ShortName   string
	Argv        []string
	Env         map[string]string
	WorkingRoot string
}

// NewBuildStep creates a BuildStep holding private copies of argv and env.
func NewBuildStep(shortName, workingRoot string, argv []string, env map[string]string) BuildStep {
	step := BuildStep{
		ShortName:   shortName,
		Argv:        append([]string{}, argv...),
		Env:         make(map[string]string, len(env)),
		WorkingRoot: workingRoot,
	}
	for k, v := range env {
		step.Env[k] = v
	}
	return step
}

// Command renders the argv as a single shell-quoted command line.
func (step BuildStep) Command() string {
	return shellquote.Join(step.Argv...)
}

// EnvList returns the environment as KEY=VALUE pairs ordered by key.
func (step BuildStep) EnvList() []string {
	env := []string{}
	for _, entry := range util.OrderedEntries(step.Env) {
		env = append(env, fmt.Sprintf("%s=%s", entry.Key, entry.Value))
	}
	return env
}

// Equal reports whether two steps describe the same invocation.
func (step BuildStep) Equal(other BuildStep) bool {
	if step.ShortName != other.ShortName || step.WorkingRoot != other.WorkingRoot {
		return false
	}
	if len(step.Argv) != len(other.Argv) || len(step.Env) != len(other.Env) {
		return false
	}
	for i := range step.Argv {
		if step.Argv[i] != other.Argv[i] {
			return false
		}
	}
	for k, v := range step.Env {
		if ov, ok := other.Env[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (step BuildStep) String() string {
	return fmt.Sprintf("%s: (cd %s && %s)", step.ShortName, shellquote.Join(step.WorkingRoot), step.Command())
}

// StepResult is the outcome of executing a BuildStep.
type StepResult struct {
	ExitCode int
	Output   []byte
}

// Success reports whether the step exited cleanly.
func (r StepResult) Success() bool {
	return r.ExitCode == 0
}
