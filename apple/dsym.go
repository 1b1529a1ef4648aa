// Package apple plans the steps specific to Apple platforms.
//
// Linking an Apple executable does not embed the debug information of its
// object files; the executable only records where they are. dsymutil follows
// those records and collects the debug information into a .dSYM bundle next to
// the executable, which debuggers load automatically.
package apple

import (
	"fmt"

	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/core"
)

// StageDsym is the short name of the dsymutil step.
const StageDsym = "dsymutil"

// DsymSpec describes one debug-symbol extraction. It is immutable once created
// with NewDsymSpec.
type DsymSpec struct {
	Command    []string
	ExtraFlags []string
	// Input is the linked binary. It must exist before the step runs.
	Input  core.Path
	Output core.Path
	// Env is the complete environment of the step.
	Env map[string]string
}

// NewDsymSpec creates a DsymSpec that does not share any slices or maps with its
// arguments.
func NewDsymSpec(command, extraFlags []string, input, output core.Path, env map[string]string) DsymSpec {
	spec := DsymSpec{
		Command:    append([]string{}, command...),
		ExtraFlags: append([]string{}, extraFlags...),
		Input:      input,
		Output:     output,
		Env:        make(map[string]string, len(env)),
	}
	for k, v := range env {
		spec.Env[k] = v
	}
	return spec
}

// DsymSpecFor creates a DsymSpec using the dsymutil of a toolchain.
func DsymSpecFor(toolchain cc.Toolchain, input, output core.Path) (DsymSpec, error) {
	if !toolchain.Dsymutil.Available() {
		return DsymSpec{}, fmt.Errorf("toolchain %q has no dsymutil", toolchain.Name)
	}
	tool := toolchain.Dsymutil
	return NewDsymSpec(tool.Command, tool.Flags, input, output, tool.Env), nil
}

// PlanDsym returns the single step extracting the debug symbols of spec.Input
// into spec.Output. Both are passed as absolute paths.
func PlanDsym(spec DsymSpec) core.BuildStep {
	argv := append([]string{}, spec.Command...)
	argv = append(argv, spec.ExtraFlags...)
	argv = append(argv, "-o", spec.Output.Absolute(), spec.Input.Absolute())
	return core.NewBuildStep(StageDsym, spec.Input.Root(), argv, spec.Env)
}
