package cc

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/daedaleanai/nap/core"
)

// Short names of the archive stages, in the order they run.
const (
	StageMkdir   = "mkdir"
	StageArchive = "archive"
	StageRanlib  = "ranlib"
	StageScrub   = "scrub"
)

// ArchiveSpec describes one request to build a static archive. Create it with
// NewArchiveSpec and do not modify its fields afterwards: PlanArchive and
// BuildReference only read them, and the same spec may be planned more than
// once.
type ArchiveSpec struct {
	// Target names the request in diagnostics.
	Target   string
	Archiver Archiver
	Ranlib   *Tool
	Contents ArchiveContents
	// Inputs are archived in exactly this order.
	Inputs []core.Path
	Output core.Path
}

// NewArchiveSpec creates an ArchiveSpec that does not share any slices or maps
// with its arguments.
func NewArchiveSpec(target string, archiver Archiver, ranlib *Tool, contents ArchiveContents, inputs []core.Path, output core.Path) ArchiveSpec {
	spec := ArchiveSpec{
		Target:   target,
		Archiver: archiver.clone(),
		Contents: contents,
		Inputs:   append([]core.Path{}, inputs...),
		Output:   output,
	}
	if ranlib != nil {
		r := ranlib.clone()
		spec.Ranlib = &r
	}
	return spec
}

// Scrubbers returns the scrubbers applied to the archive once it is complete.
func (spec *ArchiveSpec) Scrubbers() []Scrubber {
	return spec.Archiver.Scrubbers
}

// checkConstruction verifies the parts of the spec that do not depend on the
// filesystem: the archiver must be usable and capable of what is asked of it.
func (spec *ArchiveSpec) checkConstruction() error {
	if spec.Output == nil {
		return spec.preconditionError("archive has no output", "")
	}
	if len(spec.Archiver.Command) == 0 {
		return spec.preconditionError("archiver has no command", "")
	}
	if spec.Contents == Thin && !spec.Archiver.SupportsThin {
		return spec.preconditionError(fmt.Sprintf("%s archiver for this platform does not support thin archives", spec.Archiver.Flavor), "")
	}
	if spec.Archiver.RequiresRanlib && !spec.Ranlib.Available() {
		return spec.preconditionError("ranlib is required by the archiver but no ranlib command was supplied", "")
	}
	for _, scrubber := range spec.Scrubbers() {
		if len(scrubber.Command) == 0 {
			return spec.preconditionError(fmt.Sprintf("scrubber %q has no command", scrubber.Name), "")
		}
	}
	return nil
}

// checkRoots verifies that a thin archive only references inputs below the
// output's filesystem root. Thin archives store paths relative to themselves,
// which cannot point into another root.
func (spec *ArchiveSpec) checkRoots() error {
	if spec.Contents != Thin {
		return nil
	}
	for _, input := range spec.Inputs {
		if !core.SameRoot(input, spec.Output) {
			return spec.preconditionError("thin archive inputs must be under the same filesystem root as the output", input.Absolute())
		}
	}
	return nil
}

func (spec *ArchiveSpec) preconditionError(reason, input string) error {
	err := &core.PreconditionError{
		Target: spec.Target,
		Reason: reason,
		Input:  input,
	}
	if spec.Output != nil {
		err.Output = spec.Output.Absolute()
	}
	return err
}

// archiveStage is one stage of an archive plan. Stages whose predicate does not
// hold for a spec are left out of its plan entirely.
type archiveStage struct {
	name    string
	applies func(spec *ArchiveSpec) bool
	step    func(spec *ArchiveSpec) (core.BuildStep, error)
}

func always(*ArchiveSpec) bool { return true }

// archiveStages lists every stage in execution order. The output directory must
// exist before the archiver writes, the archiver must finish before ranlib reads
// the symbol table, and scrubbing comes last since ranlib also writes
// non-deterministic bytes.
var archiveStages = []archiveStage{
	{StageMkdir, always, mkdirStep},
	{StageArchive, always, archiveStep},
	{StageRanlib, func(spec *ArchiveSpec) bool { return spec.Archiver.RequiresRanlib }, ranlibStep},
	{StageScrub, func(spec *ArchiveSpec) bool { return len(spec.Scrubbers()) > 0 }, scrubStep},
}

// PlanArchive returns the steps that produce the archive described by spec. When
// the spec is inconsistent a *core.PreconditionError is returned and no steps.
func PlanArchive(spec ArchiveSpec) ([]core.BuildStep, error) {
	if err := spec.checkConstruction(); err != nil {
		return nil, err
	}
	if err := spec.checkRoots(); err != nil {
		return nil, err
	}

	steps := []core.BuildStep{}
	for _, stage := range archiveStages {
		if !stage.applies(&spec) {
			continue
		}
		step, err := stage.step(&spec)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func mkdirStep(spec *ArchiveSpec) (core.BuildStep, error) {
	argv := []string{"mkdir", "-p", spec.Output.Dir().Relative()}
	return core.NewBuildStep(StageMkdir, spec.Output.Root(), argv, nil), nil
}

// archiveStep invokes the archiver. A normal archive is created from the
// project root with root-relative paths; inputs from other roots are passed
// absolute. A thin archive is created from the output's directory with the
// inputs given relative to it, which are the member paths the archive records.
func archiveStep(spec *ArchiveSpec) (core.BuildStep, error) {
	archiver := spec.Archiver
	argv := append([]string{}, archiver.Command...)
	argv = append(argv, archiver.Flags...)
	argv = append(argv, archiver.ArchiveOptions(spec.Contents)...)

	if spec.Contents == Thin {
		outDir := spec.Output.Dir()
		argv = append(argv, spec.Output.Base())
		for _, input := range spec.Inputs {
			rel, err := core.RelativeTo(input, outDir)
			if err != nil {
				return core.BuildStep{}, spec.preconditionError(err.Error(), input.Absolute())
			}
			argv = append(argv, rel)
		}
		return core.NewBuildStep(StageArchive, outDir.Absolute(), argv, archiver.Env), nil
	}

	argv = append(argv, spec.Output.Relative())
	for _, input := range spec.Inputs {
		if core.SameRoot(input, spec.Output) {
			argv = append(argv, input.Relative())
		} else {
			argv = append(argv, input.Absolute())
		}
	}
	return core.NewBuildStep(StageArchive, spec.Output.Root(), argv, archiver.Env), nil
}

func ranlibStep(spec *ArchiveSpec) (core.BuildStep, error) {
	argv := append([]string{}, spec.Ranlib.Command...)
	argv = append(argv, spec.Ranlib.Flags...)
	argv = append(argv, spec.Output.Relative())
	return core.NewBuildStep(StageRanlib, spec.Output.Root(), argv, spec.Ranlib.Env), nil
}

// scrubStep applies the scrubbers to the archive in place, in order. Several
// scrubbers are chained in one shell invocation so that the stage stays a
// single step.
func scrubStep(spec *ArchiveSpec) (core.BuildStep, error) {
	output := spec.Output.Relative()
	scrubbers := spec.Scrubbers()

	var argv []string
	if len(scrubbers) == 1 {
		argv = append(append([]string{}, scrubbers[0].Command...), output)
	} else {
		commands := []string{}
		for _, scrubber := range scrubbers {
			commands = append(commands, shellquote.Join(append(append([]string{}, scrubber.Command...), output)...))
		}
		argv = []string{"/bin/sh", "-c", strings.Join(commands, " && ")}
	}
	return core.NewBuildStep(StageScrub, spec.Output.Root(), argv, nil), nil
}
