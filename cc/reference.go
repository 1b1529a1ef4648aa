package cc

import (
	"github.com/daedaleanai/nap/core"
)

// ReferenceKind tells dependents how much they need to track to consume an archive.
type ReferenceKind int

const (
	// Direct archives are self-contained.
	Direct ReferenceKind = iota
	// ThinWithInputs archives only point at their members, which dependents
	// must also depend on and be able to locate.
	ThinWithInputs
)

func (k ReferenceKind) String() string {
	if k == ThinWithInputs {
		return "thin"
	}
	return "direct"
}

// ArchiveReference is what a dependent rule receives to consume an archive.
type ArchiveReference struct {
	Kind   ReferenceKind
	Path   core.Path
	Inputs []core.Path
}

// BuildReference returns the reference handed to rules depending on the archive
// spec produces at output.
func BuildReference(spec ArchiveSpec, output core.Path) ArchiveReference {
	if spec.Contents == Thin {
		return ArchiveReference{
			Kind:   ThinWithInputs,
			Path:   output,
			Inputs: append([]core.Path{}, spec.Inputs...),
		}
	}
	return ArchiveReference{Kind: Direct, Path: output}
}

// Deps returns every path a dependent has to treat as its own input: the archive
// itself, followed by its members for thin archives.
func (ref ArchiveReference) Deps() []core.Path {
	deps := []core.Path{ref.Path}
	if ref.Kind == ThinWithInputs {
		deps = append(deps, ref.Inputs...)
	}
	return deps
}

// Equal reports whether two references name the same paths in the same order.
func (ref ArchiveReference) Equal(other ArchiveReference) bool {
	if ref.Kind != other.Kind || !samePath(ref.Path, other.Path) {
		return false
	}
	if len(ref.Inputs) != len(other.Inputs) {
		return false
	}
	for i := range ref.Inputs {
		if !samePath(ref.Inputs[i], other.Inputs[i]) {
			return false
		}
	}
	return true
}

func (ref ArchiveReference) String() string {
	if ref.Kind == ThinWithInputs {
		return ref.Kind.String() + " " + core.Paths(ref.Deps()).String()
	}
	return ref.Kind.String() + " " + core.Paths{ref.Path}.String()
}

func samePath(a, b core.Path) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Root() == b.Root() && a.Relative() == b.Relative()
}
