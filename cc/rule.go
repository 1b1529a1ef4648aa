package cc

import (
	"fmt"

	"github.com/daedaleanai/nap/core"
)

// ArchiveOptions overrides the toolchain defaults of an ArchiveRule.
type ArchiveOptions struct {
	Contents  *ArchiveContents
	Cacheable *bool
}

// ArchiveRule builds one static archive with a toolchain.
type ArchiveRule struct {
	spec      ArchiveSpec
	cacheable bool
}

// NewArchiveRule creates a rule producing output from inputs. Unless overridden
// in opts the contents come from the toolchain and the rule is cacheable. Errors
// that do not depend on the filesystem are reported here already.
func NewArchiveRule(name string, toolchain Toolchain, output core.Path, inputs []core.Path, opts ArchiveOptions) (*ArchiveRule, error) {
	contents := toolchain.DefaultContents
	if opts.Contents != nil {
		contents = *opts.Contents
	}
	cacheable := true
	if opts.Cacheable != nil {
		cacheable = *opts.Cacheable
	}

	spec := NewArchiveSpec(name, toolchain.Archiver, toolchain.Ranlib, contents, inputs, output)
	if err := spec.checkConstruction(); err != nil {
		return nil, err
	}
	return &ArchiveRule{spec: spec, cacheable: cacheable}, nil
}

// Name returns the name of the rule.
func (rule *ArchiveRule) Name() string {
	return rule.spec.Target
}

// Output returns the path of the archive.
func (rule *ArchiveRule) Output() core.Path {
	return rule.spec.Output
}

// Contents returns whether the rule produces a normal or a thin archive.
func (rule *ArchiveRule) Contents() ArchiveContents {
	return rule.spec.Contents
}

// Steps returns the build steps producing the archive.
func (rule *ArchiveRule) Steps() ([]core.BuildStep, error) {
	return PlanArchive(rule.spec)
}

// Reference returns what rules linking against the archive depend on.
func (rule *ArchiveRule) Reference() ArchiveReference {
	return BuildReference(rule.spec, rule.spec.Output)
}

// Cacheable reports whether the caller allowed the archive to be cached.
func (rule *ArchiveRule) Cacheable() bool {
	return rule.cacheable
}

// SuggestCacheable reports whether caching the archive is safe. A thin archive
// is only a list of paths to its members, so its cached copy is useless without
// them.
func (rule *ArchiveRule) SuggestCacheable() bool {
	return rule.cacheable && rule.spec.Contents != Thin
}

func (rule *ArchiveRule) String() string {
	return fmt.Sprintf("%s (%s archive %s)", rule.spec.Target, rule.spec.Contents, rule.spec.Output.Relative())
}
