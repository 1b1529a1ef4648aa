// Package manifest reads the build manifest of a project and turns it into
// build requests.
package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/daedaleanai/nap/apple"
	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/util"
)

// cellSeparator splits a cell name from the path below the cell root.
const cellSeparator = "//"

type Archive struct {
	Name      string              `yaml:"name"`
	Toolchain string              `yaml:"toolchain,omitempty"`
	Contents  *cc.ArchiveContents `yaml:"contents,omitempty"`
	Output    string              `yaml:"output"`
	Inputs    []string            `yaml:"inputs"`
	Cacheable *bool               `yaml:"cacheable,omitempty"`
}

type Dsym struct {
	Name      string `yaml:"name"`
	Toolchain string `yaml:"toolchain,omitempty"`
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
}

// Manifest lists the artifacts of a project.
type Manifest struct {
	// Root is the project root, relative to the manifest's directory.
	Root string `yaml:"root,omitempty"`
	// Cells maps names to additional filesystem roots.
	Cells    map[string]string `yaml:"cells,omitempty"`
	Archives []Archive         `yaml:"archives,omitempty"`
	Dsyms    []Dsym            `yaml:"dsyms,omitempty"`

	dir string
}

// Load reads the manifest at filePath.
func Load(filePath string) (Manifest, error) {
	m := Manifest{}
	if err := util.ReadYaml(filePath, &m); err != nil {
		return m, err
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return m, err
	}
	m.dir = filepath.Dir(abs)
	return m, nil
}

// Save writes the manifest to filePath.
func Save(filePath string, m Manifest) error {
	return util.WriteYaml(filePath, m)
}

func (m Manifest) resolve(root string) string {
	if filepath.IsAbs(root) {
		return filepath.Clean(root)
	}
	return filepath.Join(m.dir, root)
}

// ProjectRoot returns the absolute project root.
func (m Manifest) ProjectRoot() string {
	return m.resolve(m.Root)
}

// Path resolves a manifest path. A path written cell//rel lives under the
// root of that cell. Anything else is relative to the project root or
// absolute; absolute paths outside the project root live under the
// filesystem root.
func (m Manifest) Path(p string) (core.Path, error) {
	if p == "" {
		return nil, fmt.Errorf("empty path")
	}
	cell, rel, found := strings.Cut(p, cellSeparator)
	if !found {
		return core.ResolvePath(m.ProjectRoot(), p)
	}
	root, ok := m.Cells[cell]
	if !ok {
		return nil, fmt.Errorf("path %q refers to unknown cell %q", p, cell)
	}
	if filepath.IsAbs(rel) {
		return nil, fmt.Errorf("path %q must be relative to cell %q", p, cell)
	}
	return core.ResolvePath(m.resolve(root), rel)
}

func (m Manifest) paths(ps []string) ([]core.Path, error) {
	result := []core.Path{}
	for _, p := range ps {
		path, err := m.Path(p)
		if err != nil {
			return nil, err
		}
		result = append(result, path)
	}
	return result, nil
}

// Plan returns the requests building everything in the manifest, archives first.
// Artifact names must be unique.
func Plan(m Manifest, toolchains *cc.Registry) ([]build.Request, error) {
	if err := checkNames(m); err != nil {
		return nil, err
	}
	requests := []build.Request{}
	for _, archive := range m.Archives {
		request, err := planArchive(m, toolchains, archive)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", archive.Name, err)
		}
		requests = append(requests, request)
	}
	for _, dsym := range m.Dsyms {
		request, err := planDsym(m, toolchains, dsym)
		if err != nil {
			return nil, fmt.Errorf("dsym %s: %w", dsym.Name, err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func planArchive(m Manifest, toolchains *cc.Registry, archive Archive) (build.Request, error) {
	toolchain, err := toolchains.Lookup(archive.Toolchain)
	if err != nil {
		return build.Request{}, err
	}
	output, err := m.Path(archive.Output)
	if err != nil {
		return build.Request{}, err
	}
	inputs, err := m.paths(archive.Inputs)
	if err != nil {
		return build.Request{}, err
	}

	opts := cc.ArchiveOptions{Contents: archive.Contents, Cacheable: archive.Cacheable}
	rule, err := cc.NewArchiveRule(archive.Name, toolchain, output, inputs, opts)
	if err != nil {
		return build.Request{}, err
	}
	steps, err := rule.Steps()
	if err != nil {
		return build.Request{}, err
	}
	ref := rule.Reference()
	return build.Request{
		Name:      archive.Name,
		Output:    output,
		Steps:     steps,
		Reference: &ref,
		Cacheable: rule.Cacheable(),
	}, nil
}

func planDsym(m Manifest, toolchains *cc.Registry, dsym Dsym) (build.Request, error) {
	toolchain, err := toolchains.Lookup(dsym.Toolchain)
	if err != nil {
		return build.Request{}, err
	}
	input, err := m.Path(dsym.Input)
	if err != nil {
		return build.Request{}, err
	}
	output, err := m.Path(dsym.Output)
	if err != nil {
		return build.Request{}, err
	}
	spec, err := apple.DsymSpecFor(toolchain, input, output)
	if err != nil {
		return build.Request{}, err
	}
	return build.Request{
		Name:      dsym.Name,
		Output:    output,
		Steps:     []core.BuildStep{apple.PlanDsym(spec)},
		Cacheable: true,
	}, nil
}

func checkNames(m Manifest) error {
	names := []string{}
	for _, archive := range m.Archives {
		names = append(names, archive.Name)
	}
	for _, dsym := range m.Dsyms {
		names = append(names, dsym.Name)
	}
	seen := map[string]bool{}
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("every artifact needs a name")
		}
		if seen[name] {
			return fmt.Errorf("artifact name %q is used more than once", name)
		}
		seen[name] = true
	}
	return nil
}
