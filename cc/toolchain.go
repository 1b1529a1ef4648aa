package cc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daedaleanai/nap/util"
)

// ArchiveContents selects what an archive embeds for its members.
type ArchiveContents int

const (
	// Normal archives embed the full contents of every member.
	Normal ArchiveContents = iota
	// Thin archives only embed paths to their members, relative to the archive.
	Thin
)

func (c ArchiveContents) String() string {
	switch c {
	case Normal:
		return "normal"
	case Thin:
		return "thin"
	}
	return fmt.Sprintf("ArchiveContents(%d)", int(c))
}

// ParseArchiveContents parses "normal" or "thin". An empty string means normal.
func ParseArchiveContents(s string) (ArchiveContents, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return Normal, nil
	case "thin":
		return Thin, nil
	}
	return Normal, fmt.Errorf("unknown archive contents %q (want normal or thin)", s)
}

// UnmarshalYAML decodes archive contents from their name.
func (c *ArchiveContents) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseArchiveContents(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML encodes archive contents as their name.
func (c ArchiveContents) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

type ArchiverFlavor int

const (
	Gnu ArchiverFlavor = iota
	Llvm
	Bsd
	Darwin
)

var flavorNames = map[ArchiverFlavor]string{
	Gnu:    "gnu",
	Llvm:   "llvm",
	Bsd:    "bsd",
	Darwin: "darwin",
}

func (f ArchiverFlavor) String() string {
	if name, ok := flavorNames[f]; ok {
		return name
	}
	return fmt.Sprintf("ArchiverFlavor(%d)", int(f))
}

// ParseArchiverFlavor parses the name of an archiver flavor.
func ParseArchiverFlavor(s string) (ArchiverFlavor, error) {
	for flavor, name := range flavorNames {
		if strings.EqualFold(s, name) {
			return flavor, nil
		}
	}
	names := util.MappedSlice(util.OrderedValues(flavorNames), func(n string) string { return fmt.Sprintf("%q", n) })
	return Gnu, fmt.Errorf("unknown archiver flavor %q, known flavors: %s", s, strings.Join(names, ", "))
}

// Tool is an external tool resolved to an argv prefix, fixed flags and the
// environment it must run with.
type Tool struct {
	Command []string
	Flags   []string
	Env     map[string]string
}

// Available reports whether the tool has a command.
func (t *Tool) Available() bool {
	return t != nil && len(t.Command) > 0
}

func (t Tool) clone() Tool {
	c := Tool{
		Command: append([]string{}, t.Command...),
		Flags:   append([]string{}, t.Flags...),
	}
	if t.Env != nil {
		c.Env = make(map[string]string, len(t.Env))
		for k, v := range t.Env {
			c.Env[k] = v
		}
	}
	return c
}

// Scrubber rewrites a produced file in place so that it no longer carries
// non-deterministic bytes such as timestamps or user ids. It is invoked as
// Command followed by the file to scrub.
type Scrubber struct {
	Name    string
	Command []string
}

// Archiver is a resolved archiver together with its capabilities.
type Archiver struct {
	Tool
	Flavor         ArchiverFlavor
	SupportsThin   bool
	RequiresRanlib bool
	NormalOptions  []string
	ThinOptions    []string
	Scrubbers      []Scrubber
}

// ArchiveOptions returns the format options selecting the given contents.
func (a Archiver) ArchiveOptions(contents ArchiveContents) []string {
	if contents == Thin {
		return a.ThinOptions
	}
	return a.NormalOptions
}

func (a Archiver) clone() Archiver {
	c := a
	c.Tool = a.Tool.clone()
	c.NormalOptions = append([]string{}, a.NormalOptions...)
	c.ThinOptions = append([]string{}, a.ThinOptions...)
	c.Scrubbers = nil
	for _, s := range a.Scrubbers {
		c.Scrubbers = append(c.Scrubbers, Scrubber{Name: s.Name, Command: append([]string{}, s.Command...)})
	}
	return c
}

// ArchiverFor returns the capabilities of an archiver of the given flavor. The
// command defaults to the flavor's usual binary name.
func ArchiverFor(flavor ArchiverFlavor, command ...string) Archiver {
	archiver := Archiver{Flavor: flavor}
	switch flavor {
	case Gnu:
		archiver.Command = []string{"ar"}
		archiver.NormalOptions = []string{"rcs"}
		archiver.ThinOptions = []string{"rcsT"}
		archiver.SupportsThin = true
	case Llvm:
		archiver.Command = []string{"llvm-ar"}
		archiver.NormalOptions = []string{"rcs"}
		archiver.ThinOptions = []string{"rcsT"}
		archiver.SupportsThin = true
	case Bsd:
		archiver.Command = []string{"ar"}
		archiver.NormalOptions = []string{"-rc"}
		archiver.RequiresRanlib = true
	case Darwin:
		archiver.Command = []string{"ar"}
		archiver.NormalOptions = []string{"-rc"}
		archiver.RequiresRanlib = true
		// Apple's ar and ranlib zero the member timestamps when this is set.
		archiver.Env = map[string]string{"ZERO_AR_DATE": "1"}
	}
	if len(command) > 0 {
		archiver.Command = append([]string{}, command...)
	}
	return archiver
}

// Toolchain groups the tools used to produce native artifacts for one platform.
type Toolchain struct {
	Name            string
	Archiver        Archiver
	Ranlib          *Tool
	Dsymutil        *Tool
	DefaultContents ArchiveContents
}

// BuiltinToolchains returns the toolchains available without any configuration.
func BuiltinToolchains() []Toolchain {
	darwinEnv := map[string]string{"ZERO_AR_DATE": "1"}
	return []Toolchain{
		{
			Name:     "gnu",
			Archiver: ArchiverFor(Gnu),
			Ranlib:   &Tool{Command: []string{"ranlib"}},
		},
		{
			Name:     "llvm",
			Archiver: ArchiverFor(Llvm),
			Ranlib:   &Tool{Command: []string{"llvm-ranlib"}},
			Dsymutil: &Tool{Command: []string{"dsymutil"}},
		},
		{
			Name:     "bsd",
			Archiver: ArchiverFor(Bsd),
			Ranlib:   &Tool{Command: []string{"ranlib"}},
		},
		{
			Name:     "darwin",
			Archiver: ArchiverFor(Darwin),
			Ranlib:   &Tool{Command: []string{"ranlib"}, Flags: []string{"-no_warning_for_no_symbols"}, Env: darwinEnv},
			Dsymutil: &Tool{Command: []string{"dsymutil"}, Env: darwinEnv},
		},
	}
}

// Registry holds the toolchains known to a build, by name.
type Registry struct {
	toolchains  util.OrderedMap[string, Toolchain]
	defaultName string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{toolchains: util.NewOrderedMap[string, Toolchain]()}
}

// Register adds a toolchain. Names must be unique.
func (r *Registry) Register(toolchain Toolchain) error {
	if toolchain.Name == "" {
		return fmt.Errorf("cannot register a toolchain without a name")
	}
	if err := r.toolchains.Insert(toolchain.Name, toolchain); err != nil {
		return fmt.Errorf("a toolchain with name %q has already been registered", toolchain.Name)
	}
	return nil
}

// RegisterAsDefault adds a toolchain and makes it the default one.
func (r *Registry) RegisterAsDefault(toolchain Toolchain) error {
	if r.defaultName != "" {
		return fmt.Errorf("default toolchain is already registered to %q, but attempted to register %q", r.defaultName, toolchain.Name)
	}
	if err := r.Register(toolchain); err != nil {
		return err
	}
	r.defaultName = toolchain.Name
	return nil
}

// SetDefault selects an already registered toolchain as the default.
func (r *Registry) SetDefault(name string) error {
	if _, found := r.toolchains.Lookup(name); !found {
		return r.unknown(name)
	}
	r.defaultName = name
	return nil
}

// DefaultName returns the name of the default toolchain, if any.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Lookup returns the toolchain called name, or the default toolchain if name is empty.
func (r *Registry) Lookup(name string) (Toolchain, error) {
	if name == "" {
		name = r.defaultName
	}
	if toolchain, found := r.toolchains.Lookup(name); found {
		return toolchain, nil
	}
	return Toolchain{}, r.unknown(name)
}

// Toolchains returns all registered toolchains ordered by name.
func (r *Registry) Toolchains() []Toolchain {
	return r.toolchains.Values()
}

func (r *Registry) unknown(name string) error {
	var all []string
	for _, tc := range r.toolchains.Keys() {
		all = append(all, fmt.Sprintf("%q", tc))
	}
	sort.Strings(all)
	return fmt.Errorf("no registered toolchain %q, registered toolchains: %s", name, strings.Join(all, ", "))
}
