package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/core"
)

const testManifest = `root: project
cells:
  vendor: /opt/vendor
archives:
  - name: libfoo
    toolchain: gnu
    output: out/libfoo.a
    inputs: [obj/a.o, obj/b.o]
  - name: libbar
    toolchain: gnu
    contents: thin
    cacheable: false
    output: out/lib/libbar.a
    inputs: [obj/c.o]
dsyms:
  - name: app
    toolchain: darwin
    input: out/App
    output: out/App.dSYM
`

func builtinRegistry(t *testing.T) *cc.Registry {
	t.Helper()
	registry := cc.NewRegistry()
	for _, toolchain := range cc.BuiltinToolchains() {
		if err := registry.Register(toolchain); err != nil {
			t.Fatal(err)
		}
	}
	return registry
}

func loadTestManifest(t *testing.T, content string) Manifest {
	t.Helper()
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "nap.yaml")
	if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLoadAndPlan(t *testing.T) {
	m := loadTestManifest(t, testManifest)
	root := m.ProjectRoot()
	if filepath.Base(root) != "project" || !filepath.IsAbs(root) {
		t.Fatalf("unexpected project root %s", root)
	}

	requests, err := Plan(m, builtinRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 3 {
		t.Fatalf("planned %d requests, want 3", len(requests))
	}

	libfoo := requests[0]
	if !reflect.DeepEqual(libfoo.Steps[1].Argv, []string{"ar", "rcs", "out/libfoo.a", "obj/a.o", "obj/b.o"}) {
		t.Fatalf("unexpected archive step %s", libfoo.Steps[1])
	}
	if libfoo.Reference.Kind != cc.Direct || !libfoo.Cacheable {
		t.Fatalf("unexpected libfoo request %+v", libfoo)
	}

	libbar := requests[1]
	if libbar.Reference.Kind != cc.ThinWithInputs || libbar.Cacheable {
		t.Fatalf("unexpected libbar request %+v", libbar)
	}
	if !reflect.DeepEqual(libbar.Steps[1].Argv, []string{"ar", "rcsT", "libbar.a", "../../obj/c.o"}) {
		t.Fatalf("unexpected thin archive step %s", libbar.Steps[1])
	}

	app := requests[2]
	argv := app.Steps[0].Argv
	if argv[len(argv)-3] != "-o" || argv[len(argv)-2] != filepath.Join(root, "out/App.dSYM") || argv[len(argv)-1] != filepath.Join(root, "out/App") {
		t.Fatalf("unexpected dsymutil step %s", app.Steps[0])
	}
}

func TestCellPaths(t *testing.T) {
	m := Manifest{Root: "/work", Cells: map[string]string{"vendor": "/opt/vendor"}}

	p, err := m.Path("vendor//lib/x.o")
	if err != nil {
		t.Fatal(err)
	}
	if p.Root() != "/opt/vendor" || p.Relative() != "lib/x.o" {
		t.Fatalf("unexpected path %s", p)
	}

	p, err = m.Path("obj/a.o")
	if err != nil {
		t.Fatal(err)
	}
	if p.Absolute() != "/work/obj/a.o" {
		t.Fatalf("unexpected path %s", p)
	}

	if _, err := m.Path("nowhere//x.o"); err == nil {
		t.Fatal("expected an error for an unknown cell")
	}
}

func TestPlanThinAcrossCells(t *testing.T) {
	m := loadTestManifest(t, `root: .
cells:
  vendor: /nonexistent/vendor
archives:
  - name: libmixed
    toolchain: gnu
    contents: thin
    output: out/libmixed.a
    inputs: [obj/a.o, vendor//lib/b.o]
`)

	requests, err := Plan(m, builtinRegistry(t))
	var precondition *core.PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected a PreconditionError, got %v", err)
	}
	if requests != nil {
		t.Fatal("requests returned on error")
	}
	if !strings.Contains(err.Error(), "libmixed") {
		t.Fatalf("error does not name the archive: %s", err)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "nap.yaml")
	if err := os.WriteFile(manifestPath, []byte("archive:\n  - name: typo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(manifestPath); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestSaveAndLoad(t *testing.T) {
	thin := cc.Thin
	m := Manifest{
		Root:     ".",
		Archives: []Archive{{Name: "libfoo", Contents: &thin, Output: "libfoo.a", Inputs: []string{"a.o"}}},
	}
	manifestPath := filepath.Join(t.TempDir(), "nested", "nap.yaml")
	if err := Save(manifestPath, m); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded.Archives[0].Contents != cc.Thin || loaded.Archives[0].Inputs[0] != "a.o" {
		t.Fatalf("unexpected manifest %+v", loaded)
	}
}

func TestGenerateAndDiff(t *testing.T) {
	m := Manifest{Root: "/work"}
	m.Archives = []Archive{
		{Name: "libfoo", Toolchain: "gnu", Output: "libfoo.a", Inputs: []string{"a.o", "b.o"}},
		{Name: "libold", Toolchain: "gnu", Output: "libold.a", Inputs: []string{"c.o"}},
	}
	oldRequests, err := Plan(m, builtinRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	oldLock := Generate(oldRequests)

	m.Archives = []Archive{
		{Name: "libfoo", Toolchain: "llvm", Output: "libfoo.a", Inputs: []string{"a.o", "b.o"}},
		{Name: "libnew", Toolchain: "gnu", Output: "libnew.a", Inputs: []string{"d.o"}},
	}
	newRequests, err := Plan(m, builtinRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	newLock := Generate(newRequests)

	diff, err := Diff(newLock, oldLock)
	if err != nil {
		t.Fatal(err)
	}
	if !diff.Differ || diff.NapVersion != "" {
		t.Fatalf("unexpected diff %+v", diff)
	}
	if len(diff.AddedRequests) != 1 || diff.AddedRequests[0].Name != "libnew" {
		t.Fatalf("unexpected added requests %+v", diff.AddedRequests)
	}
	if len(diff.RemovedRequests) != 1 || diff.RemovedRequests[0].Name != "libold" {
		t.Fatalf("unexpected removed requests %+v", diff.RemovedRequests)
	}
	if len(diff.ModifiedRequests) != 1 {
		t.Fatalf("unexpected modified requests %+v", diff.ModifiedRequests)
	}
	unified := diff.ModifiedRequests[0].Unified
	if !strings.Contains(unified, "-archive: (cd /work && ar rcs libfoo.a a.o b.o)") ||
		!strings.Contains(unified, "+archive: (cd /work && llvm-ar rcs libfoo.a a.o b.o)") {
		t.Fatalf("unexpected unified diff:\n%s", unified)
	}

	same, err := Diff(newLock, newLock)
	if err != nil {
		t.Fatal(err)
	}
	if same.Differ {
		t.Fatalf("identical locks differ: %+v", same)
	}
}

func TestGenerateRecordsThinDeps(t *testing.T) {
	output := core.NewPath("/work", "libfoo.a")
	ref := cc.ArchiveReference{Kind: cc.ThinWithInputs, Path: output, Inputs: []core.Path{core.NewPath("/work", "a.o")}}
	lock := Generate([]build.Request{{Name: "libfoo", Output: output, Reference: &ref}})

	if !reflect.DeepEqual(lock.Requests[0].Deps, []string{"/work/a.o"}) {
		t.Fatalf("unexpected deps %v", lock.Requests[0].Deps)
	}
}

func TestAbsoluteAndEscapingPaths(t *testing.T) {
	m := Manifest{Root: "/work", Cells: map[string]string{"vendor": "/opt/vendor"}}

	p, err := m.Path("/opt/vendor/lib/b.o")
	if err != nil {
		t.Fatal(err)
	}
	if p.Root() != "/" || p.Absolute() != "/opt/vendor/lib/b.o" {
		t.Fatalf("absolute path outside the root was rebased: root %s, %s", p.Root(), p)
	}

	p, err = m.Path("/work/obj/a.o")
	if err != nil {
		t.Fatal(err)
	}
	if p.Root() != "/work" || p.Relative() != "obj/a.o" {
		t.Fatalf("absolute path inside the root: root %s, %s", p.Root(), p.Relative())
	}

	for _, escaping := range []string{"../other/c.o", "obj/../../c.o", "vendor//../x.o"} {
		if _, err := m.Path(escaping); err == nil {
			t.Fatalf("%s should not resolve", escaping)
		}
	}
}

func TestPlanThinWithAbsoluteOutsideInput(t *testing.T) {
	m := Manifest{Root: "/nonexistent/work"}
	m.Archives = []Archive{{
		Name:      "libfoo",
		Toolchain: "gnu",
		Contents:  func() *cc.ArchiveContents { c := cc.Thin; return &c }(),
		Output:    "out/libfoo.a",
		Inputs:    []string{"obj/a.o", "/opt/vendor/lib/b.o"},
	}}

	requests, err := Plan(m, builtinRegistry(t))
	var precondition *core.PreconditionError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected a PreconditionError, got %v with %d requests", err, len(requests))
	}
	if precondition.Input != "/opt/vendor/lib/b.o" {
		t.Fatalf("error names input %q", precondition.Input)
	}

	m.Archives[0].Contents = nil
	requests, err = Plan(m, builtinRegistry(t))
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"ar", "rcs", "out/libfoo.a", "obj/a.o", "/opt/vendor/lib/b.o"}
	if !reflect.DeepEqual(requests[0].Steps[1].Argv, expected) {
		t.Fatalf("unexpected archive step %s", requests[0].Steps[1])
	}
}

func TestPlanRejectsDuplicateNames(t *testing.T) {
	m := Manifest{Root: "/work"}
	m.Archives = []Archive{
		{Name: "libfoo", Toolchain: "gnu", Output: "a/libfoo.a", Inputs: []string{"a.o"}},
		{Name: "libfoo", Toolchain: "gnu", Output: "b/libfoo.a", Inputs: []string{"b.o"}},
	}
	if _, err := Plan(m, builtinRegistry(t)); err == nil || !strings.Contains(err.Error(), "libfoo") {
		t.Fatalf("expected an error naming the duplicate, got %v", err)
	}

	m.Archives = m.Archives[:1]
	m.Dsyms = []Dsym{{Name: "libfoo", Toolchain: "darwin", Input: "App", Output: "App.dSYM"}}
	if _, err := Plan(m, builtinRegistry(t)); err == nil {
		t.Fatal("an archive and a dsym sharing a name should be rejected")
	}
}
