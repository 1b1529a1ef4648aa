package cc

import (
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestArchiverFlavors(t *testing.T) {
	for _, tc := range []struct {
		flavor         ArchiverFlavor
		command        string
		supportsThin   bool
		requiresRanlib bool
	}{
		{Gnu, "ar", true, false},
		{Llvm, "llvm-ar", true, false},
		{Bsd, "ar", false, true},
		{Darwin, "ar", false, true},
	} {
		archiver := ArchiverFor(tc.flavor)
		if archiver.Command[0] != tc.command {
			t.Fatalf("%s: command is %v", tc.flavor, archiver.Command)
		}
		if archiver.SupportsThin != tc.supportsThin || archiver.RequiresRanlib != tc.requiresRanlib {
			t.Fatalf("%s: unexpected capabilities %+v", tc.flavor, archiver)
		}
	}

	archiver := ArchiverFor(Llvm, "/opt/llvm/bin/llvm-ar")
	if !reflect.DeepEqual(archiver.Command, []string{"/opt/llvm/bin/llvm-ar"}) {
		t.Fatalf("command override ignored: %v", archiver.Command)
	}
	if !reflect.DeepEqual(archiver.ArchiveOptions(Thin), []string{"rcsT"}) {
		t.Fatalf("unexpected thin options %v", archiver.ArchiveOptions(Thin))
	}
}

func TestParseArchiverFlavor(t *testing.T) {
	flavor, err := ParseArchiverFlavor("Darwin")
	if err != nil {
		t.Fatal(err)
	}
	if flavor != Darwin {
		t.Fatalf("parsed %s", flavor)
	}

	_, err = ParseArchiverFlavor("msvc")
	if err == nil || !strings.Contains(err.Error(), `"gnu", "llvm", "bsd", "darwin"`) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestArchiveContentsYaml(t *testing.T) {
	var out struct {
		Contents ArchiveContents `yaml:"contents"`
	}
	if err := yaml.Unmarshal([]byte("contents: thin\n"), &out); err != nil {
		t.Fatal(err)
	}
	if out.Contents != Thin {
		t.Fatalf("decoded %s", out.Contents)
	}
	if err := yaml.Unmarshal([]byte("contents: fat\n"), &out); err == nil {
		t.Fatal("expected an error for unknown contents")
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "contents: thin\n" {
		t.Fatalf("encoded %q", data)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	for _, toolchain := range BuiltinToolchains() {
		if err := registry.Register(toolchain); err != nil {
			t.Fatal(err)
		}
	}

	if err := registry.Register(Toolchain{Name: "gnu"}); err == nil {
		t.Fatal("expected an error when registering a toolchain twice")
	}
	if _, err := registry.Lookup(""); err == nil {
		t.Fatal("expected an error without a default toolchain")
	}

	if err := registry.SetDefault("llvm"); err != nil {
		t.Fatal(err)
	}
	toolchain, err := registry.Lookup("")
	if err != nil {
		t.Fatal(err)
	}
	if toolchain.Name != "llvm" {
		t.Fatalf("default toolchain is %s", toolchain.Name)
	}

	_, err = registry.Lookup("msvc")
	if err == nil || !strings.Contains(err.Error(), `"bsd", "darwin", "gnu", "llvm"`) {
		t.Fatalf("unexpected error %v", err)
	}

	names := []string{}
	for _, toolchain := range registry.Toolchains() {
		names = append(names, toolchain.Name)
	}
	if !reflect.DeepEqual(names, []string{"bsd", "darwin", "gnu", "llvm"}) {
		t.Fatalf("unexpected toolchains %v", names)
	}
}
