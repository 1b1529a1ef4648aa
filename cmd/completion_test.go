package cmd

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestCompletionShells(t *testing.T) {
	expected := []string{"bash", "fish", "powershell", "zsh"}
	if !reflect.DeepEqual(completionShells(), expected) {
		t.Fatalf("unexpected shells %v", completionShells())
	}
}

func TestCompletionWritesToCommandOutput(t *testing.T) {
	for _, shell := range completionShells() {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"completion", shell})
		err := rootCmd.Execute()
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		if err != nil {
			t.Fatalf("%s: %s", shell, err)
		}
		if !strings.Contains(out.String(), "nap") {
			t.Fatalf("%s: script does not mention nap:\n%s", shell, out.String())
		}
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"completion", "tcsh"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an unsupported shell")
	}
}
