package cmd

import (
	"os"
	"os/exec"
	"testing"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/core"
)

func TestPathArg(t *testing.T) {
	for _, tc := range []struct {
		arg, root, rel string
	}{
		{"obj/a.o", "/work", "obj/a.o"},
		{"/work/obj/a.o", "/work", "obj/a.o"},
		{"/opt/vendor/b.o", "/", "opt/vendor/b.o"},
		{"/workshop/c.o", "/", "workshop/c.o"},
	} {
		p := pathArg("/work", tc.arg)
		if p.Root() != tc.root || p.Relative() != tc.rel {
			t.Fatalf("%s: got root %s and %s", tc.arg, p.Root(), p.Relative())
		}
	}
}

func TestSelectRequests(t *testing.T) {
	requests := []build.Request{
		{Name: "liba", Output: core.NewPath("/work", "liba.a")},
		{Name: "libb", Output: core.NewPath("/work", "libb.a")},
	}
	if len(selectRequests(requests, nil)) != 2 {
		t.Fatal("all requests should be selected without names")
	}
	selected := selectRequests(requests, []string{"libb"})
	if len(selected) != 1 || selected[0].Name != "libb" {
		t.Fatalf("unexpected selection %v", selected)
	}
}

func TestSelectUnknownRequest(t *testing.T) {
	if os.Getenv("CHILD") == "1" {
		selectRequests([]build.Request{{Name: "liba"}}, []string{"libz"})
		return
	}
	cmd := exec.Command(os.Args[0], "-test.run=TestSelectUnknownRequest")
	cmd.Env = append(os.Environ(), "CHILD=1")
	err := cmd.Run()
	if e, ok := err.(*exec.ExitError); !ok || e.Success() {
		t.Fatalf("process ran with err %v, want exit status 1", err)
	}
}
