package manifest

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/util"
)

type Step struct {
	Name string            `yaml:"name"`
	Root string            `yaml:"root"`
	Argv []string          `yaml:"argv"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type Request struct {
	Name      string   `yaml:"name"`
	Output    string   `yaml:"output"`
	Cacheable bool     `yaml:"cacheable"`
	Deps      []string `yaml:"deps,omitempty"`
	Steps     []Step   `yaml:"steps"`
}

// Lock records the exact steps planned for a manifest, so that plans can be
// compared across toolchain or manifest changes.
type Lock struct {
	NapVersion string    `yaml:"napVersion"`
	Requests   []Request `yaml:"requests"`
}

type RequestDiff struct {
	New, Old Request
	// Unified is a unified diff of the rendered requests.
	Unified string
}

type DiffResult struct {
	Differ                         bool
	NapVersion                     string
	ModifiedRequests               []RequestDiff
	AddedRequests, RemovedRequests []Request
}

// Generate records the planned requests.
func Generate(requests []build.Request) Lock {
	lock := Lock{NapVersion: util.NapVersion.String()}
	for _, request := range requests {
		record := Request{
			Name:      request.Name,
			Output:    request.Output.Absolute(),
			Cacheable: request.Cacheable,
		}
		if request.Reference != nil {
			for _, dep := range request.Reference.Deps()[1:] {
				record.Deps = append(record.Deps, dep.Absolute())
			}
		}
		for _, step := range request.Steps {
			record.Steps = append(record.Steps, stepRecord(step))
		}
		lock.Requests = append(lock.Requests, record)
	}
	return lock
}

func stepRecord(step core.BuildStep) Step {
	record := Step{
		Name: step.ShortName,
		Root: step.WorkingRoot,
		Argv: append([]string{}, step.Argv...),
	}
	if len(step.Env) > 0 {
		record.Env = map[string]string{}
		for k, v := range step.Env {
			record.Env[k] = v
		}
	}
	return record
}

// Lines renders the request one fact per line.
func (r Request) Lines() []string {
	lines := []string{
		fmt.Sprintf("output: %s", r.Output),
		fmt.Sprintf("cacheable: %t", r.Cacheable),
	}
	for _, dep := range r.Deps {
		lines = append(lines, fmt.Sprintf("dep: %s", dep))
	}
	for _, step := range r.Steps {
		s := core.BuildStep{ShortName: step.Name, WorkingRoot: step.Root, Argv: step.Argv, Env: step.Env}
		lines = append(lines, s.String())
		if env := s.EnvList(); len(env) > 0 {
			lines = append(lines, fmt.Sprintf("  env: %s", strings.Join(env, " ")))
		}
	}
	return lines
}

func (r Request) equal(other Request) bool {
	a, b := r.Lines(), other.Lines()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func diffRequest(newRequest, oldRequest Request) (RequestDiff, error) {
	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(oldRequest.Lines()),
		B:        withNewlines(newRequest.Lines()),
		FromFile: "old/" + oldRequest.Name,
		ToFile:   "new/" + newRequest.Name,
		Context:  2,
	})
	if err != nil {
		return RequestDiff{}, err
	}
	return RequestDiff{New: newRequest, Old: oldRequest, Unified: unified}, nil
}

func withNewlines(lines []string) []string {
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		result = append(result, line+"\n")
	}
	return result
}

// Diff compares two locks request by request.
func Diff(newLock, oldLock Lock) (DiffResult, error) {
	result := DiffResult{}

	if newLock.NapVersion != oldLock.NapVersion {
		result.Differ = true
		result.NapVersion = fmt.Sprintf("nap versions changed from %s to %s", oldLock.NapVersion, newLock.NapVersion)
	}

	findRequestByName := func(name string, requests []Request) (Request, bool) {
		for _, request := range requests {
			if request.Name == name {
				return request, true
			}
		}
		return Request{}, false
	}

	// Added and modified requests come from the new lock, a second pass through
	// the old one finds the removed requests.
	for _, request := range newLock.Requests {
		if matchingOldRequest, found := findRequestByName(request.Name, oldLock.Requests); found {
			if !request.equal(matchingOldRequest) {
				result.Differ = true
				requestDiff, err := diffRequest(request, matchingOldRequest)
				if err != nil {
					return result, err
				}
				result.ModifiedRequests = append(result.ModifiedRequests, requestDiff)
			}
		} else {
			result.Differ = true
			result.AddedRequests = append(result.AddedRequests, request)
		}
	}

	for _, request := range oldLock.Requests {
		if _, found := findRequestByName(request.Name, newLock.Requests); !found {
			result.Differ = true
			result.RemovedRequests = append(result.RemovedRequests, request)
		}
	}

	return result, nil
}
