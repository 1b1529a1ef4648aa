package build

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/daedaleanai/nap/core"
)

type fakeExecutor struct {
	mu      sync.Mutex
	ran     []string
	failing map[string]int
	block   chan struct{}
}

func (e *fakeExecutor) Execute(ctx context.Context, step core.BuildStep) (core.StepResult, error) {
	e.mu.Lock()
	e.ran = append(e.ran, step.Argv[len(step.Argv)-1])
	code := e.failing[step.Argv[len(step.Argv)-1]]
	e.mu.Unlock()
	if e.block != nil && code == 0 {
		select {
		case <-e.block:
		case <-ctx.Done():
			return core.StepResult{}, ctx.Err()
		}
	}
	return core.StepResult{ExitCode: code}, nil
}

func (e *fakeExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ran)
}

func request(name string, steps ...string) Request {
	r := Request{Name: name, Output: core.NewPath("/work", name)}
	for _, step := range steps {
		r.Steps = append(r.Steps, core.NewBuildStep(step, "/work", []string{"true", step}, nil))
	}
	return r
}

type recordingProgress struct {
	mu       sync.Mutex
	total    int
	started  int
	finished int
	stopped  bool
}

func (p *recordingProgress) Start(total int) { p.total = total }
func (p *recordingProgress) Stop()           { p.stopped = true }

func (p *recordingProgress) Started(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started++
}

func (p *recordingProgress) Finished(string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
}

func TestRunAllRequests(t *testing.T) {
	executor := &fakeExecutor{}
	progress := &recordingProgress{}
	runner := Runner{Executor: executor, Jobs: 4, Progress: progress}

	result, err := runner.Run(context.Background(), []Request{
		request("liba", "a1", "a2"),
		request("libb", "b1", "b2", "b3"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Built) != 2 || result.Built[0] != "liba" || result.Built[1] != "libb" {
		t.Fatalf("unexpected result %+v", result)
	}
	if executor.count() != 5 {
		t.Fatalf("ran %d steps, want 5", executor.count())
	}
	if progress.total != 2 || progress.started != 2 || progress.finished != 2 || !progress.stopped {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestRunStopsRequestAtFailedStep(t *testing.T) {
	executor := &fakeExecutor{failing: map[string]int{"a1": 1}}
	runner := Runner{Executor: executor, Jobs: 1, KeepGoing: true}

	result, err := runner.Run(context.Background(), []Request{
		request("liba", "a1", "a2"),
		request("libb", "b1"),
	})

	var failure *core.StepExecutionFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected a StepExecutionFailure, got %v", err)
	}
	if failure.Step.ShortName != "a1" || failure.ExitCode != 1 {
		t.Fatalf("unexpected failure %v", failure)
	}
	if len(result.Failed) != 1 || result.Failed[0].Request != "liba" {
		t.Fatalf("unexpected failures %+v", result.Failed)
	}
	if len(result.Built) != 1 || result.Built[0] != "libb" {
		t.Fatalf("keep going did not build libb: %+v", result)
	}
	for _, ran := range executor.ran {
		if ran == "a2" {
			t.Fatal("step after a failure was run")
		}
	}
}

func TestRunWithoutKeepGoingSkipsPending(t *testing.T) {
	executor := &fakeExecutor{failing: map[string]int{"a1": 2}}
	runner := Runner{Executor: executor, Jobs: 1}

	result, err := runner.Run(context.Background(), []Request{
		request("liba", "a1"),
		request("libb", "b1"),
		request("libc", "c1"),
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(result.Failed) != 1 || len(result.Built) != 0 || len(result.Skipped) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if executor.count() != 1 {
		t.Fatalf("ran %v after the first failure", executor.ran)
	}
}

func TestRunRejectsDuplicateOutputs(t *testing.T) {
	executor := &fakeExecutor{}
	runner := Runner{Executor: executor}

	_, err := runner.Run(context.Background(), []Request{
		request("liba", "a1"),
		request("liba", "a2"),
	})
	if err == nil {
		t.Fatal("expected an error for requests sharing an output")
	}
	if executor.count() != 0 {
		t.Fatal("steps ran despite conflicting outputs")
	}
}

func TestRunCancelled(t *testing.T) {
	executor := &fakeExecutor{block: make(chan struct{})}
	runner := Runner{Executor: executor, Jobs: 2}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		_, err := runner.Run(ctx, []Request{request("liba", "a1"), request("libb", "b1")})
		done <- err
	}()
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
