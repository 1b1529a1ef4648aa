// Package build runs the steps planned for a set of requests.
package build

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/log"
)

// Request is one planned artifact: the steps producing Output, run in order.
type Request struct {
	Name   string
	Output core.Path
	Steps  []core.BuildStep
	// Reference is set for archives.
	Reference *cc.ArchiveReference
	Cacheable bool
}

// RequestError reports the failure of one request.
type RequestError struct {
	Request string
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Request, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Result lists what happened to each request, in request order.
type Result struct {
	Built   []string
	Failed  []*RequestError
	Skipped []string
}

// Runner executes requests. Different requests may run concurrently, the steps
// of one request never do.
type Runner struct {
	Executor core.Executor
	// Jobs limits the number of requests running at once. Values below one
	// mean one.
	Jobs int
	// KeepGoing lets other requests continue after one has failed.
	KeepGoing bool
	Progress  Progress
}

type outcome int

const (
	pending outcome = iota
	built
	failed
)

// Run executes all requests and returns what happened to each of them. The
// error joins the failures of all requests. Requests writing the same output
// are rejected before anything runs.
func (r *Runner) Run(ctx context.Context, requests []Request) (Result, error) {
	if err := checkOutputs(requests); err != nil {
		return Result{}, err
	}

	progress := r.Progress
	if progress == nil {
		progress = noProgress{}
	}
	progress.Start(len(requests))
	defer progress.Stop()

	outcomes := make([]outcome, len(requests))
	errs := make([]error, len(requests))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(r.Jobs, 1))
	for i := range requests {
		i := i
		request := requests[i]
		// Go blocks while the limit is reached, so a failure may already have
		// cancelled the group.
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			progress.Started(request.Name)
			err := core.RunSteps(groupCtx, r.Executor, request.Steps)
			progress.Finished(request.Name, err)
			if err != nil {
				outcomes[i] = failed
				errs[i] = &RequestError{Request: request.Name, Err: err}
				if !r.KeepGoing {
					return errs[i]
				}
				return nil
			}
			outcomes[i] = built
			log.Debug("Built %s.\n", request.Name)
			return nil
		})
	}
	_ = group.Wait()

	result := Result{}
	for i, request := range requests {
		switch outcomes[i] {
		case built:
			result.Built = append(result.Built, request.Name)
		case failed:
			result.Failed = append(result.Failed, errs[i].(*RequestError))
		default:
			result.Skipped = append(result.Skipped, request.Name)
		}
	}
	if err := ctx.Err(); err != nil && len(result.Failed) == 0 && len(result.Skipped) > 0 {
		return result, err
	}
	return result, errors.Join(errs...)
}

func checkOutputs(requests []Request) error {
	owners := map[string]string{}
	for _, request := range requests {
		if request.Output == nil {
			return fmt.Errorf("request %s has no output", request.Name)
		}
		output := request.Output.Absolute()
		if owner, ok := owners[output]; ok {
			return fmt.Errorf("requests %s and %s both write %s", owner, request.Name, output)
		}
		owners[output] = request.Name
	}
	return nil
}
