package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/config"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/log"
	"github.com/daedaleanai/nap/util"
)

var toolchainName string
var numJobs int
var keepGoing bool
var dryRun bool

func getRegistry() *cc.Registry {
	registry, err := config.GetConfig().Registry()
	if err != nil {
		log.Fatal("Invalid toolchain configuration: %s\n", err)
	}
	return registry
}

func getToolchain() cc.Toolchain {
	toolchain, err := getRegistry().Lookup(toolchainName)
	if err != nil {
		log.Fatal("%s\n", err)
	}
	return toolchain
}

// pathArg turns a command line path into a Path below root. Absolute paths
// outside root live under the filesystem root instead.
func pathArg(root, p string) core.Path {
	path, err := core.ResolvePath(root, p)
	if err != nil {
		log.Fatal("%s\n", err)
	}
	return path
}

// interruptContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. Cancelling it kills the running steps.
func interruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			fmt.Fprintln(os.Stderr, "Interrupted: killing running steps...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}

func printSteps(requests []build.Request) {
	for _, request := range requests {
		log.IndentationLevel = 0
		log.Log("%s:\n", request.Name)
		log.IndentationLevel = 1
		for _, step := range request.Steps {
			log.Log("%s\n", step)
			if env := step.EnvList(); len(env) > 0 {
				log.IndentationLevel = 2
				log.Log("env: %s\n", strings.Join(env, " "))
				log.IndentationLevel = 1
			}
		}
	}
	log.IndentationLevel = 0
}

// runRequests executes the requests, or only prints their steps for a dry run.
func runRequests(requests []build.Request) {
	if dryRun {
		printSteps(requests)
		return
	}

	jobs := numJobs
	if jobs <= 0 {
		jobs = config.GetConfig().Jobs
	}
	runner := build.Runner{
		Executor:  core.ProcessExecutor{},
		Jobs:      jobs,
		KeepGoing: keepGoing,
	}
	if !log.Verbose && util.IsTerminal(os.Stderr) {
		runner.Progress = build.NewSpinnerProgress(os.Stderr)
	}

	ctx, stop := interruptContext()
	defer stop()

	result, err := runner.Run(ctx, requests)
	for _, failure := range result.Failed {
		reportFailure(failure)
	}
	if len(result.Skipped) > 0 {
		log.Warning("Skipped %s.\n", strings.Join(result.Skipped, ", "))
	}
	if err != nil {
		stop()
		if len(result.Failed) == 0 && len(result.Skipped) == 0 {
			log.Fatal("%s\n", err)
		}
		log.Fatal("%d of %d requests failed.\n", len(requests)-len(result.Built), len(requests))
	}
	log.Success("Built %d of %d requests.\n", len(result.Built), len(requests))
}

func reportFailure(failure *build.RequestError) {
	var stepFailure *core.StepExecutionFailure
	if !errors.As(failure.Err, &stepFailure) {
		log.Error("%s\n", failure)
		return
	}
	log.Error("%s: %s\n", failure.Request, stepFailure)
	log.IndentationLevel = 1
	log.Log("%s\n", stepFailure.Step)
	if len(stepFailure.Output) > 0 {
		log.Log("%s\n", strings.TrimRight(string(stepFailure.Output), "\n"))
	}
	log.IndentationLevel = 0
}
