package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/log"
	"github.com/daedaleanai/nap/manifest"
	"github.com/daedaleanai/nap/util"
)

var buildCmd = &cobra.Command{
	Use:   "build [names...]",
	Short: "Builds the artifacts of the manifest",
	Long: `Builds the artifacts listed in the manifest (nap.yaml), or only the named ones.

The manifest is looked up in the working directory and its parents unless
given with --manifest. Different artifacts are built concurrently, the steps of
one artifact always run in order and stop at the first failure.`,
	Run: runBuildCmd,
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return completeRequestNames(), cobra.ShellCompDirectiveNoFileComp
	},
}

var manifestPath string

func init() {
	buildCmd.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Manifest to build from")
	buildCmd.Flags().IntVarP(&numJobs, "jobs", "j", 0, "Number of artifacts to build at once, defaults to the configured value")
	buildCmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Keeps building other artifacts after a failure")
	buildCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Prints the steps without running them")
	rootCmd.AddCommand(buildCmd)
}

func findManifest() string {
	if manifestPath != "" {
		return manifestPath
	}
	dir, err := util.FindFileUpwards(util.GetWorkingDir(), util.ManifestFileName)
	if err != nil {
		log.Fatal("%s\n", err)
	}
	return filepath.Join(dir, util.ManifestFileName)
}

func planManifest() []build.Request {
	m, err := manifest.Load(findManifest())
	if err != nil {
		log.Fatal("%s\n", err)
	}
	requests, err := manifest.Plan(m, getRegistry())
	if err != nil {
		log.Fatal("%s\n", err)
	}
	return requests
}

func selectRequests(requests []build.Request, names []string) []build.Request {
	if len(names) == 0 {
		return requests
	}
	byName := map[string]build.Request{}
	for _, request := range requests {
		byName[request.Name] = request
	}
	selected := []build.Request{}
	for _, name := range names {
		request, ok := byName[name]
		if !ok {
			log.Fatal("The manifest has no artifact called %q.\n", name)
		}
		selected = append(selected, request)
	}
	return selected
}

func completeRequestNames() []string {
	m, err := manifest.Load(findManifest())
	if err != nil {
		return nil
	}
	names := []string{}
	for _, archive := range m.Archives {
		names = append(names, archive.Name)
	}
	for _, dsym := range m.Dsyms {
		names = append(names, dsym.Name)
	}
	return names
}

func runBuildCmd(cmd *cobra.Command, args []string) {
	runRequests(selectRequests(planManifest(), args))
}
