package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/log"
	"github.com/daedaleanai/nap/manifest"
	"github.com/daedaleanai/nap/util"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Args:  cobra.NoArgs,
	Short: "Shows, records or diffs the steps planned for the manifest",
	Long:  `Shows, records or diffs the steps planned for the manifest.`,
}

var planOutput string

func init() {
	showCommand := &cobra.Command{
		Use:   "show [names...]",
		Short: "Prints the steps planned for the manifest",
		Long:  `Prints the steps planned for the manifest, in the order they would run.`,
		Run:   runPlanShow,
	}
	showCommand.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Manifest to plan")
	planCmd.AddCommand(showCommand)

	lockCommand := &cobra.Command{
		Use:   "lock",
		Args:  cobra.NoArgs,
		Short: "Records the steps planned for the manifest in a lock file",
		Long:  `Records the steps planned for the manifest in a lock file, which "nap plan diff" compares.`,
		Run:   runPlanLock,
	}
	lockCommand.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Manifest to plan")
	lockCommand.Flags().StringVarP(&planOutput, "output", "o", "nap.lock.yaml", "File where the lock will be stored")
	planCmd.AddCommand(lockCommand)

	diffCommand := &cobra.Command{
		Use:   "diff [newLock] oldLock",
		Args:  cobra.RangeArgs(1, 2),
		Short: "Diffs two lock files and lists their differences per artifact",
		Long:  `Diffs two lock files and lists their differences per artifact. If [newLock] is omitted, the current plan of the manifest is used.`,
		Run:   runPlanDiff,
	}
	diffCommand.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Manifest to plan when [newLock] is omitted")
	planCmd.AddCommand(diffCommand)

	rootCmd.AddCommand(planCmd)
}

func runPlanShow(cmd *cobra.Command, args []string) {
	printSteps(selectRequests(planManifest(), args))
}

func runPlanLock(cmd *cobra.Command, args []string) {
	lock := manifest.Generate(planManifest())
	if err := util.WriteYaml(planOutput, lock); err != nil {
		log.Fatal("%s\n", err)
	}
	log.Success("Done.\n")
}

func readLock(filePath string) manifest.Lock {
	lock := manifest.Lock{}
	if err := util.ReadYaml(filePath, &lock); err != nil {
		log.Fatal("%s\n", err)
	}
	return lock
}

func runPlanDiff(cmd *cobra.Command, args []string) {
	var newLock, oldLock manifest.Lock
	if len(args) == 1 {
		newLock = manifest.Generate(planManifest())
		oldLock = readLock(args[0])
	} else {
		newLock = readLock(args[0])
		oldLock = readLock(args[1])
	}

	diff, err := manifest.Diff(newLock, oldLock)
	if err != nil {
		log.Fatal("Error diffing plans: %s\n", err)
	}

	log.IndentationLevel = 0

	if !diff.Differ {
		log.Log("Plans are identical.\n")
		return
	}

	if diff.NapVersion != "" {
		log.Log("%s\n", diff.NapVersion)
	}

	printRequests := func(title string, requests []manifest.Request) {
		if len(requests) == 0 {
			return
		}
		log.Log("%s:\n", title)
		for _, request := range requests {
			log.IndentationLevel = 1
			log.Log("%s:\n", request.Name)
			log.IndentationLevel = 2
			for _, line := range request.Lines() {
				log.Log("%s\n", line)
			}
			log.IndentationLevel = 0
		}
		log.Log("\n")
	}
	printRequests("Added artifacts", diff.AddedRequests)
	printRequests("Removed artifacts", diff.RemovedRequests)

	if len(diff.ModifiedRequests) != 0 {
		const redDash = "\u001b[31;1m-\u001b[0m"
		const greenPlus = "\u001b[32;1m+\u001b[0m"

		log.Log("Modified artifacts:\n")
		for _, modified := range diff.ModifiedRequests {
			log.IndentationLevel = 1
			log.Log("%s:\n", modified.New.Name)
			log.IndentationLevel = 2
			for _, line := range strings.Split(strings.TrimRight(modified.Unified, "\n"), "\n") {
				switch {
				case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
					log.Log("%s\n", line)
				case strings.HasPrefix(line, "-"):
					log.Log("%s%s\n", redDash, line[1:])
				case strings.HasPrefix(line, "+"):
					log.Log("%s%s\n", greenPlus, line[1:])
				default:
					log.Log("%s\n", line)
				}
			}
			log.IndentationLevel = 0
		}
		log.Log("\n")
	}
}
