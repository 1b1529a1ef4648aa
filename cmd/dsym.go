package cmd

import (
	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/apple"
	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/log"
	"github.com/daedaleanai/nap/util"
)

var dsymCmd = &cobra.Command{
	Use:   "dsym [-o bundle] binary",
	Args:  cobra.ExactArgs(1),
	Short: "Extracts the debug symbols of a linked binary into a .dSYM bundle",
	Long: `Extracts the debug symbols of a linked binary into a .dSYM bundle.

The binary must already be linked. dsymutil runs with exactly the environment
configured for the toolchain.`,
	Run: runDsym,
}

var dsymOutput string

func init() {
	dsymCmd.Flags().StringVarP(&dsymOutput, "output", "o", "", "Bundle to create, defaults to the binary with a .dSYM extension")
	dsymCmd.Flags().StringVarP(&toolchainName, "toolchain", "t", "", "Toolchain to use, defaults to the configured default")
	dsymCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Prints the step without running it")
	rootCmd.AddCommand(dsymCmd)
}

func runDsym(cmd *cobra.Command, args []string) {
	root := util.GetWorkingDir()
	input := pathArg(root, args[0])
	output := input.WithExt("dSYM")
	if dsymOutput != "" {
		output = pathArg(root, dsymOutput)
	}

	spec, err := apple.DsymSpecFor(getToolchain(), input, output)
	if err != nil {
		log.Fatal("%s\n", err)
	}
	if !dryRun && !util.FileExists(input.Absolute()) {
		log.Fatal("%s does not exist, link it first.\n", input)
	}

	runRequests([]build.Request{{
		Name:      input.Base(),
		Output:    output,
		Steps:     []core.BuildStep{apple.PlanDsym(spec)},
		Cacheable: true,
	}})
}
