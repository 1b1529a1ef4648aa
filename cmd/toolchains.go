package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/log"
)

var toolchainsCmd = &cobra.Command{
	Use:   "toolchains",
	Args:  cobra.NoArgs,
	Short: "Lists the available toolchains",
	Long:  `Lists the built-in and configured toolchains and the tools they run.`,
	Run:   runToolchains,
}

func init() {
	rootCmd.AddCommand(toolchainsCmd)
}

func describeTool(label string, tool *cc.Tool) {
	if !tool.Available() {
		log.Log("%s: none\n", label)
		return
	}
	log.Log("%s: %s\n", label, strings.Join(append(append([]string{}, tool.Command...), tool.Flags...), " "))
}

func runToolchains(cmd *cobra.Command, args []string) {
	registry := getRegistry()

	for _, toolchain := range registry.Toolchains() {
		log.IndentationLevel = 0
		if toolchain.Name == registry.DefaultName() {
			log.Log("%s (default):\n", toolchain.Name)
		} else {
			log.Log("%s:\n", toolchain.Name)
		}

		log.IndentationLevel = 1
		archiver := toolchain.Archiver
		log.Log("flavor: %s\n", archiver.Flavor)
		describeTool("archiver", &archiver.Tool)
		log.Log("thin archives: %t\n", archiver.SupportsThin)
		log.Log("default contents: %s\n", toolchain.DefaultContents)
		if archiver.RequiresRanlib {
			describeTool("ranlib", toolchain.Ranlib)
		}
		for _, scrubber := range archiver.Scrubbers {
			log.Log("scrubber %s: %s\n", scrubber.Name, strings.Join(scrubber.Command, " "))
		}
		describeTool("dsymutil", toolchain.Dsymutil)
	}
	log.IndentationLevel = 0
}
