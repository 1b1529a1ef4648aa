package cmd

import (
	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/build"
	"github.com/daedaleanai/nap/cc"
	"github.com/daedaleanai/nap/core"
	"github.com/daedaleanai/nap/log"
	"github.com/daedaleanai/nap/util"
)

var archiveCmd = &cobra.Command{
	Use:   "archive -o output [--thin] inputs...",
	Args:  cobra.ArbitraryArgs,
	Short: "Creates a static archive from object files",
	Long: `Creates a static archive from object files.

Paths are relative to the project root (--root, by default the working
directory). Thin archives only record the paths of their members, relative to
the archive, so all of their inputs must live below the project root.`,
	Run: runArchive,
}

var archiveOutput string
var archiveRoot string
var archiveContents string
var archiveThin bool
var archiveNotCacheable bool
var archiveShowReference bool

func init() {
	archiveCmd.Flags().StringVarP(&archiveOutput, "output", "o", "", "Archive to create")
	archiveCmd.Flags().StringVar(&archiveRoot, "root", "", "Project root, defaults to the working directory")
	archiveCmd.Flags().StringVar(&archiveContents, "contents", "", "Archive contents: normal or thin, defaults to the toolchain's")
	archiveCmd.Flags().BoolVar(&archiveThin, "thin", false, "Shorthand for --contents thin")
	archiveCmd.Flags().BoolVar(&archiveNotCacheable, "no-cache", false, "Marks the archive as not cacheable")
	archiveCmd.Flags().BoolVar(&archiveShowReference, "show-reference", false, "Prints the paths dependents of the archive depend on")
	archiveCmd.Flags().StringVarP(&toolchainName, "toolchain", "t", "", "Toolchain to use, defaults to the configured default")
	archiveCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Prints the steps without running them")
	archiveCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(archiveCmd)
}

func runArchive(cmd *cobra.Command, args []string) {
	root := archiveRoot
	if root == "" {
		root = util.GetWorkingDir()
	}

	opts := cc.ArchiveOptions{}
	if archiveThin {
		archiveContents = cc.Thin.String()
	}
	if archiveContents != "" {
		contents, err := cc.ParseArchiveContents(archiveContents)
		if err != nil {
			log.Fatal("%s\n", err)
		}
		opts.Contents = &contents
	}
	if archiveNotCacheable {
		cacheable := false
		opts.Cacheable = &cacheable
	}

	output := pathArg(root, archiveOutput)
	inputs := []core.Path{}
	for _, arg := range args {
		inputs = append(inputs, pathArg(root, arg))
	}

	rule, err := cc.NewArchiveRule(output.Base(), getToolchain(), output, inputs, opts)
	if err != nil {
		log.Fatal("%s\n", err)
	}
	steps, err := rule.Steps()
	if err != nil {
		log.Fatal("%s\n", err)
	}
	if rule.Cacheable() && !rule.SuggestCacheable() {
		log.Debug("%s is a thin archive, its cached copy would not carry the members.\n", rule)
	}

	ref := rule.Reference()
	runRequests([]build.Request{{
		Name:      rule.Name(),
		Output:    output,
		Steps:     steps,
		Reference: &ref,
		Cacheable: rule.Cacheable(),
	}})

	if archiveShowReference {
		for _, dep := range ref.Deps() {
			log.Log("%s\n", dep.Absolute())
		}
	}
}
