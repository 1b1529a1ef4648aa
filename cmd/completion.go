package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/daedaleanai/nap/config"
)

var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletion(w) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletion(w)
	},
}

func completionShells() []string {
	shells := maps.Keys(completionGenerators)
	slices.Sort(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Prints a shell completion script for nap",
	Long: `Prints a completion script for bash, zsh, fish or powershell.

  $ source <(nap completion bash)
  $ nap completion zsh > "${fpath[1]}/_nap"
  $ nap completion fish > ~/.config/fish/completions/nap.fish

Toolchain names are completed from the loaded configuration.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.ExactValidArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func completeToolchainNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	registry, err := config.GetConfig().Registry()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := []string{}
	for _, toolchain := range registry.Toolchains() {
		names = append(names, toolchain.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
	for _, command := range []*cobra.Command{archiveCmd, dsymCmd} {
		command.RegisterFlagCompletionFunc("toolchain", completeToolchainNames)
	}
}
