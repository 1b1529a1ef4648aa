package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daedaleanai/nap/config"
	"github.com/daedaleanai/nap/log"
)

var rootCmd = &cobra.Command{
	Use:   "nap",
	Short: "The native artifact pipeline (nap)",
	Long: `The native artifact pipeline (nap) plans and runs the external tools that
turn compiled object files into static archives and debug symbol bundles:
ar, ranlib, scrubbers and dsymutil.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().BoolVarP(&log.Verbose, "verbose", "v", false, "Print debug output")
	rootCmd.PersistentFlags().StringVar(&config.ConfigFile, "config", "", "Configuration file to use instead of the one in the configuration directory")
	if rootCmd.Execute() != nil {
		os.Exit(1)
	}
}
