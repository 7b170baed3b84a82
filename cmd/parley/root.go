package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Agent conversation orchestration gateway",
	Long: "Parley runs agent conversations: it streams model output, detects\n" +
		"embedded capability calls, executes them against a workspace, and\n" +
		"serves the whole loop over an HTTP gateway.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults to $PARLEY_CONFIG)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("parley %s (commit: %s)\n", version, commit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parley %s (commit: %s)\n", version, commit)
	},
}
