package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storyctl",
		Short:         "Operator tooling for the story service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(attemptsCmd())
	rootCmd.AddCommand(migrateDDBCmd())
	rootCmd.AddCommand(signWebhookCmd())
	return rootCmd
}
