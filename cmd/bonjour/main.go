// cmd/bonjour/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "server-bonjour"

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bonjour",
		Short:         "Greets members by voice when they join a voice channel",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newRunCommand(),
		newSayCommand(),
		newWarmCommand(),
		newKeyCommand(),
		newHistoryCommand(),
	)
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
