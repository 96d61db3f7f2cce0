package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"server-bonjour/internal/greeting"
)

func newKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "key <greeting text>",
		Short:   "Print the cache key of a greeting text",
		Example: `bonjour key "Bonjour Alice"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), greeting.KeyOf(strings.Join(args, " ")))
			return nil
		},
	}
}
