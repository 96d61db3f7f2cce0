package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"server-bonjour/internal/config"
	"server-bonjour/internal/storage"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "history <guild id>",
		Short:   "List the most recent greetings of a guild",
		Example: `bonjour history 123456789012345678`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.StoragePath, cfg.HistoryLimit)
			if err != nil {
				return err
			}
			defer store.Close()

			welcomes, err := store.FetchWelcomes(args[0])
			if err != nil {
				return err
			}
			if len(welcomes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No greetings recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tUSER\tCHANNEL\tTEXT\tKEY")
			for _, r := range welcomes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Datetime.In(cfg.Location()).Format("2006-01-02 15:04"), r.UserID, r.ChannelID, r.Text, r.AssetKey)
			}
			return w.Flush()
		},
	}
}
