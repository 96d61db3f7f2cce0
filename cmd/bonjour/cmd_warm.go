package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"server-bonjour/pkg/log"
	"server-bonjour/pkg/util"
)

func newWarmCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:     "warm <display name>...",
		Short:   "Synthesize the day and evening greetings of several names ahead of time",
		Example: `bonjour warm Alice Bob "Jean-Luc"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, shutdown, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			greeter, err := newGreeter(cfg)
			if err != nil {
				return err
			}
			assets, err := newGreetingCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			var texts []string
			for _, name := range args {
				texts = append(texts, greeter.Variants(name)...)
			}

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			err = util.Parallel(cmd.Context(), texts, workers, func(ctx context.Context, text string) error {
				path, err := assets.GetOrCreate(ctx, text)
				if err != nil {
					return fmt.Errorf("%q: %w", text, err)
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s\t%s\n", text, path)
				return nil
			})
			if err != nil {
				return err
			}

			log.Component("main").Infof("Warmed %d greeting(s)", len(texts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "concurrent syntheses")
	return cmd
}
