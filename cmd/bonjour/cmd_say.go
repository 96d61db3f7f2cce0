package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newSayCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:     "say <display name>",
		Short:   "Synthesize (or reuse) the greeting for a name and print its path",
		Example: `bonjour say Alice --at 18:30`,
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

			text, err := greetingText(greeter, strings.Join(args, " "), at, cfg.Location())
			if err != nil {
				return err
			}

			assets, err := newGreetingCache(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			path, err := assets.GetOrCreate(cmd.Context(), text)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", text, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "local time of day (HH:MM) to pick the greeting for")
	return cmd
}

type textRenderer interface {
	Text(name string) string
	TextAt(name string, t time.Time) string
}

// greetingText renders name now, or at the HH:MM given in at.
func greetingText(g textRenderer, name, at string, loc *time.Location) (string, error) {
	if at == "" {
		return g.Text(name), nil
	}
	clock, err := time.ParseInLocation("15:04", at, loc)
	if err != nil {
		return "", fmt.Errorf("invalid --at %q, want HH:MM", at)
	}
	now := time.Now().In(loc)
	t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return g.TextAt(name, t), nil
}
