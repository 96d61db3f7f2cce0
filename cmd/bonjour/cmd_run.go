package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"server-bonjour/internal/discord"
	"server-bonjour/internal/storage"
	"server-bonjour/internal/voice"
	"server-bonjour/internal/welcome"
	"server-bonjour/pkg/log"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and greet members joining voice channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, shutdown, err := setup(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	l := log.Component("main")
	l.Infof("Starting %v bot...", appName)

	if err := cfg.RequireToken(); err != nil {
		return err
	}

	store, err := storage.New(cfg.StoragePath, cfg.HistoryLimit)
	if err != nil {
		return err
	}
	defer store.Close()

	greeter, err := newGreeter(cfg)
	if err != nil {
		return err
	}

	assets, err := newGreetingCache(ctx, cfg)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	manager := voice.NewManager(ctx, voice.DiscordDialer{Session: session})
	ffmpeg := cfg.FFmpegPath

	svc := welcome.NewService(welcome.Options{
		Filter:  welcome.NewFilter(cfg.Denylist, cfg.AnnounceMoves),
		Greeter: greeter,
		Cache:   assets,
		Announcer: welcome.NewAnnouncer(manager, func(path string) voice.Source {
			return voice.NewFileSource(path, ffmpeg)
		}),
		History:  store,
		Names:    discord.Members{Session: session},
		Cooldown: cfg.Cooldown,
	})

	bot := discord.NewBot(session, svc, manager)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		l.Infof("Received signal %s, shutting down...", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			l.Errorf("Discord bot error: %v", err)
			return err
		}
	case <-ctx.Done():
	}

	// wait for Run to leave voice and close the session
	<-errCh
	l.Info("Discord bot exited cleanly")
	return nil
}
