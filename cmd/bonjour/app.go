package main

import (
	"context"
	"fmt"

	"server-bonjour/internal/cache"
	"server-bonjour/internal/config"
	"server-bonjour/internal/greeting"
	"server-bonjour/internal/tts"
	"server-bonjour/pkg/log"
	"server-bonjour/pkg/tracing"
)

// setup loads the config and installs logging and tracing. The returned
// shutdown flushes traces.
func setup(ctx context.Context) (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if _, err := log.Setup(log.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		return nil, nil, err
	}

	shutdownTracing, err := tracing.Setup(ctx, appName, cfg.OTELEndpoint, cfg.OTELEnabled)
	if err != nil {
		log.Component("main").Warnf("Tracing disabled: %v", err)
	}

	return cfg, func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Component("main").Warnf("Tracing shutdown: %v", err)
		}
	}, nil
}

func newGreeter(cfg *config.Config) (*greeting.Greeter, error) {
	table, err := greeting.LoadTable(cfg.GreetingsFile)
	if err != nil {
		return nil, err
	}
	return greeting.NewGreeter(table, cfg.Locale, cfg.Location(), nil)
}

func newGreetingCache(ctx context.Context, cfg *config.Config) (*cache.GreetingCache, error) {
	synth, err := tts.New(ctx, tts.Options{
		Engine:       cfg.TTSEngine,
		Rate:         cfg.TTSRate,
		Burst:        cfg.TTSBurst,
		Timeout:      cfg.TTSTimeout,
		Retries:      cfg.TTSRetries,
		GTTSPath:     cfg.GTTSPath,
		PollyRegion:  cfg.PollyRegion,
		PollyVoice:   cfg.PollyVoice,
		GoogleAPIKey: cfg.GoogleAPIKey,
		GoogleVoice:  cfg.GoogleVoice,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s synthesizer: %w", cfg.TTSEngine, err)
	}
	return cache.New(cfg.VoiceDirectory, cfg.Locale, synth)
}
