// Package tts turns greeting text into audio files.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrSynthesisUnavailable means the engine could not be run at all.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")
	// ErrSynthesisFailed means the engine ran but produced no usable audio.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// Synthesizer writes spoken text to outputPath and returns the path written.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, locale, outputPath string) (string, error)
}

// Options selects and configures an engine.
type Options struct {
	Engine  string
	Rate    float64
	Burst   int
	Timeout time.Duration
	// Retries is the number of attempts cloud engines get per greeting.
	Retries int

	GTTSPath string

	PollyRegion string
	PollyVoice  string

	GoogleAPIKey string
	GoogleVoice  string
}

// New builds the configured engine, wrapped with output validation and a
// shared rate limit.
func New(ctx context.Context, opts Options) (Synthesizer, error) {
	var (
		engine Synthesizer
		err    error
	)

	switch strings.ToLower(opts.Engine) {
	case "", "gtts":
		engine = NewGTTS(opts.GTTSPath)
	case "polly":
		engine, err = NewPolly(opts.PollyRegion, opts.PollyVoice)
		engine = retried(engine, opts)
	case "google":
		engine, err = NewGoogle(ctx, opts.GoogleAPIKey, opts.GoogleVoice)
		engine = retried(engine, opts)
	default:
		return nil, fmt.Errorf("unknown tts engine %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	limit := rate.Limit(opts.Rate)
	if opts.Rate <= 0 {
		limit = rate.Inf
	}
	return NewLimited(Validate(engine), limit, opts.Burst, opts.Timeout), nil
}

func retried(engine Synthesizer, opts Options) Synthesizer {
	if opts.Retries <= 1 {
		return engine
	}
	ceiling := rate.Limit(opts.Rate * float64(max(opts.Burst, 1)))
	if opts.Rate <= 0 {
		ceiling = 10
	}
	return NewRetrying(engine, opts.Retries, ceiling)
}

// languageTag expands a bare language code to the region-qualified tag cloud
// engines expect. Tags that already carry a region pass through.
func languageTag(locale string) string {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if strings.Contains(locale, "-") {
		return locale
	}
	switch strings.ToLower(locale) {
	case "en":
		return "en-US"
	case "pt":
		return "pt-BR"
	case "":
		return "fr-FR"
	default:
		l := strings.ToLower(locale)
		return l + "-" + strings.ToUpper(l)
	}
}
