package tts

import (
	"context"

	"golang.org/x/time/rate"

	"server-bonjour/pkg/retrylimit"
)

// Retrying retries cloud engines on 429 and 5xx answers. Other failures,
// and the gtts engine, are never retried.
type Retrying struct {
	next Synthesizer
	lim  *retrylimit.AdaptiveLimiter
	cfg  retrylimit.RetryConfig
}

// NewRetrying allows up to attempts calls per synthesis; ceiling bounds the
// request rate the limiter recovers to after being throttled.
func NewRetrying(next Synthesizer, attempts int, ceiling rate.Limit) *Retrying {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	return &Retrying{
		next: next,
		lim:  retrylimit.NewAdaptiveLimiter(ceiling, 1, ceiling, 1, 0.5),
		cfg:  cfg,
	}
}

func (r *Retrying) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	var path string
	err := retrylimit.WithRetryConfig(ctx, func() error {
		p, err := r.next.Synthesize(ctx, text, locale, outputPath)
		if err != nil {
			return err
		}
		path = p
		return nil
	}, r.lim, r.cfg)
	return path, err
}
