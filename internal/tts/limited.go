package tts

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limited spaces calls to the wrapped engine with a token bucket and bounds
// each call with a timeout.
type Limited struct {
	next    Synthesizer
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited wraps next. A zero timeout disables the per-call bound.
func NewLimited(next Synthesizer, limit rate.Limit, burst int, timeout time.Duration) *Limited {
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

func (l *Limited) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", ErrSynthesisUnavailable, err)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Synthesize(ctx, text, locale, outputPath)
}
