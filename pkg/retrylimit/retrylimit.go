// Package retrylimit retries calls that fail with transient HTTP statuses
// under an adaptive rate limit.
//
//	lim := retrylimit.NewAdaptiveLimiter(10, 1, 10, 1, 0.5)
//	err := retrylimit.WithRetryConfig(ctx, func() error {
//	    return callCloudAPI()
//	}, lim, retrylimit.DefaultRetryConfig())
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"server-bonjour/pkg/log"
)

// AdaptiveLimiter is a token bucket that halves (or whatever stepDown says)
// on rate-limit responses and creeps back up on success.
type AdaptiveLimiter struct {
	mu       sync.RWMutex
	limiter  *rate.Limiter
	minLimit rate.Limit
	maxLimit rate.Limit
	stepUp   rate.Limit
	stepDown float64
}

// NewAdaptiveLimiter starts at initial requests per second and stays within
// [lo, hi].
func NewAdaptiveLimiter(initial, lo, hi, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if lo <= 0 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	initial = clamp(initial, lo, hi)
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: lo,
		maxLimit: hi,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(a.limiter.Limit() + a.stepUp)
}

func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) set(l rate.Limit) {
	l = clamp(l, a.minLimit, a.maxLimit)
	a.limiter.SetLimit(l)
	a.limiter.SetBurst(max(1, int(l)))
}

func clamp(l, lo, hi rate.Limit) rate.Limit {
	return min(max(l, lo), hi)
}

// HTTPError is implemented by errors that carry a response status, such as
// awserr.RequestFailure.
type HTTPError interface {
	error
	StatusCode() int
}

// StatusError attaches a status code to an error that does not expose one.
type StatusError struct {
	Code int
	Err  error
}

func (s *StatusError) Error() string   { return s.Err.Error() }
func (s *StatusError) Unwrap() error   { return s.Err }
func (s *StatusError) StatusCode() int { return s.Code }

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Transient reports whether err carries a 429 or 5xx status anywhere in its
// chain.
func Transient(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	OnRetry        func(attempt int, err error)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// WithRetryConfig calls fn until it succeeds, returns a non-transient or
// FatalError, ctx ends, or MaxAttempts is reached. lim may be nil.
// The returned error wraps the last failure.
func WithRetryConfig(ctx context.Context, fn func() error, lim *AdaptiveLimiter, cfg RetryConfig) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	l := log.Component("retry")
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return errors.Join(lastErr, err)
			}
		}

		err := fn()
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				l.Infof("Success after %d attempts", attempt)
			}
			return nil
		}
		lastErr = err

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return fatal.Err
		}
		if !Transient(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		wait := delay
		if isRateLimitError(err) {
			if lim != nil {
				lim.RateLimited()
			}
			wait = cfg.RateLimitDelay
			l.Warnf("Rate limited (attempt %d), retrying in %v", attempt, wait)
		} else {
			l.Warnf("Server error (attempt %d): %v. Retrying in %v", attempt, err, wait)
		}
		if cfg.Jitter {
			wait = addJitter(wait)
		}

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(wait):
		}

		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}

	return fmt.Errorf("max attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// addJitter adds up to 25% to delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

func statusOf(err error) (int, bool) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode(), true
	}
	return 0, false
}

func isRateLimitError(err error) bool {
	code, ok := statusOf(err)
	return ok && code == http.StatusTooManyRequests
}

func isServerError(err error) bool {
	code, ok := statusOf(err)
	return ok && code >= 500 && code < 600
}
