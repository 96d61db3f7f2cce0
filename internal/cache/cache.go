// Package cache stores synthesized greetings as files named by their key.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"server-bonjour/internal/greeting"
	"server-bonjour/internal/tts"
	"server-bonjour/pkg/log"
	"server-bonjour/pkg/tracing"
)

// Asset is a synthesized greeting on disk.
type Asset struct {
	Key  greeting.Key
	Path string
}

// GreetingCache maps greeting text to an audio file, synthesizing it on the
// first request. The directory is the only record: a file named after the
// key means the greeting exists.
type GreetingCache struct {
	dir    string
	locale string
	synth  tts.Synthesizer
	group  singleflight.Group
	log    *logrus.Entry
	tracer trace.Tracer
}

// New creates dir if needed and returns a cache backed by it.
func New(dir, locale string, synth tts.Synthesizer) (*GreetingCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create voice directory: %w", err)
	}
	return &GreetingCache{
		dir:    dir,
		locale: locale,
		synth:  synth,
		log:    log.Component("cache"),
		tracer: tracing.Tracer("cache"),
	}, nil
}

// Path returns where the asset for key lives, whether or not it exists.
func (c *GreetingCache) Path(key greeting.Key) string {
	return filepath.Join(c.dir, key.String())
}

// Lookup reports whether the asset for text already exists.
func (c *GreetingCache) Lookup(text string) (Asset, bool, error) {
	key := greeting.KeyOf(text)
	asset := Asset{Key: key, Path: c.Path(key)}

	info, err := os.Stat(asset.Path)
	switch {
	case err == nil:
		return asset, info.Mode().IsRegular() && info.Size() > 0, nil
	case errors.Is(err, fs.ErrNotExist):
		return asset, false, nil
	default:
		return asset, false, fmt.Errorf("failed to stat %s: %w", asset.Path, err)
	}
}

// GetOrCreate returns the path of the audio file for text, synthesizing it
// when absent. Concurrent calls for the same text in this process share one
// synthesis.
func (c *GreetingCache) GetOrCreate(ctx context.Context, text string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "cache.get_or_create")
	defer span.End()

	asset, ok, err := c.Lookup(text)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("greeting.key", asset.Key.String()), attribute.Bool("cache.hit", ok))

	if ok {
		c.log.WithField("key", asset.Key).Debug("Cache hit")
		return asset.Path, nil
	}

	// The synthesis outlives any one caller; the synthesizer bounds it.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(asset.Key.String(), func() (any, error) {
		return c.create(flightCtx, text, asset)
	})

	select {
	case <-ctx.Done():
		span.SetStatus(codes.Error, ctx.Err().Error())
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return "", res.Err
		}
		if res.Shared {
			c.log.WithField("key", asset.Key).Debug("Joined in-flight synthesis")
		}
		return res.Val.(string), nil
	}
}

// create synthesizes into a temporary file next to the final path and renames
// it into place, so the asset is either absent or complete.
func (c *GreetingCache) create(ctx context.Context, text string, asset Asset) (string, error) {
	// another process may have finished it since Lookup
	if _, ok, err := c.Lookup(text); err == nil && ok {
		return asset.Path, nil
	}

	tmp, err := os.CreateTemp(c.dir, "."+asset.Key.String()+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	c.log.WithField("key", asset.Key).Infof("Generating new audio for %q", text)

	if _, err := c.synth.Synthesize(ctx, text, c.locale, tmpPath); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, asset.Path); err != nil {
		return "", fmt.Errorf("failed to store greeting %s: %w", asset.Key, err)
	}

	c.log.WithField("key", asset.Key).Info("Greeting cached")
	return asset.Path, nil
}
