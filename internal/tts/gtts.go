package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"server-bonjour/pkg/log"
)

// GTTS shells out to gtts-cli.
type GTTS struct {
	path string
}

// NewGTTS returns an adapter running the gtts-cli binary at path.
func NewGTTS(path string) *GTTS {
	if path == "" {
		path = "gtts-cli"
	}
	return &GTTS{path: path}
}

func (g *GTTS) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	lang := strings.ToLower(strings.SplitN(strings.ReplaceAll(locale, "_", "-"), "-", 2)[0])

	cmd := exec.CommandContext(ctx, g.path,
		text,
		"--lang", lang,
		"--output", outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Component("tts").WithField("lang", lang).Debugf("Running %s", g.path)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: gtts-cli exited with %d: %s",
				ErrSynthesisFailed, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
	}
	return outputPath, nil
}
