package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// headerSize is what filetype needs to match any known signature.
const headerSize = 262

type validated struct {
	next Synthesizer
}

// Validate wraps next so that a call only succeeds when the written file
// is recognized as audio.
func Validate(next Synthesizer) Synthesizer {
	return validated{next: next}
}

func (v validated) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	path, err := v.next.Synthesize(ctx, text, locale, outputPath)
	if err != nil {
		return "", err
	}
	if err := CheckAudio(path); err != nil {
		return "", err
	}
	return path, nil
}

// CheckAudio reports ErrSynthesisFailed unless path holds a non-empty,
// recognizable audio file.
func CheckAudio(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: no output: %v", ErrSynthesisFailed, err)
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return fmt.Errorf("%w: empty output", ErrSynthesisFailed)
		}
		return fmt.Errorf("%w: read output: %v", ErrSynthesisFailed, err)
	}

	if !filetype.IsAudio(head[:n]) {
		kind, _ := filetype.Match(head[:n])
		return fmt.Errorf("%w: output is not audio (detected %q)", ErrSynthesisFailed, kind.MIME.Value)
	}
	return nil
}
