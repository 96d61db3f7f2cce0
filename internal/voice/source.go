package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"layeh.com/gopus"
)

// maxOpusFrame is the largest packet the encoder may produce.
const maxOpusFrame = 4000

// FileSource decodes an audio file with ffmpeg and encodes it to opus.
// Every Open starts a fresh decoder, which is what makes it seekable.
type FileSource struct {
	path   string
	ffmpeg string
}

// NewFileSource returns a source for path decoded by the ffmpeg binary.
func NewFileSource(path, ffmpeg string) *FileSource {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &FileSource{path: path, ffmpeg: ffmpeg}
}

func (s *FileSource) Name() string { return filepath.Base(s.path) }

func (s *FileSource) Open(ctx context.Context, offset time.Duration) (FrameReader, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}

	pcm, cleanup, err := s.decode(ctx, offset)
	if err != nil {
		return nil, err
	}

	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("encoder error: %w", err)
	}

	return &opusReader{
		pcm:     pcm,
		cleanup: cleanup,
		enc:     enc,
		buf:     make([]byte, FrameSize*Channels*2),
		samples: make([]int16, FrameSize*Channels),
	}, nil
}

func (s *FileSource) decode(ctx context.Context, offset time.Duration) (io.ReadCloser, func(), error) {
	args := []string{}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}
	args = append(args,
		"-i", s.path,
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("command start error: %w", err)
	}

	cleanup := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	return reader, cleanup, nil
}

type opusReader struct {
	pcm     io.ReadCloser
	cleanup func()
	enc     *gopus.Encoder
	buf     []byte
	samples []int16
	eof     bool
}

func (r *opusReader) ReadFrame() ([]byte, error) {
	if r.eof {
		return nil, io.EOF
	}

	n, err := io.ReadFull(r.pcm, r.buf)
	switch {
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		// pad the last partial frame with silence
		clear(r.buf[n:])
		r.eof = true
	case err != nil:
		return nil, fmt.Errorf("read error: %w", err)
	}

	for i := range r.samples {
		r.samples[i] = int16(binary.LittleEndian.Uint16(r.buf[i*2 : i*2+2]))
	}

	frame, err := r.enc.Encode(r.samples, FrameSize, maxOpusFrame)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}
	return frame, nil
}

func (r *opusReader) Close() error {
	r.cleanup()
	return nil
}
