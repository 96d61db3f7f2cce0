// Package log wires the process-wide logrus logger: a nested formatter that
// prints fields as bracketed tags and an optional rotating log file.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Fields = logrus.Fields

// Options configures the logger. File may be empty, in which case only
// stderr is written.
type Options struct {
	Level    string
	File     string
	NoColors bool
}

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, logrus.InfoLevel, false)
)

func newLogger(w io.Writer, level logrus.Level, noColors bool) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(w)
	l.SetFormatter(&formatter.Formatter{
		NoColors:        noColors,
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        true,
		FieldsOrder:     []string{"component", "guild", "announce_id"},
	})
	return l
}

// Setup replaces the process logger according to opts and returns it.
func Setup(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     14,
			MaxBackups: 3,
		})
	}

	l := newLogger(io.MultiWriter(writers...), level, opts.NoColors || opts.File != "")

	mu.Lock()
	logger = l
	mu.Unlock()

	return l, nil
}

// L returns the process logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return L().WithField("component", name)
}

// Discard returns an entry that drops everything. Tests use it.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
