package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output formats accepted by SetFormat.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var (
	outMu sync.RWMutex
	out   = defaultWriter()
)

// defaultWriter logs to stderr so that command output on stdout stays clean.
// APP_ENV=dev switches to the console format.
func defaultWriter() io.Writer {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		return consoleWriter(os.Stderr)
	}
	return os.Stderr
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

// SetFormat selects the output format of loggers created afterwards. An
// empty format keeps the current one.
func SetFormat(format string) error {
	var w io.Writer
	switch strings.ToLower(format) {
	case "":
		return nil
	case FormatJSON:
		w = os.Stderr
	case FormatConsole:
		w = consoleWriter(os.Stderr)
	default:
		return fmt.Errorf("log format %q: want %s or %s", format, FormatJSON, FormatConsole)
	}
	outMu.Lock()
	out = w
	outMu.Unlock()
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a logger tagged with component writing to the
// current output.
func NewZerologLogger(component string) Logger {
	outMu.RLock()
	w := out
	outMu.RUnlock()
	return NewWithWriter(component, w)
}

// NewWithWriter writes JSON lines to w.
func NewWithWriter(component string, w io.Writer) Logger {
	z := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
