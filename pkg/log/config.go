package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/sirupsen/logrus"
)

// Config declares how a process logger is built.
type Config struct {
	Level  string `json:"level" yaml:"level" default:"info"`
	Format string `json:"format" yaml:"format" default:"text"`
	// Output is "stderr" (default), "stdout", "null", or a file path.
	Output string `json:"output" yaml:"output" default:"stderr"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}
	level := InfoLevel
	if cfg.Level != "" {
		l, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log: invalid level %q: %w", cfg.Level, err)
		}
		level = l
	}
	format := FormatText
	switch cfg.Format {
	case "", "text":
	case "json":
		format = FormatJSON
	default:
		return nil, fmt.Errorf("log: invalid format %q; use text|json", cfg.Format)
	}
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "null":
		out = io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log: open output: %w", err)
		}
		out = f
	}
	return NewLogger(WithLevel(level), WithFormat(format), WithOutput(out)), nil
}

// RedirectStdLog routes the standard library logger (used by Pebble and
// net/http internals) through l at info level.
func RedirectStdLog(l Logger) {
	el, ok := l.(*entryLogger)
	if !ok {
		return
	}
	stdlog.SetFlags(0)
	stdlog.SetOutput(el.entry.WriterLevel(logrus.InfoLevel))
}
