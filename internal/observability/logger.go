package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions controls where log lines go. An empty Path disables the
// rotating file sink.
type LogOptions struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

// Logger is a key/value structured logger:
//
//	logger.Info("Page fetched", "product_id", id, "page", n)
type Logger struct {
	zl     zerolog.Logger
	closer io.Closer
}

func NewLogger(opts LogOptions) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var writers []io.Writer
	var closer io.Closer
	if opts.Console || opts.Path == "" {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if opts.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, closer: closer}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that adds fields to every line.
func (l *Logger) With(fields ...interface{}) *Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &Logger{zl: l.zl.With().Fields(fields).Logger(), closer: l.closer}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(zerolog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(zerolog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(zerolog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(zerolog.ErrorLevel, msg, fields)
}

func (l *Logger) log(level zerolog.Level, msg string, fields []interface{}) {
	if l == nil {
		return
	}
	l.zl.WithLevel(level).Fields(fields).Msg(msg)
}

// Close flushes the rotating file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
