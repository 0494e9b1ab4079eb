package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with structured field helpers.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
		}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying the given fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.addToContext(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.emit(l.zl.Fatal(), msg, fields) }

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.addTo(event)
	}
	event.Msg(msg)
}

// Field is a typed key/value pair attached to a log event.
type Field struct {
	key string
	str *string
	i64 *int64
	f64 *float64
	b   *bool
	err error
	any interface{}
}

func (f Field) addTo(e *zerolog.Event) {
	switch {
	case f.err != nil:
		e.Err(f.err)
	case f.str != nil:
		e.Str(f.key, *f.str)
	case f.i64 != nil:
		e.Int64(f.key, *f.i64)
	case f.f64 != nil:
		e.Float64(f.key, *f.f64)
	case f.b != nil:
		e.Bool(f.key, *f.b)
	default:
		e.Interface(f.key, f.any)
	}
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	switch {
	case f.err != nil:
		return c.Err(f.err)
	case f.str != nil:
		return c.Str(f.key, *f.str)
	case f.i64 != nil:
		return c.Int64(f.key, *f.i64)
	case f.f64 != nil:
		return c.Float64(f.key, *f.f64)
	case f.b != nil:
		return c.Bool(f.key, *f.b)
	default:
		return c.Interface(f.key, f.any)
	}
}

func String(key, value string) Field  { return Field{key: key, str: &value} }
func Int(key string, value int) Field { i := int64(value); return Field{key: key, i64: &i} }
func Int64(key string, value int64) Field {
	return Field{key: key, i64: &value}
}
func Float64(key string, value float64) Field { return Field{key: key, f64: &value} }
func Bool(key string, value bool) Field       { return Field{key: key, b: &value} }
func Error(err error) Field                   { return Field{key: "error", err: err} }
func Any(key string, value interface{}) Field { return Field{key: key, any: value} }
func Duration(key string, value time.Duration) Field {
	return String(key, value.String())
}
func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ","))
}
