package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging interface shared by the repository, the engines and
// the catalogs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger

	// WithContext binds ctx so its request ID is attached to every entry.
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying slog.Logger for libraries that need one.
	Slog() *slog.Logger
}

// Config mirrors the log section of the SnapKeeper configuration.
type Config struct {
	// Level is debug, info, warn (or warning) or error. Empty means info.
	Level string
	// Format is json or text. Empty means json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// level is shared by every logger built by New, so a config reload changes
// the verbosity of components that already hold a logger.
var level = new(slog.LevelVar)

// fallback serves FromContext when no logger was attached.
var fallback Logger = newLogger(slog.NewJSONHandler(os.Stderr, handlerOptions()))

// New builds a logger and sets the shared level.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(output, handlerOptions())
	case "text":
		handler = slog.NewTextHandler(output, handlerOptions())
	default:
		return nil, fmt.Errorf("logger: unsupported format %q", cfg.Format)
	}

	level.Set(lvl)
	return newLogger(handler), nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return newLogger(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a configured level name. "warning" is accepted as an
// alias of "warn".
func ParseLevel(name string) (slog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		name = "warn"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: unsupported level %q", name)
	}
	return lvl, nil
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// CurrentLevel returns the shared level in configuration spelling.
func CurrentLevel() string {
	return strings.ToLower(level.Level().String())
}

func handlerOptions() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
}

func newLogger(h slog.Handler) *slogLogger {
	return &slogLogger{
		logger: slog.New(contextHandler{Handler: h}),
		ctx:    context.Background(),
	}
}

// slogLogger remembers the context it was bound to and passes it to every
// call, which is where contextHandler picks up the request ID.
type slogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.DebugContext(l.ctx, msg, args...)
}

func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.InfoContext(l.ctx, msg, args...)
}

func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.WarnContext(l.ctx, msg, args...)
}

func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.ErrorContext(l.ctx, msg, args...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &slogLogger{logger: l.logger, ctx: ctx}
}

func (l *slogLogger) Slog() *slog.Logger {
	return l.logger
}
