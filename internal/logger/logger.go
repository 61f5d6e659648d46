package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init installs a JSON logger writing to stdout. Source locations are added
// in gin debug mode.
func Init(level, ginMode string) {
	InitWriter(os.Stdout, level, ginMode)
}

func InitWriter(w io.Writer, level, ginMode string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: ginMode == "debug",
	}
	Logger = slog.New(slog.NewJSONHandler(w, opts))
	slog.SetDefault(Logger)
	Logger.Debug("structured logging initialized", "level", opts.Level.Level().String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func With(args ...any) *slog.Logger { return Logger.With(args...) }

func Info(msg string, args ...any)  { Logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger.Warn(msg, args...) }
func Error(msg string, args ...any) { Logger.Error(msg, args...) }
func Debug(msg string, args ...any) { Logger.Debug(msg, args...) }
