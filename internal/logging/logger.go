package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Fellisss/Weather1/internal/config"
)

const (
	maxSize    = 50 // megabytes
	maxBackups = 30
	maxAge     = 28 // days
)

// New builds the process logger. The "dev" build logs colored text to stdout;
// any other version logs JSON. When cfg.LogFile is set every record is also
// written, as JSON, to a size-rotated file.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	var h slog.Handler
	if version == "dev" {
		h = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})
	}

	if cfg.LogFile != "" {
		h = fanout{h, slog.NewJSONHandler(rotatingWriter(cfg.LogFile), &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})}
	}

	if version == "dev" {
		return slog.New(h).With("app", appName)
	}
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}

func rotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}
}
