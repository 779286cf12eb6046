// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/0xcro3dile/bacopilot-go/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the global logger: console output on stderr (JSON when
// requested) plus an optional rotating log file. The returned closer
// releases the file.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	return setup(cfg, os.Stderr)
}

func setup(cfg config.LoggingConfig, console io.Writer) (io.Closer, error) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	var out io.Writer = console
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	log.Logger = zerolog.New(out).With().Timestamp().Str("app", "bacopilot").Logger()
	return closer, nil
}

// ParseLevel maps a level name to zerolog; unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
