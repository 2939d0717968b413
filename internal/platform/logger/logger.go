package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

// New returns a JSON logger on stdout at the given level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug, info, warn and error; anything else is info.
func ParseLevel(level string) slog.Level {
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

// ConfigureGnark routes the proving backend's zerolog output to w at level,
// or silences it for "disabled". An unknown level silences it too.
func ConfigureGnark(w io.Writer, level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		gnarklogger.Disable()
		return err
	}
	if lvl == zerolog.Disabled {
		gnarklogger.Disable()
		return nil
	}
	gnarklogger.Set(zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "gnark").Logger())
	return nil
}
