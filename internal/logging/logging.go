// Package logging sets up the global zerolog logger and routes discordgo's
// internal log lines through it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. pretty selects the console writer
// instead of JSON lines.
func Init(level string, pretty bool) {
	InitWriter(os.Stdout, level, pretty)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)

	discordgo.Logger = discordLogger(log.Logger.With().Str("component", "discordgo").Logger())
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
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

func discordLogger(l zerolog.Logger) func(msgL, caller int, format string, a ...any) {
	return func(msgL, _ int, format string, a ...any) {
		var ev *zerolog.Event
		switch msgL {
		case discordgo.LogError:
			ev = l.Error()
		case discordgo.LogWarning:
			ev = l.Warn()
		case discordgo.LogInformational:
			ev = l.Info()
		default:
			ev = l.Debug()
		}
		ev.Msg(fmt.Sprintf(format, a...))
	}
}
