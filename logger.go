package auth

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to Logger. Trailing args are
// treated as key/value pairs.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger builds a logger for the given level and format
// ("console" or "json") writing to stdout.
func NewZerologLogger(level, format string) (*ZerologLogger, error) {
	return newZerologLogger(os.Stdout, level, format)
}

// WrapZerolog adapts an existing zerolog.Logger.
func WrapZerolog(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: l}
}

func newZerologLogger(out io.Writer, level, format string) (*ZerologLogger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, err
	}

	var base zerolog.Logger
	switch strings.ToLower(format) {
	case "", "json":
		base = zerolog.New(out)
	case "console":
		base = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	return &ZerologLogger{log: base.With().Timestamp().Logger().Level(lvl)}, nil
}

func (z *ZerologLogger) Debug(msg string, args ...any) { z.emit(z.log.Debug(), msg, args) }
func (z *ZerologLogger) Info(msg string, args ...any)  { z.emit(z.log.Info(), msg, args) }
func (z *ZerologLogger) Warn(msg string, args ...any)  { z.emit(z.log.Warn(), msg, args) }
func (z *ZerologLogger) Error(msg string, args ...any) { z.emit(z.log.Error(), msg, args) }

// Named returns a child logger tagged with a component name.
func (z *ZerologLogger) Named(component string) *ZerologLogger {
	return &ZerologLogger{log: z.log.With().Str("component", component).Logger()}
}

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, args []any) {
	if ev == nil {
		return
	}
	if len(args)%2 == 1 {
		args = append(args, "(MISSING)")
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
