// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"

	"gitlab.com/slxh/go/powerline"
)

// Level is the application-wide log level, adjustable at runtime by the CLI.
var Level slog.LevelVar

var colors = map[slog.Level]powerline.ColorScheme{
	slog.LevelDebug: {
		Time:    powerline.NewColor(99, powerline.ColorBlack),
		Level:   powerline.NewColor(powerline.ColorBlack, 99),
		Message: powerline.NewColor(99, powerline.ColorDefault),
	},
	slog.LevelInfo: {
		Time:    powerline.NewColor(45, powerline.ColorBlack),
		Level:   powerline.NewColor(powerline.ColorBlack, 45),
		Message: powerline.NewColor(45, powerline.ColorDefault),
	},
	slog.LevelWarn: {
		Time:    powerline.NewColor(220, powerline.ColorBlack),
		Level:   powerline.NewColor(powerline.ColorBlack, 220),
		Message: powerline.NewColor(220, powerline.ColorDefault),
	},
	slog.LevelError: {
		Time:    powerline.NewColor(208, powerline.ColorBlack),
		Level:   powerline.NewColor(powerline.ColorBlack, 208),
		Message: powerline.NewColor(208, powerline.ColorDefault),
	},
}

func setLogger(h slog.Handler) {
	slog.SetDefault(slog.New(h))
}

func onTTY() bool {
	s, err := os.Stdout.Stat()
	if err != nil {
		return false
	}

	return s.Mode()&os.ModeCharDevice > 0
}

// SetColoredLogger installs the powerline handler used on an interactive terminal.
func SetColoredLogger() {
	setLogger(powerline.NewHandler(os.Stdout, &powerline.HandlerOptions{
		Level:  &Level,
		Colors: colors,
	}))
}

// SetUncoloredLogger installs a plain text handler for piped/logged output.
func SetUncoloredLogger() {
	setLogger(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: &Level,
	}))
}

// SetLogger picks a colored or plain handler depending on whether stdout is a TTY.
func SetLogger() {
	if onTTY() {
		SetColoredLogger()
	} else {
		SetUncoloredLogger()
	}
}

// Panic logs msg as an error and then panics with it. Reserved for
// unrecoverable CLI argument failures, never used inside the pipeline.
func Panic(msg string, args ...any) {
	slog.Error(msg, args...)
	panic(msg)
}
