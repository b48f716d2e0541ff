// Package logging builds the structured JSON logger shared by every component.
package logging

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// New constructs a zap logger emitting JSON to output ("stdout", "stderr" or a file
// path; empty means stderr). LOG_LEVEL, when valid, overrides level.
func New(level, output string) (*zap.Logger, error) {
	atom := zap.NewAtomicLevel()
	lvl := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if err := atom.UnmarshalText([]byte(lvl)); err != nil || lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(level))
		if err := atom.UnmarshalText([]byte(lvl)); err != nil || lvl == "" {
			// Fallback to default level when unset or invalid.
			_ = atom.UnmarshalText([]byte(defaultLevel))
		}
	}

	if output == "" {
		output = "stderr"
	}
	if output != "stdout" && output != "stderr" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return nil, err
		}
	}

	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		NameKey:    "logger",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		CallerKey:      "caller",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		StacktraceKey:  "stacktrace",
	}

	cfg := zap.Config{
		Level:             atom,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     false,
		DisableStacktrace: true,
	}
	return cfg.Build()
}
