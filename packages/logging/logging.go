// Package logging holds the process-wide structured logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// L is the default logger of the application
	L *zap.Logger
)

func init() {
	// Replaced when Initialize is called
	L, _ = zap.NewProduction(zap.WithCaller(false))
}

// Initialize configures L with the given level. Output goes to stderr so it
// never mixes with machine-readable reports on stdout.
func Initialize(logLevel string) error {
	level, err := ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", logLevel, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableCaller = true
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	L = logger
	return nil
}

// Nop silences L.
func Nop() {
	L = zap.NewNop()
}

// ParseLevel converts a level name to a zapcore.Level.
func ParseLevel(logLevel string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("supported levels are: debug, info, warn, error")
	}
}
