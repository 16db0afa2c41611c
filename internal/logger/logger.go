// Package logger builds the diagnostics logger shared by all commands.
//
// User-facing output (tables, prompts, summaries) is written to the command's
// stdout directly; the logger only carries diagnostics and goes to stderr or
// to a file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console-encoded logger. Warnings and above are emitted by
// default, everything with verbose. A non-empty file redirects output there;
// the returned close func releases it and is a no-op for stderr.
func New(verbose bool, file string) (*zap.Logger, func() error, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	sink := zapcore.Lock(os.Stderr)
	closeSink := func() error { return nil }
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		sink = zapcore.Lock(f)
		closeSink = f.Close
	}

	return zap.New(zapcore.NewCore(encoder(), sink, level)), closeSink, nil
}

func encoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
