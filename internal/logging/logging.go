// Package logging provides the structured logger shared across the
// bundling pipeline, following the zap-based CLI logging setup used
// elsewhere in the corpus.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.SugaredLogger for pipeline components. Verbose enables
// debug-level output; otherwise only info-and-above is emitted.
func New(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		// Falling back to a no-op logger keeps the pipeline itself from
		// ever failing because of a logging misconfiguration.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// Nop returns a logger that discards everything, for tests that don't care
// about pipeline diagnostics.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
