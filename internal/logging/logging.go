// Package logging builds the daemon's zap logger. Every component gets a
// named child logger passed in explicitly at construction; nothing in this
// codebase logs through a package-level global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Verbose switches the level to debug and the
// encoding to console for interactive runs; otherwise production JSON.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return cfg.Build()
}

// Component returns a child logger tagged with the component name.
// Purely sugar over Named, kept so call sites read uniformly.
func Component(root *zap.Logger, name string) *zap.Logger {
	if root == nil {
		return zap.NewNop()
	}
	return root.Named(name)
}
