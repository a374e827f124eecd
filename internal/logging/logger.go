// Package logging builds the zap loggers shared by every engine component.
package logging

import (
	"go.uber.org/zap"
)

// New builds a production logger, or a development logger (colored,
// human-readable console output) when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Must is New, panicking on construction failure. Intended for use at
// process startup only, where a broken logger configuration should halt
// the process immediately.
func Must(dev bool) *zap.Logger {
	logger, err := New(dev)
	if err != nil {
		panic(err)
	}
	return logger
}

// Named returns a child logger scoped to a component, e.g. "executor" or
// "cache", matching the constructor-injection style used throughout the
// service layer this engine is adapted from.
func Named(base *zap.Logger, component string) *zap.Logger {
	return base.Named(component)
}
