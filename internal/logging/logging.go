// Package logging provides category-scoped loggers for protoforge built on
// zap. Each subsystem logs through its own named logger so output can be
// filtered per category; the level gate is set once at startup from config.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup and config
	CategoryLoad     Category = "load"     // document discovery and parsing
	CategoryRegistry Category = "registry" // registration and cache state
	CategoryTree     Category = "tree"     // resolution and realization
	CategoryWorld    Category = "world"    // entity store mutations
	CategoryWatcher  Category = "watcher"  // hot reload events
	CategoryApply    Category = "apply"    // schematic application
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Initialize builds the shared zap logger. levelName is one of debug, info,
// warn, error; empty defaults to info. When json is true, output is
// structured JSON instead of the console encoding.
func Initialize(levelName string, json bool) error {
	parsed, err := zapcore.ParseLevel(levelName)
	if err != nil {
		if levelName != "" {
			return err
		}
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	level = cfg.Level
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns (or creates) the logger for the given category. Before
// Initialize is run, a no-op logger is returned so library code can log
// unconditionally.
func Get(c Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}
	root := base
	if root == nil {
		root = zap.NewNop()
	}
	l := root.Named(string(c)).Sugar()
	loggers[c] = l
	return l
}

// SetLevel adjusts the level gate at runtime.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
