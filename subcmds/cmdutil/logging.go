// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bvk/supplybot/config"
	"github.com/visvasity/sglog"
)

// newFileHandler returns the file logs handler for the log directory. Debug
// messages are enabled only when the config asks for them.
func newFileHandler(cfg *config.Log) (slog.Handler, func(), error) {
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory %q: %w", cfg.Dir, err)
	}
	backend := sglog.NewBackend(&sglog.Options{
		LogDirs: []string{cfg.Dir},
	})
	if cfg.Debug {
		backend.SetLevel(slog.LevelDebug)
	}
	return backend.Handler(), backend.Close, nil
}

// SetupLogging installs the default slog logger for the log config. Returned
// function must be called before the program exits.
func SetupLogging(cfg *config.Log) (func(), error) {
	if len(cfg.Dir) == 0 {
		if cfg.Debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return func() {}, nil
	}
	handler, closef, err := newFileHandler(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return closef, nil
}
