// Package app contains the core application logic: wiring the task registry,
// the manifest loader, snapshot persistence and the orchestration loop,
// decoupled from any specific entrypoint like a CLI.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/taskgrid/internal/hcl"
	"github.com/vk/taskgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
	reg    *registry.Registry
	loader *hcl.Loader
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Passing no modules installs the built-in task library.
func NewApp(outW, errW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.Install(modules...)
	logger.Debug("All task modules registered.", "count", len(modules), "types", reg.Names())

	return &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: cfg,
		reg:    reg,
		loader: hcl.NewLoader(reg),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.reg
}
