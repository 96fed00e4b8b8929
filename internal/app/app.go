package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/runflowgo/internal/config"
	"github.com/vk/runflowgo/internal/ctxlog"
	"github.com/vk/runflowgo/internal/event"
	"github.com/vk/runflowgo/internal/registry"
	"github.com/vk/runflowgo/modules/echo"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	bus      *event.Bus
	registry *registry.Registry
	model    *config.Model
	cfg      *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, event bus, and
// registry. Configuration failures are fatal startup errors and panic; the
// entrypoint recovers to present them cleanly.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	bus := event.NewBus(event.WithLogger(logger))

	model, err := loader.Load(ctx, cfg.WorkflowPath)
	if err != nil {
		panic(fmt.Errorf("failed to load workflow definition: %w", err))
	}
	if model.Workflow.Handler == "" {
		model.Workflow.Handler = echo.HandlerName
	}
	logger.Debug("Workflow definition loaded.", "workflow", model.Workflow.Name)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(cfg, logger)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All modules registered.", "count", len(modules))

	a := &App{
		outW:     outW,
		logger:   logger,
		bus:      bus,
		registry: reg,
		model:    model,
		cfg:      cfg,
	}
	a.registerPreflightSteps()

	if err := reg.Validate(ctx, model.Workflow); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Bus returns the application's event bus. This is primarily for testing.
func (a *App) Bus() *event.Bus {
	return a.bus
}
