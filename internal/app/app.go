package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/planstore"
	"github.com/specialistvlad/planrunner/internal/quota"
	"github.com/specialistvlad/planrunner/internal/resource"
	"github.com/specialistvlad/planrunner/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *config.Model
	registry  *block.Registry
	resources *resource.Pool
	quota     quota.Controller
	store     *planstore.Cache
}

// NewApp is the constructor for the main application. cfg must already be
// complete; it is validated here. When no modules are given the core
// modules are registered.
func NewApp(ctx context.Context, outW io.Writer, cfg *config.Model, modules ...block.Module) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := block.NewRegistry(modules...)
	logger.Debug("All Go modules registered.", "modules", len(modules), "blocks", len(reg.Keys()))

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		resources: resource.New(resource.Options{
			Driver:       cfg.DBDriver,
			DSN:          cfg.DSN,
			MaxOpenConns: cfg.DBMaxOpenConns,
			HTTPTimeout:  cfg.HTTPTimeout,
			Logger:       logger,
		}),
	}

	var err error
	if a.quota, err = a.openQuota(ctx); err != nil {
		return nil, errors.Join(err, a.resources.Close())
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, errors.Join(err, a.resources.Close())
	}
	a.store = planstore.NewCache(store)

	logger.Debug("Application wired.", "mode", cfg.Mode, "plan_source", cfg.PlanSource, "quota_store", cfg.QuotaStore)
	return a, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *block.Registry {
	return a.registry
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Store returns the cached plan store.
func (a *App) Store() *planstore.Cache {
	return a.store
}

// SessionOptions is the template every execution session starts from.
func (a *App) SessionOptions() session.Options {
	return session.Options{
		Quota:       a.quota,
		Resources:   a.resources,
		Variables:   a.config.Variables,
		APIKeys:     a.config.APIKeys(),
		TokenSecret: []byte(a.config.TokenSecret),
		Test:        a.config.Test(),
		Logger:      a.logger,
		MaxDepth:    a.config.MaxDepth,
	}
}

// Close releases the shared resources.
func (a *App) Close() error {
	a.logger.Debug("Closing application resources.")
	return a.resources.Close()
}
