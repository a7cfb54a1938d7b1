package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/executor"
	"github.com/specialistvlad/planrunner/internal/server"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/value"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 5 * time.Second

// Handler returns the plan API handler.
func (a *App) Handler() http.Handler {
	return server.New(a.logger, server.Options{
		Store:   a.store,
		Session: a.SessionOptions(),
	}).Handler()
}

// Serve runs the plan API and, when enabled, the health check server until
// ctx is cancelled or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Serve method started.")

	base := context.WithoutCancel(ctx)
	servers := []*http.Server{{
		Addr:        a.config.Address,
		Handler:     a.Handler(),
		BaseContext: func(net.Listener) context.Context { return base },
	}}
	if hs := a.healthCheckServer(); hs != nil {
		servers = append(servers, hs)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info("🚀 Server starting", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("🛑 Shutting down servers...")
		sctx, cancel := context.WithTimeout(base, shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	a.logger.Debug("App.Serve method finished.", "error", err)
	return err
}

// RunPlan executes the named plan once, outside the HTTP boundary.
func (a *App) RunPlan(ctx context.Context, name string, params map[string]value.Value, id session.Identity) (*executor.Result, *session.Session, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	p, err := a.store.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	opts := a.SessionOptions()
	opts.Identity = id
	opts.Request = session.Request{Method: "RUN", Path: name, Params: params}
	return executor.Run(ctx, p, opts)
}

// ValidatePlans parses every plan in the store and reports how many were
// checked along with every failure.
func (a *App) ValidatePlans(ctx context.Context) (int, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	names, err := a.store.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing plans: %w", err)
	}

	var errs []error
	for _, name := range names {
		if _, err := a.store.Load(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("plan %s: %w", name, err))
			continue
		}
		a.logger.Debug("Plan is valid.", "plan", name)
	}
	return len(names), errors.Join(errs...)
}
