package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/planstore"
	"github.com/specialistvlad/planrunner/internal/quota"
)

func (a *App) openQuota(ctx context.Context) (quota.Controller, error) {
	logger := ctxlog.FromContext(ctx)
	accounts := a.config.QuotaAccounts()

	if a.config.QuotaStore != config.QuotaSQL {
		logger.Debug("Using in-memory quota controller.", "accounts", len(accounts))
		return quota.NewMemory(a.config.QuotaDefaultLimit, accounts...), nil
	}

	db, err := a.resources.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening quota store: %w", err)
	}
	q, err := quota.NewSQL(ctx, db, a.config.QuotaDefaultLimit, accounts...)
	if err != nil {
		return nil, fmt.Errorf("opening quota store: %w", err)
	}
	logger.Debug("Using SQL quota controller.", "accounts", len(accounts))
	return q, nil
}

func (a *App) openStore(ctx context.Context) (planstore.Store, error) {
	logger := ctxlog.FromContext(ctx)

	if a.config.PlanSource != config.SourceSQL {
		logger.Debug("Loading plans from directory.", "plans_dir", a.config.PlansDir)
		return planstore.NewFS(a.config.PlansDir, a.registry), nil
	}

	db, err := a.resources.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening plan store: %w", err)
	}
	s, err := planstore.NewSQL(ctx, db, a.registry)
	if err != nil {
		return nil, fmt.Errorf("opening plan store: %w", err)
	}
	logger.Debug("Loading plans from database.")
	return s, nil
}
