package planstore

import (
	"context"
	"sync"

	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/plan"
	"golang.org/x/sync/singleflight"
)

// Cache memoises parsed plans of another Store. Concurrent loads of the
// same uncached plan share one read of the underlying store. Failed loads
// are not cached.
type Cache struct {
	next  Store
	plans sync.Map // Key: plan name, Value: *plan.Plan
	group singleflight.Group
}

// NewCache wraps next.
func NewCache(next Store) *Cache {
	return &Cache{next: next}
}

// Load implements Store.
func (c *Cache) Load(ctx context.Context, name string) (*plan.Plan, error) {
	if p, ok := c.plans.Load(name); ok {
		return p.(*plan.Plan), nil
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		if p, ok := c.plans.Load(name); ok {
			return p, nil
		}
		p, err := c.next.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		c.plans.Store(name, p)
		ctxlog.FromContext(ctx).Debug("Plan cached.", "plan", name)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*plan.Plan), nil
}

// Names implements Store.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	return c.next.Names(ctx)
}

// Invalidate drops name from the cache; the next Load re-reads it.
func (c *Cache) Invalidate(name string) {
	c.plans.Delete(name)
}

// Reset drops every cached plan.
func (c *Cache) Reset() {
	c.plans.Clear()
}
