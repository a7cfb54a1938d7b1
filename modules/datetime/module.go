// Package datetime registers the "date" blocks. Timestamps are Integer Unix
// seconds; formats use strftime specifiers.
package datetime

import (
	"time"
	// Embedded zone database so timezone slots work on minimal hosts.
	_ "time/tzdata"

	"github.com/ncruces/go-strftime"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "date"

// Module implements the block.Module interface for this package.
type Module struct {
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Register registers the date blocks.
func (m *Module) Register(r *block.Registry) {
	now := m.Now
	if now == nil {
		now = time.Now
	}
	r.RegisterFunc(Kind, "now", block.Shape{}, func(*block.Context, *block.Node) (value.Value, error) {
		return value.Int(now().Unix()), nil
	})
	r.RegisterFunc(Kind, "format", block.Shape{
		Blocks:   []string{"timestamp", "format"},
		Optional: []string{"timezone"},
	}, format)
	r.RegisterFunc(Kind, "parse", block.Shape{
		Blocks:   []string{"target", "format"},
		Optional: []string{"timezone"},
	}, parse)
	r.RegisterFunc(Kind, "add", block.Shape{Blocks: []string{"timestamp", "seconds"}}, add)
}

func location(ctx *block.Context, n *block.Node) (*time.Location, error) {
	name, err := n.StringOr(ctx, "timezone", "UTC")
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, n.Invalid("unknown timezone %q", name)
	}
	return loc, nil
}

func format(ctx *block.Context, n *block.Node) (value.Value, error) {
	ts, err := n.Int(ctx, "timestamp")
	if err != nil {
		return value.Null(), err
	}
	f, err := n.String(ctx, "format")
	if err != nil {
		return value.Null(), err
	}
	loc, err := location(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	return value.String(strftime.Format(f, time.Unix(ts, 0).In(loc))), nil
}

func parse(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	f, err := n.String(ctx, "format")
	if err != nil {
		return value.Null(), err
	}
	loc, err := location(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	t, err := strftime.Parse(f, target)
	if err != nil {
		return value.Null(), n.Invalid("cannot parse %q with %q: %v", target, f, err)
	}
	if t.Location() == time.UTC {
		// No zone in the input: read the wall clock in the requested zone.
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return value.Int(t.Unix()), nil
}

func add(ctx *block.Context, n *block.Node) (value.Value, error) {
	ts, err := n.Int(ctx, "timestamp")
	if err != nil {
		return value.Null(), err
	}
	secs, err := n.Int(ctx, "seconds")
	if err != nil {
		return value.Null(), err
	}
	return value.Int(ts + secs), nil
}
