// Package env_vars registers the "env" blocks, which expose the configured
// plan variables. Plans never see the process environment directly.
package env_vars

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "env"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers env/get and env/all.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "get", block.Shape{Literals: []string{"name"}, Optional: []string{"default"}}, get)
	r.RegisterFunc(Kind, "all", block.Shape{}, func(ctx *block.Context, _ *block.Node) (value.Value, error) {
		return value.Map(ctx.Session().Variables()), nil
	})
}

func get(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.LiteralString("name")
	if err != nil {
		return value.Null(), err
	}
	if v, ok := ctx.Session().Variable(name); ok {
		return v, nil
	}
	if n.Has("default") {
		return n.Arg(ctx, "default")
	}
	return value.Null(), n.Invalid("variable %q is not configured", name)
}
