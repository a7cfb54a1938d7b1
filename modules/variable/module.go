// Package variable registers the blocks that read and write plan variables.
//
// Variables live in scope frames: set assigns in the nearest frame that
// already declares the name, otherwise in the innermost frame. get falls
// back to the request parameters when no frame declares the name.
package variable

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "variable"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers variable/get and variable/set.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "get", block.Shape{Literals: []string{"name"}}, get)
	r.RegisterFunc(Kind, "set", block.Shape{Literals: []string{"name"}, Blocks: []string{"value"}}, set)
}

func get(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.LiteralString("name")
	if err != nil {
		return value.Null(), err
	}
	if v, ok := ctx.Scope().Lookup(name); ok {
		return v, nil
	}
	if v, ok := ctx.Session().Param(name); ok {
		return v, nil
	}
	return value.Null(), n.Invalid("variable %q is not defined", name)
}

func set(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.LiteralString("name")
	if err != nil {
		return value.Null(), err
	}
	v, err := n.Arg(ctx, "value")
	if err != nil {
		return value.Null(), err
	}
	if err := ctx.Scope().Assign(name, v); err != nil {
		return value.Null(), err
	}
	ctx.Logger().Debug("Variable set.", "name", name, "kind", v.Kind().String())
	return v, nil
}
