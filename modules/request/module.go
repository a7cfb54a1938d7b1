// Package request registers the blocks that read the inbound request.
package request

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "request"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers request/param and request/header.
func (m *Module) Register(r *block.Registry) {
	shape := block.Shape{Literals: []string{"name"}, Optional: []string{"default"}}
	r.RegisterFunc(Kind, "param", shape, param)
	r.RegisterFunc(Kind, "header", shape, header)
}

func param(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.LiteralString("name")
	if err != nil {
		return value.Null(), err
	}
	if v, ok := ctx.Session().Param(name); ok {
		return v, nil
	}
	if n.Has("default") {
		return n.Arg(ctx, "default")
	}
	return value.Null(), n.Invalid("missing request parameter %q", name)
}

func header(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.LiteralString("name")
	if err != nil {
		return value.Null(), err
	}
	if v, ok := ctx.Session().Header(name); ok {
		return value.String(v), nil
	}
	if n.Has("default") {
		return n.Arg(ctx, "default")
	}
	return value.Null(), nil
}
