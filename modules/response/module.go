// Package response registers the blocks that shape the plan's response:
// status code, headers and the explicit result body.
package response

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "response"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers response/status, response/header and response/result.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "status", block.Shape{Blocks: []string{"code"}}, status)
	r.RegisterFunc(Kind, "header", block.Shape{Blocks: []string{"name", "value"}}, header)
	r.RegisterFunc(Kind, "result", block.Shape{Blocks: []string{"value"}}, result)
}

func status(ctx *block.Context, n *block.Node) (value.Value, error) {
	code, err := n.Int(ctx, "code")
	if err != nil {
		return value.Null(), err
	}
	if code < 100 || code > 599 {
		return value.Null(), n.Invalid("code must be between 100 and 599, got %d", code)
	}
	ctx.Session().SetStatus(int(code))
	return value.Int(code), nil
}

func header(ctx *block.Context, n *block.Node) (value.Value, error) {
	name, err := n.String(ctx, "name")
	if err != nil {
		return value.Null(), err
	}
	if name == "" {
		return value.Null(), n.Invalid("name must not be empty")
	}
	v, err := n.String(ctx, "value")
	if err != nil {
		return value.Null(), err
	}
	ctx.Session().SetHeader(name, v)
	return value.String(v), nil
}

func result(ctx *block.Context, n *block.Node) (value.Value, error) {
	v, err := n.Arg(ctx, "value")
	if err != nil {
		return value.Null(), err
	}
	ctx.SetResult(v)
	return v, nil
}
