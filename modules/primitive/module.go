// Package primitive registers the leaf constant blocks and the list and map
// constructors.
package primitive

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "primitive"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers the primitive blocks.
func (m *Module) Register(r *block.Registry) {
	r.Register(Kind, "string", constant(value.KindString))
	r.Register(Kind, "integer", constant(value.KindInteger))
	r.Register(Kind, "float", constant(value.KindFloat, value.KindInteger))
	r.Register(Kind, "boolean", constant(value.KindBoolean))
	r.RegisterFunc(Kind, "null", block.Shape{}, func(*block.Context, *block.Node) (value.Value, error) {
		return value.Null(), nil
	})
	r.RegisterFunc(Kind, "list", block.Shape{Lists: []string{"items"}}, evalList)
	r.Register(Kind, "map", parseMap)
}

// constant parses a block whose "value" literal must have one of kinds and
// is returned as is (Integer literals of a float block become Float).
func constant(kinds ...value.Kind) block.Factory {
	shape := block.Shape{Literals: []string{"value"}}
	return func(reg *block.Registry, t *block.Template) (block.Block, error) {
		n, err := block.ParseNode(reg, t, shape)
		if err != nil {
			return nil, err
		}
		v, _ := n.LiteralValue("value")
		if !oneOf(v.Kind(), kinds) {
			return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(),
				"value must be %s, got %s", kinds[0], v.Kind())
		}
		if kinds[0] == value.KindFloat && v.Kind() != value.KindFloat {
			// Whole floats arrive as Integer from JSON; keep the literal a
			// Float so the template encodes the same way every time.
			f, _ := v.AsNumber()
			v = value.Float(f)
			n = block.NewNode(t.Key(), t.Extra, shape, nil, nil, map[string]value.Value{"value": v})
		}
		return block.NewFunc(n, func(*block.Context, *block.Node) (value.Value, error) {
			return v, nil
		}), nil
	}
}

func oneOf(k value.Kind, kinds []value.Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func evalList(ctx *block.Context, n *block.Node) (value.Value, error) {
	items, err := n.Values(ctx, "items")
	if err != nil {
		return value.Null(), err
	}
	return value.List(items...), nil
}

var mapShape = block.Shape{Literals: []string{"keys"}, Lists: []string{"values"}}

func parseMap(reg *block.Registry, t *block.Template) (block.Block, error) {
	n, err := block.ParseNode(reg, t, mapShape)
	if err != nil {
		return nil, err
	}
	keysV, _ := n.LiteralValue("keys")
	list, ok := keysV.AsList()
	if !ok {
		return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(), "keys must be List, got %s", keysV.Kind())
	}
	keys := make([]string, len(list))
	for i, k := range list {
		s, ok := k.AsString()
		if !ok {
			return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(), "keys[%d] must be String, got %s", i, k.Kind())
		}
		keys[i] = s
	}
	if len(keys) != n.List("values").Len() {
		return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(),
			"%d keys but %d values", len(keys), n.List("values").Len())
	}

	return block.NewFunc(n, func(ctx *block.Context, n *block.Node) (value.Value, error) {
		values, err := n.Values(ctx, "values")
		if err != nil {
			return value.Null(), err
		}
		m := make(map[string]value.Value, len(keys))
		for i, k := range keys {
			m[k] = values[i]
		}
		return value.Map(m), nil
	}), nil
}
