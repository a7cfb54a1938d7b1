package control

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/specialistvlad/planrunner/internal/value"
)

var foreachShape = block.Shape{
	Blocks:   []string{"items"},
	Lists:    []string{"statements"},
	Literals: []string{"as"},
}

// Foreach runs its statements once per element of the "items" List, each
// iteration in its own scope frame binding the element under the "as" name
// and its position under "<as>_index". It yields the List of the last
// statement value of every iteration.
type Foreach struct {
	*block.Node
	as string
}

func parseForeach(reg *block.Registry, t *block.Template) (block.Block, error) {
	n, err := block.ParseNode(reg, t, foreachShape)
	if err != nil {
		return nil, err
	}
	as, err := n.LiteralString("as")
	if err != nil {
		return nil, err
	}
	if as == "" {
		return nil, fault.New(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(), "as must not be empty")
	}
	return &Foreach{Node: n, as: as}, nil
}

// Evaluate implements block.Block.
func (f *Foreach) Evaluate(ctx *block.Context) (value.Value, error) {
	items, err := f.ListArg(ctx, "items")
	if err != nil {
		return value.Null(), err
	}

	statements := f.List("statements")
	results := make([]value.Value, 0, len(items))
	for i, item := range items {
		err := scoped(ctx, f, func(frame *scope.Frame) error {
			frame.Set(f.as, item)
			frame.Set(f.as+"_index", value.Int(int64(i)))
			ctx.SetLast(value.Null())
			return block.RunStatements(ctx, statements)
		})
		if err != nil {
			return value.Null(), err
		}
		results = append(results, ctx.Last())
	}
	return value.List(results...), nil
}
