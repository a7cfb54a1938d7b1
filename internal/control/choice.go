package control

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

var choiceShape = block.Shape{Lists: []string{"branches"}}

// Choice dispatches over a single if/elseif/else chain held in its
// "branches" slot and yields Boolean(true) when any branch ran.
type Choice struct {
	*block.Node
}

// NewChoice builds a dispatcher over branches.
func NewChoice(branches ...block.Branch) (*Choice, error) {
	children := make([]block.Block, len(branches))
	for i, b := range branches {
		children[i] = b
	}
	n := block.NewNode(block.Key{Kind: Kind, Action: "choice"}, nil, choiceShape, nil,
		map[string]*block.Aggregator{"branches": block.NewAggregator(children...)}, nil)
	return newChoice(n)
}

func parseChoice(reg *block.Registry, t *block.Template) (block.Block, error) {
	n, err := block.ParseNode(reg, t, choiceShape)
	if err != nil {
		return nil, err
	}
	return newChoice(n)
}

func newChoice(n *block.Node) (*Choice, error) {
	branches := n.List("branches")
	if err := block.ValidateChains(branches); err != nil {
		return nil, err
	}
	for i, child := range branches.Children() {
		role := block.RoleOf(child)
		if role == block.RoleNone {
			return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(),
				"branches[%d]: expected if, elseif or else, got %s", i, child.Key())
		}
		if i > 0 && role == block.RoleIf {
			return nil, fault.Newf(fault.MalformedTemplate, n.Key(), n.Extra().Snapshot(),
				"branches[%d]: a choice holds a single chain", i)
		}
	}
	return &Choice{Node: n}, nil
}

// Evaluate implements block.Block.
func (c *Choice) Evaluate(ctx *block.Context) (value.Value, error) {
	taken := false
	if err := block.RunChain(ctx, c.List("branches"), &taken); err != nil {
		return value.Null(), err
	}
	return value.Bool(taken), nil
}
