package control

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/expr"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/specialistvlad/planrunner/internal/value"
)

var conditionalShape = block.Shape{Lists: []string{"expression", "statements"}}

// Conditional is an if or elseif branch. Evaluating it opens a scope frame,
// tests the condition and, when it holds, runs the statements in that frame.
// The result is Boolean: whether the branch was taken.
type Conditional struct {
	*block.Node
	role     block.Role
	operands []block.Block
	ops      []expr.Op
}

// NewConditional builds a branch from alternating operand and operator
// blocks.
func NewConditional(role block.Role, expression []block.Block, statements ...block.Block) (*Conditional, error) {
	action := "if"
	if role == block.RoleElseif {
		action = "elseif"
	}
	n := block.NewNode(block.Key{Kind: Kind, Action: action}, nil, conditionalShape, nil, map[string]*block.Aggregator{
		"expression": block.NewAggregator(expression...),
		"statements": block.NewAggregator(statements...),
	}, nil)
	return newConditional(n, role)
}

func conditionalFactory(role block.Role) block.Factory {
	return func(reg *block.Registry, t *block.Template) (block.Block, error) {
		n, err := block.ParseNode(reg, t, conditionalShape)
		if err != nil {
			return nil, err
		}
		return newConditional(n, role)
	}
}

func newConditional(n *block.Node, role block.Role) (*Conditional, error) {
	c := &Conditional{Node: n, role: role}
	for i, child := range n.List("expression").Children() {
		op, isOp := child.(*Operator)
		switch {
		case i%2 == 0 && isOp:
			return nil, c.malformed("expression[%d]: expected an operand, got operator %s", i, op.Op())
		case i%2 == 1 && !isOp:
			return nil, c.malformed("expression[%d]: expected an operator, got %s", i, child.Key())
		case isOp:
			c.ops = append(c.ops, op.Op())
		default:
			c.operands = append(c.operands, child)
		}
	}
	if len(c.operands) == 0 {
		return nil, c.malformed("expression is empty")
	}
	if len(c.ops) != len(c.operands)-1 {
		return nil, c.malformed("expression must end with an operand")
	}
	return c, nil
}

func (c *Conditional) malformed(format string, args ...any) error {
	return fault.Newf(fault.MalformedTemplate, c.Key(), c.Extra().Snapshot(), format, args...)
}

// Role implements block.Branch.
func (c *Conditional) Role() block.Role { return c.role }

// Test evaluates the condition alone, in the current frame.
func (c *Conditional) Test(ctx *block.Context) (bool, error) {
	operands := make([]expr.Operand, len(c.operands))
	for i, child := range c.operands {
		operands[i] = func() (value.Value, error) {
			return block.Eval(ctx, child)
		}
	}
	ok, err := expr.Evaluate(operands, c.ops)
	if err != nil && expr.IsError(err) {
		return false, c.Invalid("%s", err.Error())
	}
	return ok, err
}

// Evaluate implements block.Block. The frame is pushed before the
// condition is tested, so condition operands and statements share it, and
// it is popped whether or not the branch is taken.
func (c *Conditional) Evaluate(ctx *block.Context) (value.Value, error) {
	taken := false
	err := scoped(ctx, c, func(*scope.Frame) error {
		ok, err := c.Test(ctx)
		if err != nil || !ok {
			return err
		}
		taken = true
		ctx.Logger().Debug("Branch taken.", "action", c.Key().Action)
		return block.RunStatements(ctx, c.List("statements"))
	})
	if err != nil {
		return value.Null(), err
	}
	return value.Bool(taken), nil
}

// Else is the fallback branch of a chain. It always runs its statements.
type Else struct {
	*block.Node
}

var elseShape = block.Shape{Lists: []string{"statements"}}

// NewElse builds an else branch.
func NewElse(statements ...block.Block) *Else {
	return &Else{Node: block.NewNode(block.Key{Kind: Kind, Action: "else"}, nil, elseShape, nil,
		map[string]*block.Aggregator{"statements": block.NewAggregator(statements...)}, nil)}
}

func parseElse(reg *block.Registry, t *block.Template) (block.Block, error) {
	n, err := block.ParseNode(reg, t, elseShape)
	if err != nil {
		return nil, err
	}
	return &Else{Node: n}, nil
}

// Role implements block.Branch.
func (e *Else) Role() block.Role { return block.RoleElse }

// Evaluate implements block.Block.
func (e *Else) Evaluate(ctx *block.Context) (value.Value, error) {
	ctx.Logger().Debug("Branch taken.", "action", "else")
	if err := runBody(ctx, e, e.List("statements")); err != nil {
		return value.Null(), err
	}
	return value.Bool(true), nil
}

func runBody(ctx *block.Context, owner block.Block, statements *block.Aggregator) error {
	return scoped(ctx, owner, func(*scope.Frame) error {
		return block.RunStatements(ctx, statements)
	})
}
