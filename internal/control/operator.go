package control

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/expr"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Operator is a token block. Evaluated on its own it yields its operator
// name as a String.
type Operator struct {
	block.Base
	op expr.Op
}

// NewOperator builds an operator token.
func NewOperator(op expr.Op) *Operator {
	return &Operator{Base: block.NewBase(block.Key{Kind: OperatorKind, Action: op.Name()}, nil), op: op}
}

// Op returns the operator.
func (o *Operator) Op() expr.Op { return o.op }

// Evaluate implements block.Block.
func (o *Operator) Evaluate(*block.Context) (value.Value, error) {
	return value.String(o.op.Name()), nil
}

// Template implements block.Block.
func (o *Operator) Template() *block.Template {
	return o.NewTemplate()
}

func operatorFactory(op expr.Op) block.Factory {
	return func(reg *block.Registry, t *block.Template) (block.Block, error) {
		if _, err := block.ParseNode(reg, t, block.Shape{}); err != nil {
			return nil, err
		}
		return &Operator{Base: block.NewBase(t.Key(), t.Extra), op: op}, nil
	}
}
