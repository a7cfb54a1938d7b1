// Package control implements the control-flow blocks: the if/elseif/else
// chain, the choice dispatcher, foreach, and the operator tokens used in
// branch conditions.
//
// A branch condition is an expression slot: a list alternating operand
// blocks and operator blocks, starting and ending with an operand. It is
// evaluated by the expr package; operands are evaluated lazily so that
// short-circuited groups never run.
package control

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/expr"
)

const (
	// Kind is the block kind of the control-flow blocks.
	Kind = "control"
	// OperatorKind is the block kind of operator tokens.
	OperatorKind = "operator"
)

// Module registers the control-flow and operator blocks.
type Module struct{}

// Register implements the block.Module interface.
func (m *Module) Register(r *block.Registry) {
	r.Register(Kind, "if", conditionalFactory(block.RoleIf))
	r.Register(Kind, "elseif", conditionalFactory(block.RoleElseif))
	r.Register(Kind, "else", parseElse)
	r.Register(Kind, "choice", parseChoice)
	r.Register(Kind, "foreach", parseForeach)

	for _, op := range expr.Ops() {
		r.Register(OperatorKind, op.Name(), operatorFactory(op))
	}
}
