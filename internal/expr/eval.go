package expr

import (
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/planrunner/internal/value"
)

// Operand lazily produces one operand value.
type Operand func() (value.Value, error)

// Error reports a malformed expression or an operator applied to operands
// of the wrong variant. Errors returned by Operand callbacks are passed
// through unchanged and never wrapped in an Error.
type Error struct {
	Op      Op
	Message string
}

func (e *Error) Error() string {
	if e.Op == OpInvalid {
		return "expression: " + e.Message
	}
	return fmt.Sprintf("expression: operator %s: %s", e.Op, e.Message)
}

func errorf(op Op, format string, args ...any) *Error {
	return &Error{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is an evaluator Error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Expression is an alternating sequence of operands and operators.
type Expression struct {
	operands []Operand
	ops      []Op
}

// New validates the shape of an expression: it must contain at least one
// operand and exactly one operator between each pair of operands.
func New(operands []Operand, ops []Op) (*Expression, error) {
	if len(operands) == 0 {
		return nil, errorf(OpInvalid, "empty expression")
	}
	if len(ops) != len(operands)-1 {
		return nil, errorf(OpInvalid, "%d operands need %d operators, got %d", len(operands), len(operands)-1, len(ops))
	}
	for _, op := range ops {
		if op.Tier() == 0 {
			return nil, errorf(op, "invalid operator")
		}
	}
	return &Expression{operands: operands, ops: ops}, nil
}

// group is a run of operands joined by arithmetic and comparison operators.
type group struct {
	operands []Operand
	ops      []Op
}

func (e *Expression) groups() ([]group, []Op) {
	var (
		groups  []group
		logical []Op
		cur     = group{operands: []Operand{e.operands[0]}}
	)
	for i, op := range e.ops {
		next := e.operands[i+1]
		if op.Tier() == TierLogical {
			groups = append(groups, cur)
			logical = append(logical, op)
			cur = group{operands: []Operand{next}}
			continue
		}
		cur.operands = append(cur.operands, next)
		cur.ops = append(cur.ops, op)
	}
	return append(groups, cur), logical
}

// Evaluate computes the Boolean result of the expression.
func (e *Expression) Evaluate() (bool, error) {
	groups, logical := e.groups()

	acc, err := groups[0].evaluate()
	if err != nil {
		return false, err
	}
	for i, op := range logical {
		if (op == OpAnd && !acc) || (op == OpOr && acc) {
			continue
		}
		acc, err = groups[i+1].evaluate()
		if err != nil {
			return false, err
		}
	}
	return acc, nil
}

// Evaluate is a convenience wrapper around New and Expression.Evaluate.
func Evaluate(operands []Operand, ops []Op) (bool, error) {
	e, err := New(operands, ops)
	if err != nil {
		return false, err
	}
	return e.Evaluate()
}

func (g group) evaluate() (bool, error) {
	cmpAt := -1
	for i, op := range g.ops {
		if op.Tier() == TierComparison {
			if cmpAt >= 0 {
				return false, errorf(op, "chained comparison, combine comparisons with and/or")
			}
			cmpAt = i
		}
	}

	if cmpAt < 0 {
		v, err := arithmetic(g.operands, g.ops)
		if err != nil {
			return false, err
		}
		b, ok := v.AsBool()
		if !ok {
			return false, errorf(OpInvalid, "condition must be Boolean, got %s", v.Kind())
		}
		return b, nil
	}

	left, err := arithmetic(g.operands[:cmpAt+1], g.ops[:cmpAt])
	if err != nil {
		return false, err
	}
	right, err := arithmetic(g.operands[cmpAt+1:], g.ops[cmpAt+1:])
	if err != nil {
		return false, err
	}
	return compare(g.ops[cmpAt], left, right)
}

func arithmetic(operands []Operand, ops []Op) (value.Value, error) {
	acc, err := operands[0]()
	if err != nil {
		return value.Value{}, err
	}
	for i, op := range ops {
		rhs, err := operands[i+1]()
		if err != nil {
			return value.Value{}, err
		}
		acc, err = Apply(op, acc, rhs)
		if err != nil {
			return value.Value{}, err
		}
	}
	return acc, nil
}

func compare(op Op, a, b value.Value) (bool, error) {
	switch op {
	case OpEq:
		return a.Equal(b), nil
	case OpNe:
		return !a.Equal(b), nil
	}
	c, ok := value.Compare(a, b)
	if !ok {
		return false, errorf(op, "cannot order %s and %s", a.Kind(), b.Kind())
	}
	switch op {
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	}
	return false, errorf(op, "not a comparison")
}

// Apply evaluates a single arithmetic operator. Integer operands stay
// Integer (division truncates); any Float operand yields a Float. Add also
// concatenates two Strings.
func Apply(op Op, a, b value.Value) (value.Value, error) {
	if op.Tier() != TierArithmetic {
		return value.Value{}, errorf(op, "not an arithmetic operator")
	}

	if op == OpAdd {
		if x, ok := a.AsString(); ok {
			if y, ok := b.AsString(); ok {
				return value.String(x + y), nil
			}
		}
	}

	if !a.IsNumber() || !b.IsNumber() {
		return value.Value{}, errorf(op, "requires two numbers, got %s and %s", a.Kind(), b.Kind())
	}

	x, xInt := a.AsInt()
	y, yInt := b.AsInt()
	if xInt && yInt {
		switch op {
		case OpAdd:
			return value.Int(x + y), nil
		case OpSub:
			return value.Int(x - y), nil
		case OpMul:
			return value.Int(x * y), nil
		case OpDiv, OpMod:
			if y == 0 {
				return value.Value{}, errorf(op, "division by zero")
			}
			if op == OpDiv {
				return value.Int(x / y), nil
			}
			return value.Int(x % y), nil
		}
	}

	f, _ := a.AsNumber()
	g, _ := b.AsNumber()
	switch op {
	case OpAdd:
		return value.Float(f + g), nil
	case OpSub:
		return value.Float(f - g), nil
	case OpMul:
		return value.Float(f * g), nil
	case OpDiv:
		if g == 0 {
			return value.Value{}, errorf(op, "division by zero")
		}
		return value.Float(f / g), nil
	case OpMod:
		if g == 0 {
			return value.Value{}, errorf(op, "division by zero")
		}
		return value.Float(math.Mod(f, g)), nil
	}
	return value.Value{}, errorf(op, "unsupported")
}
