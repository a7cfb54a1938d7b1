// Package expr evaluates condition expressions built from typed operand
// thunks and operator enums.
//
// Expressions never pass through a textual form: operands are Values
// produced lazily by callbacks and operators are a closed enum. Precedence
// is fixed in three tiers, each evaluated left to right:
//
//	arithmetic  + - * / %
//	comparison  == != < <= > >=   (at most one per logical group)
//	logical     and or
//
// A logical group whose result cannot change the accumulated value is
// skipped without evaluating its operands.
package expr

import (
	"fmt"
	"strings"
)

// Op is an operator token.
type Op uint8

const (
	OpInvalid Op = iota
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Tier groups operators by binding strength.
type Tier uint8

const (
	TierArithmetic Tier = iota + 1
	TierComparison
	TierLogical
)

var opNames = map[Op]string{
	OpEq:  "eq",
	OpNe:  "ne",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpAnd: "and",
	OpOr:  "or",
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpMod: "mod",
}

var opSymbols = map[Op]string{
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
}

var opsByToken = func() map[string]Op {
	m := make(map[string]Op, len(opNames)*2)
	for op, name := range opNames {
		m[name] = op
	}
	for op, sym := range opSymbols {
		m[sym] = op
	}
	return m
}()

// ParseOp resolves an operator by name ("and") or symbol ("&&").
func ParseOp(token string) (Op, error) {
	if op, ok := opsByToken[strings.ToLower(strings.TrimSpace(token))]; ok {
		return op, nil
	}
	return OpInvalid, fmt.Errorf("unknown operator %q", token)
}

// Ops returns every valid operator.
func Ops() []Op {
	return []Op{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpAnd, OpOr, OpAdd, OpSub, OpMul, OpDiv, OpMod}
}

// Name returns the canonical name used in templates.
func (o Op) Name() string { return opNames[o] }

func (o Op) String() string {
	if sym, ok := opSymbols[o]; ok {
		return sym
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Tier returns the binding tier of o.
func (o Op) Tier() Tier {
	switch o {
	case OpAnd, OpOr:
		return TierLogical
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return TierComparison
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return TierArithmetic
	}
	return 0
}
