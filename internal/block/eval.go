package block

import (
	"fmt"

	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Eval evaluates b at its fault boundary. A foreign error (or panic)
// escaping b.Evaluate is logged with b's key and wrapped as a Runtime fault
// carrying b's key and extra; typed faults are returned unchanged.
func Eval(ctx *Context, b Block) (v value.Value, err error) {
	if cerr := ctx.Context().Err(); cerr != nil {
		return value.Null(), Foreign(ctx, b, fault.Runtime, cerr)
	}

	defer func() {
		if r := recover(); r != nil {
			v = value.Null()
			err = Foreign(ctx, b, fault.Runtime, fmt.Errorf("panic: %v", r))
		}
	}()

	v, err = b.Evaluate(ctx)
	if err != nil {
		return value.Null(), Foreign(ctx, b, fault.Runtime, err)
	}
	return v, nil
}

// Foreign converts err into a fault of the given kind attributed to b,
// logging it through the session logger. Errors that already are faults
// pass through without logging or re-wrapping.
func Foreign(ctx *Context, b Block, kind fault.Kind, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := fault.As(err); ok {
		return err
	}
	key := b.Key()
	ctx.Logger().Error("Block raised an unexpected error.",
		"kind", key.Kind,
		"action", key.Action,
		"error", err,
	)
	return fault.WrapAs(kind, err, key, b.Extra().Snapshot())
}

// Role marks blocks that take part in an if/elseif/else chain.
type Role uint8

const (
	RoleNone Role = iota
	RoleIf
	RoleElseif
	RoleElse
)

// Branch is implemented by chain members. Evaluating a branch returns a
// Boolean: true when the branch was taken and the chain is resolved.
type Branch interface {
	Block
	Role() Role
}

// RoleOf returns b's chain role.
func RoleOf(b Block) Role {
	if br, ok := b.(Branch); ok {
		return br.Role()
	}
	return RoleNone
}

// ValidateChains checks that every elseif/else in agg directly follows an
// if or elseif.
func ValidateChains(agg *Aggregator) error {
	open := false
	for _, child := range agg.Children() {
		switch RoleOf(child) {
		case RoleIf:
			open = true
		case RoleElseif:
			if !open {
				return malformed(child.Key(), child.Extra().Snapshot(), "elseif without a preceding if")
			}
		case RoleElse:
			if !open {
				return malformed(child.Key(), child.Extra().Snapshot(), "else without a preceding if")
			}
			open = false
		default:
			open = false
		}
	}
	return nil
}

// RunStatements evaluates a statement list in order, stopping at the first
// fault. Within an if/elseif/else chain only the first branch whose
// condition holds (or the else) runs; later members are not evaluated.
// Values of plain statements are recorded with Context.SetLast.
func RunStatements(ctx *Context, agg *Aggregator) error {
	return RunChain(ctx, agg, nil)
}

// RunChain is RunStatements reporting, through taken, whether any chain
// branch ran.
func RunChain(ctx *Context, agg *Aggregator, taken *bool) error {
	resolved := false
	for _, child := range agg.Children() {
		role := RoleOf(child)
		switch role {
		case RoleElseif, RoleElse:
			if resolved {
				if role == RoleElse {
					resolved = false
				}
				continue
			}
		}

		v, err := Eval(ctx, child)
		if err != nil {
			return err
		}

		switch role {
		case RoleIf, RoleElseif:
			b, ok := v.AsBool()
			if !ok {
				return fault.Newf(fault.Runtime, child.Key(), child.Extra().Snapshot(), "branch returned %s, want Boolean", v.Kind())
			}
			resolved = b
		case RoleElse:
			resolved = false
		default:
			resolved = false
			ctx.SetLast(v)
			continue
		}
		if taken != nil && (role == RoleElse || resolved) {
			*taken = true
		}
	}
	return nil
}
