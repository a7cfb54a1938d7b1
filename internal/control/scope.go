package control

import (
	"errors"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/scope"
)

// scoped runs body inside a fresh scope frame owned by b. The frame is
// popped on every exit path, including faults and panics raised by body.
func scoped(ctx *block.Context, b block.Block, body func(*scope.Frame) error) (err error) {
	stack := ctx.Scope()
	frame, err := stack.Push()
	if err != nil {
		if errors.Is(err, scope.ErrOverflow) {
			return fault.New(fault.LimitExceeded, b.Key(), b.Extra().Snapshot(), err.Error())
		}
		return block.Foreign(ctx, b, fault.Runtime, err)
	}
	defer func() {
		if perr := stack.Pop(); perr != nil && err == nil {
			err = block.Foreign(ctx, b, fault.Runtime, perr)
		}
	}()
	return body(frame)
}
