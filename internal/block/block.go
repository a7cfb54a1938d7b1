// Package block defines the interpreter's unit of evaluation.
//
// A Block is a node identified by a (kind, action) pair. Blocks are built
// from their wire Template by a Registry, serialize back to an equivalent
// Template, and are evaluated any number of times against a per-run
// Context. Composite blocks evaluate their children eagerly, left to right,
// through Eval, which is also the fault boundary: foreign errors are logged
// and wrapped exactly once, typed faults pass through untouched.
package block

import (
	"maps"

	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Key is the (kind, action) discriminator of a block.
type Key = fault.Key

// Block is the polymorphic contract every node of a plan implements.
type Block interface {
	// Key returns the (kind, action) discriminator.
	Key() Key
	// Extra returns the diagnostic metadata attached at parse time.
	Extra() Extra
	// Template serializes the block back into its wire form.
	Template() *Template
	// Evaluate executes the node. Callers should go through Eval rather
	// than calling Evaluate directly.
	Evaluate(ctx *Context) (value.Value, error)
}

// Extra is the read-only metadata bag attached 1:1 to a block. It is
// surfaced verbatim in fault reports.
type Extra struct {
	data map[string]any
}

// NewExtra copies data into an Extra.
func NewExtra(data map[string]any) Extra {
	return Extra{data: maps.Clone(data)}
}

// Get returns a single entry.
func (e Extra) Get(key string) (any, bool) {
	v, ok := e.data[key]
	return v, ok
}

// Len returns the number of entries.
func (e Extra) Len() int { return len(e.data) }

// Snapshot returns a copy safe to hand to a fault.
func (e Extra) Snapshot() map[string]any {
	if e.data == nil {
		return map[string]any{}
	}
	return maps.Clone(e.data)
}

// Aggregator is an ordered, possibly empty, list of child blocks.
// Order is significant; there is no identity or duplicate detection.
type Aggregator struct {
	children []Block
}

// NewAggregator builds an aggregator over children, in order.
func NewAggregator(children ...Block) *Aggregator {
	cp := make([]Block, len(children))
	copy(cp, children)
	return &Aggregator{children: cp}
}

// Children returns the children in order.
func (a *Aggregator) Children() []Block {
	if a == nil {
		return nil
	}
	cp := make([]Block, len(a.children))
	copy(cp, a.children)
	return cp
}

// Len returns the number of children.
func (a *Aggregator) Len() int {
	if a == nil {
		return 0
	}
	return len(a.children)
}

// At returns the i-th child.
func (a *Aggregator) At(i int) Block { return a.children[i] }

// Templates serializes every child.
func (a *Aggregator) Templates() []*Template {
	out := make([]*Template, a.Len())
	for i, child := range a.Children() {
		out[i] = child.Template()
	}
	return out
}

// Base carries the identity shared by every block implementation.
type Base struct {
	key   Key
	extra Extra
}

// NewBase builds a Base for key and extra.
func NewBase(key Key, extra map[string]any) Base {
	return Base{key: key, extra: NewExtra(extra)}
}

// Key implements Block.
func (b Base) Key() Key { return b.key }

// Extra implements Block.
func (b Base) Extra() Extra { return b.extra }

// NewTemplate starts a template carrying this block's key and extra.
func (b Base) NewTemplate() *Template {
	return NewTemplate(b.key.Kind, b.key.Action).WithExtra(b.extra.data)
}

// Invalid returns an InvalidArgument fault attributed to this block.
func (b Base) Invalid(format string, args ...any) error {
	return fault.Newf(fault.InvalidArgument, b.key, b.extra.Snapshot(), format, args...)
}

// Fault returns a fault of the given kind attributed to this block.
func (b Base) Fault(kind fault.Kind, msg string, opts ...fault.Option) error {
	return fault.New(kind, b.key, b.extra.Snapshot(), msg, opts...)
}
