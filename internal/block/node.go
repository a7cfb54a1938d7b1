package block

import (
	"github.com/specialistvlad/planrunner/internal/value"
)

var emptyList = value.List()

// Shape declares the slots a Node-based block accepts.
type Shape struct {
	// Blocks are required single-child slots.
	Blocks []string
	// Optional are single-child slots that may be absent.
	Optional []string
	// Lists are child-list slots; an absent list reads as empty.
	Lists []string
	// Literals are required literal slots.
	Literals []string
	// OptionalLiterals are literal slots that may be absent.
	OptionalLiterals []string
}

func (s Shape) allows(name string) bool {
	for _, group := range [][]string{s.Blocks, s.Optional, s.Lists, s.Literals, s.OptionalLiterals} {
		for _, n := range group {
			if n == name {
				return true
			}
		}
	}
	return false
}

// Node is the generic composite used by most capability blocks: a fixed
// set of named children, child lists and literals.
type Node struct {
	Base
	shape    Shape
	args     map[string]Block
	lists    map[string]*Aggregator
	literals map[string]value.Value
}

// EvalFunc implements the node-specific logic of a Func block.
type EvalFunc func(ctx *Context, n *Node) (value.Value, error)

// Func is a Node whose behaviour is supplied by an EvalFunc.
type Func struct {
	*Node
	fn EvalFunc
}

// Evaluate implements Block.
func (f *Func) Evaluate(ctx *Context) (value.Value, error) {
	return f.fn(ctx, f.Node)
}

// NewNode builds a Node programmatically. Missing optional slots are left
// unset.
func NewNode(key Key, extra map[string]any, shape Shape, args map[string]Block, lists map[string]*Aggregator, literals map[string]value.Value) *Node {
	n := &Node{
		Base:     NewBase(key, extra),
		shape:    shape,
		args:     make(map[string]Block, len(args)),
		lists:    make(map[string]*Aggregator, len(lists)),
		literals: make(map[string]value.Value, len(literals)),
	}
	for k, v := range args {
		n.args[k] = v
	}
	for k, v := range lists {
		n.lists[k] = v
	}
	for k, v := range literals {
		n.literals[k] = v
	}
	return n
}

// NewFunc wraps a Node with its behaviour.
func NewFunc(n *Node, fn EvalFunc) *Func {
	return &Func{Node: n, fn: fn}
}

// ParseNode builds a Node from t according to shape. Unknown or missing
// slots are MalformedTemplate faults.
func ParseNode(reg *Registry, t *Template, shape Shape) (*Node, error) {
	for _, name := range t.SlotNames() {
		if !shape.allows(name) {
			return nil, malformed(t.Key(), t.Extra, "unknown slot %q", name)
		}
	}

	n := NewNode(t.Key(), t.Extra, shape, nil, nil, nil)
	for _, name := range shape.Blocks {
		b, err := reg.ParseSlot(t, name)
		if err != nil {
			return nil, err
		}
		n.args[name] = b
	}
	for _, name := range shape.Optional {
		b, err := reg.ParseOptionalSlot(t, name)
		if err != nil {
			return nil, err
		}
		if b != nil {
			n.args[name] = b
		}
	}
	for _, name := range shape.Lists {
		agg, err := reg.ParseStatements(t, name)
		if err != nil {
			return nil, err
		}
		n.lists[name] = agg
	}
	for _, name := range shape.Literals {
		slot, ok, err := Literal(t, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, malformed(t.Key(), t.Extra, "missing required slot %q", name)
		}
		n.literals[name] = slot.Literal
	}
	for _, name := range shape.OptionalLiterals {
		slot, ok, err := Literal(t, name)
		if err != nil {
			return nil, err
		}
		if ok {
			n.literals[name] = slot.Literal
		}
	}
	return n, nil
}

// FuncFactory returns a Factory producing Func blocks of the given shape.
func FuncFactory(shape Shape, fn EvalFunc) Factory {
	return func(reg *Registry, t *Template) (Block, error) {
		n, err := ParseNode(reg, t, shape)
		if err != nil {
			return nil, err
		}
		return NewFunc(n, fn), nil
	}
}

// RegisterFunc registers a Func block.
func (r *Registry) RegisterFunc(kind, action string, shape Shape, fn EvalFunc) {
	r.Register(kind, action, FuncFactory(shape, fn))
}

// Template implements Block.
func (n *Node) Template() *Template {
	t := n.NewTemplate()
	for name, b := range n.args {
		t.WithBlock(name, b.Template())
	}
	for name, agg := range n.lists {
		t.WithList(name, agg.Templates()...)
	}
	for name, v := range n.literals {
		t.WithLiteral(name, v)
	}
	return t
}

// Has reports whether a single-child slot is set.
func (n *Node) Has(name string) bool {
	_, ok := n.args[name]
	return ok
}

// Child returns a single-child slot.
func (n *Node) Child(name string) (Block, bool) {
	b, ok := n.args[name]
	return b, ok
}

// List returns a child-list slot; absent lists are empty.
func (n *Node) List(name string) *Aggregator {
	if agg, ok := n.lists[name]; ok {
		return agg
	}
	return NewAggregator()
}

// LiteralValue returns a literal slot.
func (n *Node) LiteralValue(name string) (value.Value, bool) {
	v, ok := n.literals[name]
	return v, ok
}
