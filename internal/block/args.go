package block

import (
	"github.com/specialistvlad/planrunner/internal/value"
)

// Arg evaluates a single-child slot. It fails with InvalidArgument when the
// slot is not set.
func (n *Node) Arg(ctx *Context, name string) (value.Value, error) {
	b, ok := n.args[name]
	if !ok {
		return value.Null(), n.Invalid("%s is required", name)
	}
	return Eval(ctx, b)
}

// expect evaluates a slot and checks its variant.
func (n *Node) expect(ctx *Context, name string, kind value.Kind) (value.Value, error) {
	v, err := n.Arg(ctx, name)
	if err != nil {
		return value.Null(), err
	}
	if v.Kind() != kind {
		return value.Null(), n.Invalid("%s must be %s, got %s", name, kind, v.Kind())
	}
	return v, nil
}

// String evaluates a slot that must produce a String.
func (n *Node) String(ctx *Context, name string) (string, error) {
	v, err := n.expect(ctx, name, value.KindString)
	if err != nil {
		return "", err
	}
	s, _ := v.AsString()
	return s, nil
}

// Int evaluates a slot that must produce an Integer.
func (n *Node) Int(ctx *Context, name string) (int64, error) {
	v, err := n.expect(ctx, name, value.KindInteger)
	if err != nil {
		return 0, err
	}
	i, _ := v.AsInt()
	return i, nil
}

// Number evaluates a slot that must produce an Integer or a Float.
func (n *Node) Number(ctx *Context, name string) (float64, error) {
	v, err := n.Arg(ctx, name)
	if err != nil {
		return 0, err
	}
	f, ok := v.AsNumber()
	if !ok {
		return 0, n.Invalid("%s must be a number, got %s", name, v.Kind())
	}
	return f, nil
}

// Bool evaluates a slot that must produce a Boolean.
func (n *Node) Bool(ctx *Context, name string) (bool, error) {
	v, err := n.expect(ctx, name, value.KindBoolean)
	if err != nil {
		return false, err
	}
	b, _ := v.AsBool()
	return b, nil
}

// ListArg evaluates a slot that must produce a List.
func (n *Node) ListArg(ctx *Context, name string) ([]value.Value, error) {
	v, err := n.expect(ctx, name, value.KindList)
	if err != nil {
		return nil, err
	}
	l, _ := v.AsList()
	return l, nil
}

// MapArg evaluates a slot that must produce a Map.
func (n *Node) MapArg(ctx *Context, name string) (map[string]value.Value, error) {
	v, err := n.expect(ctx, name, value.KindMap)
	if err != nil {
		return nil, err
	}
	m, _ := v.AsMap()
	return m, nil
}

// StringOr is String for optional slots.
func (n *Node) StringOr(ctx *Context, name, def string) (string, error) {
	if !n.Has(name) {
		return def, nil
	}
	return n.String(ctx, name)
}

// IntOr is Int for optional slots.
func (n *Node) IntOr(ctx *Context, name string, def int64) (int64, error) {
	if !n.Has(name) {
		return def, nil
	}
	return n.Int(ctx, name)
}

// Values evaluates every child of a list slot, left to right.
func (n *Node) Values(ctx *Context, name string) ([]value.Value, error) {
	children := n.List(name).Children()
	out := make([]value.Value, len(children))
	for i, child := range children {
		v, err := Eval(ctx, child)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Strings evaluates a list slot whose children must all produce Strings.
func (n *Node) Strings(ctx *Context, name string) ([]string, error) {
	values, err := n.Values(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.AsString()
		if !ok {
			return nil, n.Invalid("%s[%d] must be String, got %s", name, i, v.Kind())
		}
		out[i] = s
	}
	return out, nil
}

// LiteralString returns a literal slot that must hold a String.
func (n *Node) LiteralString(name string) (string, error) {
	v, ok := n.literals[name]
	if !ok {
		return "", n.Invalid("%s is required", name)
	}
	s, ok := v.AsString()
	if !ok {
		return "", n.Invalid("%s must be String, got %s", name, v.Kind())
	}
	return s, nil
}

// LiteralStringOr is LiteralString for optional literals.
func (n *Node) LiteralStringOr(name, def string) (string, error) {
	if _, ok := n.literals[name]; !ok {
		return def, nil
	}
	return n.LiteralString(name)
}
