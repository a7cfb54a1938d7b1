package block

import (
	"fmt"
	"maps"
	"sort"

	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Wire keys of a serialized block.
const (
	FieldType     = "type"
	FieldAction   = "action"
	FieldExtra    = "extra"
	FieldTemplate = "template"
)

// SlotShape distinguishes the three forms a named slot can take.
type SlotShape uint8

const (
	// ShapeBlock is a single child block.
	ShapeBlock SlotShape = iota + 1
	// ShapeList is an ordered, possibly empty, list of child blocks.
	ShapeList
	// ShapeLiteral is a statically bound value.
	ShapeLiteral
)

func (s SlotShape) String() string {
	switch s {
	case ShapeBlock:
		return "block"
	case ShapeList:
		return "list"
	case ShapeLiteral:
		return "literal"
	}
	return "unknown"
}

// Slot is one named entry of a template's "template" object.
type Slot struct {
	Shape   SlotShape
	Block   *Template
	List    []*Template
	Literal value.Value
}

// Template is the decoded wire form of a block:
//
//	{type, action, extra, template: {...named slots...}}
type Template struct {
	Type   string
	Action string
	Extra  map[string]any
	Slots  map[string]Slot
}

// NewTemplate starts a template for the given discriminator.
func NewTemplate(kind, action string) *Template {
	return &Template{
		Type:   kind,
		Action: action,
		Extra:  map[string]any{},
		Slots:  map[string]Slot{},
	}
}

// Key returns the template's (kind, action) discriminator.
func (t *Template) Key() Key {
	return Key{Kind: t.Type, Action: t.Action}
}

// WithExtra replaces the extra data.
func (t *Template) WithExtra(extra map[string]any) *Template {
	t.Extra = maps.Clone(extra)
	if t.Extra == nil {
		t.Extra = map[string]any{}
	}
	return t
}

// WithBlock sets a single-child slot.
func (t *Template) WithBlock(name string, child *Template) *Template {
	t.Slots[name] = Slot{Shape: ShapeBlock, Block: child}
	return t
}

// WithList sets a child-list slot.
func (t *Template) WithList(name string, children ...*Template) *Template {
	list := make([]*Template, len(children))
	copy(list, children)
	t.Slots[name] = Slot{Shape: ShapeList, List: list}
	return t
}

// WithLiteral sets a literal slot.
func (t *Template) WithLiteral(name string, v value.Value) *Template {
	t.Slots[name] = Slot{Shape: ShapeLiteral, Literal: v}
	return t
}

// SlotNames returns the slot names in sorted order.
func (t *Template) SlotNames() []string {
	names := make([]string, 0, len(t.Slots))
	for name := range t.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw encodes the template into its generic wire form. The "extra" and
// "template" members are always present.
func (t *Template) Raw() map[string]any {
	slots := make(map[string]any, len(t.Slots))
	for name, slot := range t.Slots {
		switch slot.Shape {
		case ShapeBlock:
			slots[name] = slot.Block.Raw()
		case ShapeList:
			list := make([]any, len(slot.List))
			for i, child := range slot.List {
				list[i] = child.Raw()
			}
			slots[name] = list
		default:
			slots[name] = value.ToNative(slot.Literal)
		}
	}

	extra := maps.Clone(t.Extra)
	if extra == nil {
		extra = map[string]any{}
	}

	return map[string]any{
		FieldType:     t.Type,
		FieldAction:   t.Action,
		FieldExtra:    extra,
		FieldTemplate: slots,
	}
}

// DecodeTemplate parses the generic wire form of a block. Nested maps that
// carry a "type" member are decoded as child blocks; anything else is a
// literal.
func DecodeTemplate(raw map[string]any) (*Template, error) {
	kind, _ := raw[FieldType].(string)
	action, _ := raw[FieldAction].(string)
	key := Key{Kind: kind, Action: action}
	if kind == "" || action == "" {
		return nil, malformed(key, nil, "block requires non-empty %q and %q strings", FieldType, FieldAction)
	}

	t := NewTemplate(kind, action)

	switch extra := raw[FieldExtra].(type) {
	case nil:
	case map[string]any:
		norm, err := normalizeMap(extra)
		if err != nil {
			return nil, malformed(key, nil, "extra: %v", err)
		}
		t.Extra = norm
	default:
		return nil, malformed(key, nil, "extra must be an object, got %T", extra)
	}

	for name := range raw {
		switch name {
		case FieldType, FieldAction, FieldExtra, FieldTemplate:
		default:
			return nil, malformed(key, t.Extra, "unknown member %q", name)
		}
	}

	var slots map[string]any
	switch s := raw[FieldTemplate].(type) {
	case nil:
	case map[string]any:
		slots = s
	default:
		return nil, malformed(key, t.Extra, "template must be an object, got %T", s)
	}

	for name, rawSlot := range slots {
		slot, err := decodeSlot(rawSlot)
		if err != nil {
			if _, ok := fault.As(err); ok {
				return nil, err
			}
			return nil, malformed(key, t.Extra, "slot %q: %v", name, err)
		}
		t.Slots[name] = slot
	}
	return t, nil
}

func decodeSlot(raw any) (Slot, error) {
	switch x := raw.(type) {
	case map[string]any:
		if _, ok := x[FieldType]; ok {
			child, err := DecodeTemplate(x)
			if err != nil {
				return Slot{}, err
			}
			return Slot{Shape: ShapeBlock, Block: child}, nil
		}
	case []any:
		blocks := 0
		for _, item := range x {
			if m, ok := item.(map[string]any); ok {
				if _, ok := m[FieldType]; ok {
					blocks++
				}
			}
		}
		switch {
		case len(x) == 0 || blocks == len(x):
			list := make([]*Template, len(x))
			for i, item := range x {
				child, err := DecodeTemplate(item.(map[string]any))
				if err != nil {
					return Slot{}, err
				}
				list[i] = child
			}
			return Slot{Shape: ShapeList, List: list}, nil
		case blocks > 0:
			return Slot{}, fmt.Errorf("list mixes blocks and literals")
		}
	}

	lit, err := value.FromNative(raw)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Shape: ShapeLiteral, Literal: lit}, nil
}

// normalizeMap converts decoder-specific scalars (json.Number, sized ints)
// into the canonical native forms so that re-encoding is stable.
func normalizeMap(m map[string]any) (map[string]any, error) {
	v, err := value.FromNative(m)
	if err != nil {
		return nil, err
	}
	return value.ToNative(v).(map[string]any), nil
}

func malformed(key Key, extra map[string]any, format string, args ...any) *fault.Fault {
	return fault.Newf(fault.MalformedTemplate, key, extra, format, args...)
}
