package block

import (
	"fmt"
	"log/slog"
	"sort"
)

// Factory builds a block from its decoded template. Factories parse their
// children through the registry they are handed.
type Factory func(reg *Registry, t *Template) (Block, error)

// Module is implemented by every package that contributes block kinds.
type Module interface {
	Register(r *Registry)
}

// Registry maps (kind, action) discriminators to factories. It is filled
// once at startup and read concurrently afterwards.
type Registry struct {
	factories map[Key]Factory
	kinds     map[string]int
}

// NewRegistry creates an empty registry and registers the given modules.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{
		factories: make(map[Key]Factory),
		kinds:     make(map[string]int),
	}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a factory. Registering the same key twice is a programmer
// error and panics.
func (r *Registry) Register(kind, action string, f Factory) {
	key := Key{Kind: kind, Action: action}
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("block factory for '%s' already registered", key))
	}
	slog.Debug("Registering block factory.", "kind", kind, "action", action)
	r.factories[key] = f
	r.kinds[kind]++
}

// Has reports whether key is registered.
func (r *Registry) Has(key Key) bool {
	_, ok := r.factories[key]
	return ok
}

// Keys returns every registered key, sorted.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Action < keys[j].Action
	})
	return keys
}

// Parse decodes the generic wire form of a block and builds it.
func (r *Registry) Parse(raw map[string]any) (Block, error) {
	t, err := DecodeTemplate(raw)
	if err != nil {
		return nil, err
	}
	return r.ParseTemplate(t)
}

// ParseTemplate builds a block from a decoded template.
func (r *Registry) ParseTemplate(t *Template) (Block, error) {
	if t == nil {
		return nil, malformed(Key{}, nil, "missing block")
	}
	key := t.Key()
	f, ok := r.factories[key]
	if !ok {
		if r.kinds[key.Kind] == 0 {
			return nil, malformed(key, t.Extra, "unknown block kind %q", key.Kind)
		}
		return nil, malformed(key, t.Extra, "kind %q has no action %q", key.Kind, key.Action)
	}
	return f(r, t)
}

// ParseSlot builds the single child held in a named slot.
func (r *Registry) ParseSlot(t *Template, name string) (Block, error) {
	slot, ok := t.Slots[name]
	if !ok {
		return nil, malformed(t.Key(), t.Extra, "missing required slot %q", name)
	}
	if slot.Shape != ShapeBlock {
		return nil, malformed(t.Key(), t.Extra, "slot %q must be a block, got %s", name, slot.Shape)
	}
	return r.ParseTemplate(slot.Block)
}

// ParseOptionalSlot is ParseSlot returning nil when the slot is absent.
func (r *Registry) ParseOptionalSlot(t *Template, name string) (Block, error) {
	if _, ok := t.Slots[name]; !ok {
		return nil, nil
	}
	return r.ParseSlot(t, name)
}

// ParseList builds the children held in a named list slot. An absent slot
// yields an empty aggregator.
func (r *Registry) ParseList(t *Template, name string) (*Aggregator, error) {
	slot, ok := t.Slots[name]
	if !ok {
		return NewAggregator(), nil
	}
	if slot.Shape != ShapeList {
		return nil, malformed(t.Key(), t.Extra, "slot %q must be a list, got %s", name, slot.Shape)
	}
	children := make([]Block, len(slot.List))
	for i, child := range slot.List {
		b, err := r.ParseTemplate(child)
		if err != nil {
			return nil, err
		}
		children[i] = b
	}
	return NewAggregator(children...), nil
}

// ParseStatements is ParseList for statement lists: it additionally checks
// that every elseif/else branch follows an if or elseif.
func (r *Registry) ParseStatements(t *Template, name string) (*Aggregator, error) {
	agg, err := r.ParseList(t, name)
	if err != nil {
		return nil, err
	}
	if err := ValidateChains(agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// Literal returns a literal slot. An empty list slot reads as an empty
// List literal.
func Literal(t *Template, name string) (Slot, bool, error) {
	slot, ok := t.Slots[name]
	if !ok {
		return Slot{}, false, nil
	}
	switch {
	case slot.Shape == ShapeLiteral:
		return slot, true, nil
	case slot.Shape == ShapeList && len(slot.List) == 0:
		return Slot{Shape: ShapeLiteral, Literal: emptyList}, true, nil
	}
	return Slot{}, false, malformed(t.Key(), t.Extra, "slot %q must be a literal, got %s", name, slot.Shape)
}
