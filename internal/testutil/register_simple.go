package testutil

import (
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// StubKind is the block kind registered by StubModule.
const StubKind = "stub"

// Stub is a leaf block that counts its evaluations and returns a fixed
// value or error. It lets tests observe which operands were evaluated.
type Stub struct {
	block.Base
	Value value.Value
	Err   error
	Calls int
}

// NewStub returns a stub yielding v.
func NewStub(v value.Value) *Stub {
	return &Stub{Base: block.NewBase(block.Key{Kind: StubKind, Action: "value"}, nil), Value: v}
}

// NewFailingStub returns a stub failing with err.
func NewFailingStub(err error) *Stub {
	p := NewStub(value.Null())
	p.Err = err
	return p
}

// Evaluate implements block.Block.
func (p *Stub) Evaluate(*block.Context) (value.Value, error) {
	p.Calls++
	if p.Err != nil {
		return value.Null(), p.Err
	}
	return p.Value, nil
}

// Template implements block.Block.
func (p *Stub) Template() *block.Template {
	return p.NewTemplate().WithLiteral("value", p.Value)
}

// SimpleModule registers a single factory. It is useful to inject ad-hoc
// block kinds into a registry.
type SimpleModule struct {
	Kind    string
	Action  string
	Factory block.Factory
}

// Register implements the block.Module interface.
func (m *SimpleModule) Register(r *block.Registry) {
	r.Register(m.Kind, m.Action, m.Factory)
}

// StubModule registers stub/value, parsing its "value" literal.
type StubModule struct{}

// Register implements the block.Module interface.
func (StubModule) Register(r *block.Registry) {
	r.Register(StubKind, "value", func(_ *block.Registry, t *block.Template) (block.Block, error) {
		p := NewStub(value.Null())
		p.Base = block.NewBase(t.Key(), t.Extra)
		if slot, ok, err := block.Literal(t, "value"); err != nil {
			return nil, err
		} else if ok {
			p.Value = slot.Literal
		}
		return p, nil
	})
}
