// Package plan holds a parsed plan: its metadata and the root statement
// aggregator, plus the document codecs (JSON, YAML, CBOR) that produce it.
//
// The document form of a plan is
//
//	{name, environment, bizunit, version, statements: [block, ...]}
//
// where every statement is a block in its wire form.
package plan

import (
	"fmt"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
)

// Document member names.
const (
	FieldName        = "name"
	FieldEnvironment = "environment"
	FieldBizUnit     = "bizunit"
	FieldVersion     = "version"
	FieldStatements  = "statements"
)

// Key attributes faults raised while decoding a plan document.
var Key = fault.Key{Kind: "plan", Action: "document"}

// Meta describes a plan.
type Meta struct {
	Name        string
	Environment string
	BizUnit     string
	Version     string
}

// Plan is an immutable, parsed plan. It is safe to execute concurrently
// from many sessions.
type Plan struct {
	Meta Meta
	Root *block.Aggregator
}

// New builds a plan from already-parsed statements.
func New(meta Meta, statements ...block.Block) *Plan {
	return &Plan{Meta: meta, Root: block.NewAggregator(statements...)}
}

// Test reports whether the plan runs in the test environment.
func (p *Plan) Test() bool {
	return p.Meta.Environment == session.EnvironmentTest
}

func malformed(format string, args ...any) error {
	return fault.Newf(fault.MalformedTemplate, Key, nil, format, args...)
}

func stringMember(raw map[string]any, name string, required bool) (string, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		if required {
			return "", malformed("missing %q", name)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed("%q must be a string, got %T", name, v)
	}
	if required && s == "" {
		return "", malformed("%q must not be empty", name)
	}
	return s, nil
}

// Decode builds a plan from its generic document form. Every statement is
// parsed through reg; the first problem is returned as a MalformedTemplate
// fault.
func Decode(reg *block.Registry, raw map[string]any) (*Plan, error) {
	for name := range raw {
		switch name {
		case FieldName, FieldEnvironment, FieldBizUnit, FieldVersion, FieldStatements:
		default:
			return nil, malformed("unknown member %q", name)
		}
	}

	var (
		meta Meta
		err  error
	)
	if meta.Name, err = stringMember(raw, FieldName, true); err != nil {
		return nil, err
	}
	if meta.Environment, err = stringMember(raw, FieldEnvironment, false); err != nil {
		return nil, err
	}
	if meta.BizUnit, err = stringMember(raw, FieldBizUnit, false); err != nil {
		return nil, err
	}
	if meta.Version, err = stringMember(raw, FieldVersion, false); err != nil {
		return nil, err
	}

	items, ok := raw[FieldStatements].([]any)
	if !ok {
		return nil, malformed("%q must be a list of blocks, got %T", FieldStatements, raw[FieldStatements])
	}
	templates := make([]*block.Template, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, malformed("statements[%d] must be a block, got %T", i, item)
		}
		t, err := block.DecodeTemplate(m)
		if err != nil {
			return nil, err
		}
		templates[i] = t
	}

	root := block.NewTemplate(Key.Kind, Key.Action).WithList(FieldStatements, templates...)
	agg, err := reg.ParseStatements(root, FieldStatements)
	if err != nil {
		return nil, err
	}
	return &Plan{Meta: meta, Root: agg}, nil
}

// Raw returns the document form of p. Decode(reg, p.Raw()) yields an
// equivalent plan.
func (p *Plan) Raw() map[string]any {
	statements := make([]any, 0, p.Root.Len())
	for _, t := range p.Root.Templates() {
		statements = append(statements, t.Raw())
	}
	out := map[string]any{
		FieldName:       p.Meta.Name,
		FieldStatements: statements,
	}
	if p.Meta.Environment != "" {
		out[FieldEnvironment] = p.Meta.Environment
	}
	if p.Meta.BizUnit != "" {
		out[FieldBizUnit] = p.Meta.BizUnit
	}
	if p.Meta.Version != "" {
		out[FieldVersion] = p.Meta.Version
	}
	return out
}

func (p *Plan) String() string {
	return fmt.Sprintf("plan %q (%d statements)", p.Meta.Name, p.Root.Len())
}
