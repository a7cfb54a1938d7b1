package block_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type joinModule struct{}

func (joinModule) Register(r *block.Registry) {
	r.RegisterFunc("text", "join", block.Shape{
		Blocks:           []string{"target"},
		Lists:            []string{"values"},
		OptionalLiterals: []string{"separator"},
	}, func(ctx *block.Context, n *block.Node) (value.Value, error) {
		target, err := n.String(ctx, "target")
		if err != nil {
			return value.Null(), err
		}
		values, err := n.Strings(ctx, "values")
		if err != nil {
			return value.Null(), err
		}
		sep, err := n.LiteralStringOr("separator", "")
		if err != nil {
			return value.Null(), err
		}
		return value.String(strings.Join(append([]string{target}, values...), sep)), nil
	})
}

func stub(v any) map[string]any {
	return map[string]any{"type": testutil.StubKind, "action": "value", "template": map[string]any{"value": v}}
}

func joinRaw(target map[string]any, values ...any) map[string]any {
	return map[string]any{
		"type":   "text",
		"action": "join",
		"extra":  map[string]any{"line": 7},
		"template": map[string]any{
			"target":    target,
			"values":    values,
			"separator": "-",
		},
	}
}

func newRegistry() *block.Registry {
	return block.NewRegistry(testutil.StubModule{}, joinModule{})
}

func TestTemplateRoundTrip(t *testing.T) {
	reg := newRegistry()
	raw := joinRaw(stub("a"), stub("b"), stub(map[string]any{"nested": []any{int64(1), true}}))

	b, err := reg.Parse(raw)
	require.NoError(t, err)

	first := b.Template().Raw()
	again, err := reg.Parse(first)
	require.NoError(t, err)

	if diff := cmp.Diff(first, again.Template().Raw()); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(t, map[string]any{"line": int64(7)}, first["extra"])
}

func TestRawAlwaysCarriesExtraAndTemplate(t *testing.T) {
	tmpl, err := block.DecodeTemplate(map[string]any{"type": "stub", "action": "value"})
	require.NoError(t, err)

	raw := tmpl.Raw()
	assert.Equal(t, map[string]any{}, raw["extra"])
	assert.Equal(t, map[string]any{}, raw["template"])
}

func TestParseErrors(t *testing.T) {
	reg := newRegistry()

	testCases := []struct {
		name    string
		raw     map[string]any
		message string
	}{
		{"missing type", map[string]any{"action": "x"}, "non-empty"},
		{"unknown kind", map[string]any{"type": "nope", "action": "x"}, `unknown block kind "nope"`},
		{"unknown action", map[string]any{"type": "text", "action": "split"}, `kind "text" has no action "split"`},
		{"unknown member", map[string]any{"type": "stub", "action": "value", "extras": 1}, `unknown member "extras"`},
		{"missing slot", map[string]any{"type": "text", "action": "join"}, `missing required slot "target"`},
		{"unknown slot", func() map[string]any {
			raw := joinRaw(stub("a"))
			raw["template"].(map[string]any)["color"] = "red"
			return raw
		}(), `unknown slot "color"`},
		{"literal where block expected", map[string]any{
			"type": "text", "action": "join", "template": map[string]any{"target": "a"},
		}, `slot "target" must be a block`},
		{"mixed list", joinRaw(stub("a"), stub("b"), "c"), "mixes blocks and literals"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Parse(tc.raw)
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.MalformedTemplate), "got %v", err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestTypeGuardRaisesInvalidArgument(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	reg := newRegistry()

	b, err := reg.Parse(joinRaw(stub(int64(123)), stub("b")))
	require.NoError(t, err)

	_, err = block.Eval(h.Block, b)
	f := testutil.RequireFault(t, err, fault.InvalidArgument, "text", "join")
	assert.Equal(t, "target must be String, got Integer", f.Message)
	assert.Equal(t, map[string]any{"line": int64(7)}, f.Extra)
}

func TestEvalWrapsForeignErrorOnce(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	boom := errors.New("disk on fire")
	inner := testutil.NewFailingStub(boom)

	outer := block.NewFunc(
		block.NewNode(block.Key{Kind: "text", Action: "join"}, nil, block.Shape{Blocks: []string{"target"}},
			map[string]block.Block{"target": inner}, nil, nil),
		func(ctx *block.Context, n *block.Node) (value.Value, error) {
			return n.Arg(ctx, "target")
		},
	)

	_, err := block.Eval(h.Block, outer)
	f := testutil.RequireFault(t, err, fault.Runtime, testutil.StubKind, "value")
	assert.ErrorIs(t, err, boom)
	_, nested := fault.As(f.Unwrap())
	assert.False(t, nested, "fault must not wrap another fault")

	assert.Equal(t, 1, strings.Count(h.Logs.String(), "Block raised an unexpected error."))
}

func TestEvalPassesTypedFaultThrough(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	raised := fault.New(fault.Storage, block.Key{Kind: "sql", Action: "query"}, map[string]any{"id": "q1"}, "locked")
	inner := testutil.NewFailingStub(raised)

	outer := block.NewFunc(
		block.NewNode(block.Key{Kind: "text", Action: "join"}, nil, block.Shape{Blocks: []string{"target"}},
			map[string]block.Block{"target": inner}, nil, nil),
		func(ctx *block.Context, n *block.Node) (value.Value, error) {
			return n.Arg(ctx, "target")
		},
	)

	_, err := block.Eval(h.Block, outer)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Same(t, raised, f)
	assert.NotContains(t, h.Logs.String(), "Block raised an unexpected error.")
}

func TestEvalRecoversPanic(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	b := block.NewFunc(
		block.NewNode(block.Key{Kind: "text", Action: "join"}, nil, block.Shape{}, nil, nil, nil),
		func(*block.Context, *block.Node) (value.Value, error) {
			var m map[string]int
			m["boom"]++
			return value.Null(), nil
		},
	)

	_, err := block.Eval(h.Block, b)
	f := testutil.RequireFault(t, err, fault.Runtime, "text", "join")
	assert.Contains(t, f.Message, "panic")
}

func TestEvalHonoursCancellation(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	ctx, cancel := context.WithCancel(h.Ctx)
	cancel()

	p := testutil.NewStub(value.Int(1))
	_, err := block.Eval(block.NewContext(ctx, h.Session), p)
	testutil.RequireFault(t, err, fault.Runtime, testutil.StubKind, "value")
	assert.Zero(t, p.Calls)
}

func TestEmptyListLiteral(t *testing.T) {
	tmpl, err := block.DecodeTemplate(map[string]any{
		"type": "stub", "action": "value", "template": map[string]any{"value": []any{}},
	})
	require.NoError(t, err)

	slot, ok, err := block.Literal(tmpl, "value")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.KindList, slot.Literal.Kind())
	assert.Zero(t, slot.Literal.Len())
}

func TestAggregatorIsOrderedAndNilSafe(t *testing.T) {
	a, b := testutil.NewStub(value.Int(1)), testutil.NewStub(value.Int(2))
	agg := block.NewAggregator(a, b, a)

	require.Equal(t, 3, agg.Len())
	assert.Same(t, a, agg.At(0))
	assert.Same(t, a, agg.At(2))

	var empty *block.Aggregator
	assert.Zero(t, empty.Len())
	assert.Empty(t, empty.Children())
	assert.Empty(t, empty.Templates())
}
