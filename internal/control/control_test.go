package control

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/expr"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(o expr.Op) block.Block { return NewOperator(o) }

func boolStub(b bool) *testutil.Stub { return testutil.NewStub(value.Bool(b)) }

func mustIf(t *testing.T, role block.Role, expression []block.Block, statements ...block.Block) *Conditional {
	t.Helper()
	c, err := NewConditional(role, expression, statements...)
	require.NoError(t, err)
	return c
}

func TestBranchSelection(t *testing.T) {
	testCases := []struct {
		name         string
		cond1, cond2 bool
		want         string
	}{
		{"first true", true, true, "A"},
		{"second true", false, true, "B"},
		{"none true", false, false, "C"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := testutil.NewHarness(t, session.Options{})
			a, b, c := testutil.NewStub(value.String("A")), testutil.NewStub(value.String("B")), testutil.NewStub(value.String("C"))
			cond2 := boolStub(tc.cond2)

			chain := block.NewAggregator(
				mustIf(t, block.RoleIf, []block.Block{boolStub(tc.cond1)}, a),
				mustIf(t, block.RoleElseif, []block.Block{cond2}, b),
				NewElse(c),
			)
			require.NoError(t, block.ValidateChains(chain))
			require.NoError(t, block.RunStatements(h.Block, chain))

			assert.Equal(t, 1, a.Calls+b.Calls+c.Calls, "exactly one branch body must run")
			assert.True(t, h.Block.Last().Equal(value.String(tc.want)))
			if tc.cond1 {
				assert.Zero(t, cond2.Calls, "later conditions are not evaluated once a branch is taken")
			}
			testutil.RequireBalanced(t, h.Session.Stack())
		})
	}
}

func TestShortCircuit(t *testing.T) {
	testCases := []struct {
		name  string
		first bool
		op    expr.Op
	}{
		{"false and", false, expr.OpAnd},
		{"true or", true, expr.OpOr},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := testutil.NewHarness(t, session.Options{})
			second := boolStub(true)
			c := mustIf(t, block.RoleIf, []block.Block{boolStub(tc.first), op(tc.op), second})

			taken, err := c.Test(h.Block)
			require.NoError(t, err)
			assert.Equal(t, tc.first, taken)
			assert.Zero(t, second.Calls)
		})
	}
}

func TestComparisonCondition(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	c := mustIf(t, block.RoleIf, []block.Block{
		testutil.NewStub(value.Int(10)), op(expr.OpGt), testutil.NewStub(value.Int(5)),
		op(expr.OpAnd),
		testutil.NewStub(value.Int(2)), op(expr.OpMul), testutil.NewStub(value.Int(3)), op(expr.OpEq), testutil.NewStub(value.Int(6)),
	})

	taken, err := c.Test(h.Block)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestNonBooleanConditionIsInvalidArgument(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	c := mustIf(t, block.RoleIf, []block.Block{testutil.NewStub(value.String("yes"))})

	_, err := block.Eval(h.Block, c)
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "if")
	testutil.RequireBalanced(t, h.Session.Stack())
}

func TestScopeBalanceOnFault(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	boom := testutil.NewFailingStub(errors.New("boom"))
	after := testutil.NewStub(value.Int(1))

	inner := mustIf(t, block.RoleIf, []block.Block{boolStub(true)}, boom, after)
	outer := mustIf(t, block.RoleIf, []block.Block{boolStub(true)}, inner)

	err := block.RunStatements(h.Block, block.NewAggregator(outer))
	testutil.RequireFault(t, err, fault.Runtime, testutil.StubKind, "value")
	assert.Zero(t, after.Calls)

	stack := h.Session.Stack()
	testutil.RequireBalanced(t, stack)
	assert.Equal(t, 2, stack.Pushes())
}

func TestConditionRunsInBranchFrame(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	depths := map[string]int{}
	depthOf := func(name string, result bool) *depthBlock {
		return &depthBlock{Stub: boolStub(result), name: name, seen: depths}
	}

	chain := block.NewAggregator(
		mustIf(t, block.RoleIf, []block.Block{depthOf("if", false)}),
		mustIf(t, block.RoleElseif, []block.Block{depthOf("elseif", true)}, depthOf("body", true)),
	)
	require.NoError(t, block.RunStatements(h.Block, chain))

	assert.Equal(t, map[string]int{"if": 1, "elseif": 1, "body": 1}, depths)
	stack := h.Session.Stack()
	testutil.RequireBalanced(t, stack)
	assert.Equal(t, 2, stack.Pushes(), "a branch not taken still pushes and pops its frame")
}

// depthBlock records the scope depth it is evaluated at.
type depthBlock struct {
	*testutil.Stub
	name string
	seen map[string]int
}

func (d *depthBlock) Evaluate(ctx *block.Context) (value.Value, error) {
	d.seen[d.name] = ctx.Scope().Depth()
	return d.Stub.Evaluate(ctx)
}

func TestScopeDepthLimit(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{MaxDepth: 1})

	inner := mustIf(t, block.RoleIf, []block.Block{boolStub(true)})
	outer := mustIf(t, block.RoleIf, []block.Block{boolStub(true)}, inner)

	_, err := block.Eval(h.Block, outer)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.LimitExceeded, f.Kind)
	testutil.RequireBalanced(t, h.Session.Stack())
}

func TestChoice(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	body := testutil.NewStub(value.String("picked"))

	c, err := NewChoice(
		mustIf(t, block.RoleIf, []block.Block{boolStub(false)}),
		mustIf(t, block.RoleElseif, []block.Block{boolStub(true)}, body),
	)
	require.NoError(t, err)

	v, err := block.Eval(h.Block, c)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Bool(true)))
	assert.Equal(t, 1, body.Calls)

	none, err := NewChoice(mustIf(t, block.RoleIf, []block.Block{boolStub(false)}))
	require.NoError(t, err)
	v, err = block.Eval(h.Block, none)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Bool(false)))
}

func raw(kind, action string, slots map[string]any) map[string]any {
	return map[string]any{"type": kind, "action": action, "template": slots}
}

func stubRaw(v any) map[string]any {
	return raw(testutil.StubKind, "value", map[string]any{"value": v})
}

func opRaw(action string) map[string]any {
	return raw(OperatorKind, action, nil)
}

func newRegistry() *block.Registry {
	return block.NewRegistry(&Module{}, testutil.StubModule{})
}

func TestParseRoundTrip(t *testing.T) {
	reg := newRegistry()
	src := raw(Kind, "choice", map[string]any{
		"branches": []any{
			raw(Kind, "if", map[string]any{
				"expression": []any{stubRaw(int64(1)), opRaw("lt"), stubRaw(int64(2))},
				"statements": []any{stubRaw("a")},
			}),
			raw(Kind, "else", map[string]any{
				"statements": []any{
					raw(Kind, "foreach", map[string]any{
						"items":      stubRaw([]any{"x", "y"}),
						"as":         "item",
						"statements": []any{},
					}),
				},
			}),
		},
	})

	b, err := reg.Parse(src)
	require.NoError(t, err)
	first := b.Template().Raw()

	again, err := reg.Parse(first)
	require.NoError(t, err)
	if diff := cmp.Diff(first, again.Template().Raw()); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	reg := newRegistry()

	testCases := []struct {
		name    string
		raw     map[string]any
		message string
	}{
		{"elseif without if", raw(Kind, "choice", map[string]any{
			"branches": []any{raw(Kind, "elseif", map[string]any{"expression": []any{stubRaw(true)}})},
		}), "elseif without a preceding if"},
		{"else after plain statement", raw(Kind, "if", map[string]any{
			"expression": []any{stubRaw(true)},
			"statements": []any{stubRaw(1), raw(Kind, "else", nil)},
		}), "else without a preceding if"},
		{"empty expression", raw(Kind, "if", map[string]any{}), "expression is empty"},
		{"trailing operator", raw(Kind, "if", map[string]any{
			"expression": []any{stubRaw(true), opRaw("and")},
		}), "must end with an operand"},
		{"unknown operator", raw(Kind, "if", map[string]any{
			"expression": []any{stubRaw(true), opRaw("xor"), stubRaw(true)},
		}), `kind "operator" has no action "xor"`},
		{"operator first", raw(Kind, "if", map[string]any{
			"expression": []any{opRaw("eq"), stubRaw(true)},
		}), "expected an operand"},
		{"two operands in a row", raw(Kind, "if", map[string]any{
			"expression": []any{stubRaw(true), stubRaw(false)},
		}), "expected an operator"},
		{"plain statement in choice", raw(Kind, "choice", map[string]any{
			"branches": []any{stubRaw(true)},
		}), "expected if, elseif or else"},
		{"operator with slots", opRaw2(), `unknown slot "x"`},
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

func opRaw2() map[string]any {
	return raw(OperatorKind, "eq", map[string]any{"x": 1})
}

func TestOperatorEvaluatesToToken(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	v, err := block.Eval(h.Block, NewOperator(expr.OpGe))
	require.NoError(t, err)
	assert.True(t, v.Equal(value.String("ge")))
}

func TestForeach(t *testing.T) {
	h := testutil.NewHarness(t, session.Options{})
	reg := block.NewRegistry(&Module{}, testutil.StubModule{}, &testutil.SimpleModule{
		Kind:   "stub",
		Action: "lookup",
		Factory: block.FuncFactory(block.Shape{Literals: []string{"name"}}, func(ctx *block.Context, n *block.Node) (value.Value, error) {
			name, err := n.LiteralString("name")
			if err != nil {
				return value.Null(), err
			}
			v, _ := ctx.Scope().Lookup(name)
			return v, nil
		}),
	})

	b, err := reg.Parse(raw(Kind, "foreach", map[string]any{
		"items": stubRaw([]any{"x", "y"}),
		"as":    "item",
		"statements": []any{
			raw("stub", "lookup", map[string]any{"name": "item"}),
			raw("stub", "lookup", map[string]any{"name": "item_index"}),
		},
	}))
	require.NoError(t, err)

	v, err := block.Eval(h.Block, b)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.List(value.Int(0), value.Int(1))), "got %s", v)
	testutil.RequireBalanced(t, h.Session.Stack())
	assert.Equal(t, 2, h.Session.Stack().Pushes())

	bad, err := reg.Parse(raw(Kind, "foreach", map[string]any{"items": stubRaw("x"), "as": "item"}))
	require.NoError(t, err)
	_, err = block.Eval(h.Block, bad)
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "foreach")
}
