package variable

import (
	"testing"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/specialistvlad/planrunner/modules/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	reg := block.NewRegistry(&Module{}, &primitive.Module{})
	h := testutil.NewHarness(t, session.Options{
		Request: session.Request{Params: map[string]value.Value{"x": value.Int(3)}},
	})

	_, err := h.Session.Stack().Push()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, h.Session.Stack().Pop()) })

	setB, err := reg.Parse(testutil.Raw(Kind, "set", map[string]any{"name": "greeting", "value": testutil.Str("hi")}))
	require.NoError(t, err)
	v, err := block.Eval(h.Block, setB)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.String("hi")))

	getB, err := reg.Parse(testutil.Raw(Kind, "get", map[string]any{"name": "greeting"}))
	require.NoError(t, err)
	v, err = block.Eval(h.Block, getB)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.String("hi")))

	paramB, err := reg.Parse(testutil.Raw(Kind, "get", map[string]any{"name": "x"}))
	require.NoError(t, err)
	v, err = block.Eval(h.Block, paramB)
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Int(3)))

	missing, err := reg.Parse(testutil.Raw(Kind, "get", map[string]any{"name": "nope"}))
	require.NoError(t, err)
	_, err = block.Eval(h.Block, missing)
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "get")
}

func TestSetWithoutFrameIsRuntimeFault(t *testing.T) {
	reg := block.NewRegistry(&Module{}, &primitive.Module{})
	h := testutil.NewHarness(t, session.Options{})

	b, err := reg.Parse(testutil.Raw(Kind, "set", map[string]any{"name": "x", "value": testutil.Int(1)}))
	require.NoError(t, err)
	_, err = block.Eval(h.Block, b)
	testutil.RequireFault(t, err, fault.Runtime, Kind, "set")
}
