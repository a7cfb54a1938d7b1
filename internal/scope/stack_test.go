package scope

import (
	"testing"

	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBalance(t *testing.T) {
	s := New(0)
	_, err := s.Push()
	require.NoError(t, err)
	_, err = s.Push()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Depth())
	assert.False(t, s.Balanced())

	require.NoError(t, s.Pop())
	require.NoError(t, s.Pop())
	assert.True(t, s.Balanced())
	assert.Equal(t, 2, s.Pushes())
	assert.Equal(t, 2, s.Pops())

	assert.ErrorIs(t, s.Pop(), ErrUnderflow)
	assert.Equal(t, 2, s.Pops())
}

func TestOverflow(t *testing.T) {
	s := New(1)
	_, err := s.Push()
	require.NoError(t, err)
	_, err = s.Push()
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 1, s.Pushes())
}

func TestLookupShadowing(t *testing.T) {
	s := New(0)
	outer, _ := s.Push()
	outer.Set("x", value.Int(1))
	inner, _ := s.Push()
	inner.Set("x", value.Int(2))

	v, ok := s.Lookup("x")
	require.True(t, ok)
	assert.True(t, v.Equal(value.Int(2)))

	require.NoError(t, s.Pop())
	v, ok = s.Lookup("x")
	require.True(t, ok)
	assert.True(t, v.Equal(value.Int(1)))
}

func TestAssignUpdatesDeclaringFrame(t *testing.T) {
	s := New(0)
	outer, _ := s.Push()
	outer.Set("total", value.Int(0))
	_, _ = s.Push()

	require.NoError(t, s.Assign("total", value.Int(5)))
	require.NoError(t, s.Assign("local", value.String("tmp")))
	require.NoError(t, s.Pop())

	v, _ := s.Lookup("total")
	assert.True(t, v.Equal(value.Int(5)))
	_, ok := s.Lookup("local")
	assert.False(t, ok)
}

func TestAssignWithoutFrame(t *testing.T) {
	s := New(0)
	assert.Error(t, s.Assign("x", value.Null()))
}
