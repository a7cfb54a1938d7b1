package testutil

import (
	"testing"

	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/stretchr/testify/require"
)

// RequireFault checks that err is a fault of the given kind raised by the
// block identified by (kind, action), and returns it.
func RequireFault(t *testing.T, err error, kind fault.Kind, blockKind, action string) *fault.Fault {
	t.Helper()

	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok, "expected a fault, got %T: %v", err, err)
	require.Equal(t, kind, f.Kind, "unexpected fault kind: %v", f)
	require.Equal(t, fault.Key{Kind: blockKind, Action: action}, f.Key, "unexpected exception key: %v", f)
	return f
}

// RequireBalanced checks that every scope frame pushed on s was popped.
func RequireBalanced(t *testing.T, s *scope.Stack) {
	t.Helper()

	require.True(t, s.Balanced(), "scope stack unbalanced: %d pushes, %d pops", s.Pushes(), s.Pops())
	require.Zero(t, s.Depth())
}
