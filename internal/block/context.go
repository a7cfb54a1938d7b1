package block

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Context is the mutable state threaded through one tree walk. It is
// created at the start of a plan run, owned by that run only, and
// discarded at its end.
type Context struct {
	ctx     context.Context
	session *session.Session

	last      value.Value
	result    value.Value
	hasResult bool
}

// NewContext starts the execution context for one run.
func NewContext(ctx context.Context, s *session.Session) *Context {
	return &Context{ctx: ctx, session: s}
}

// Context returns the request context; capability blocks pass it to their
// I/O calls so caller deadlines are honoured.
func (c *Context) Context() context.Context { return c.ctx }

// Session returns the execution session.
func (c *Context) Session() *session.Session { return c.session }

// Logger returns the session logger.
func (c *Context) Logger() *slog.Logger { return c.session.Logger() }

// Scope returns the session's scope stack.
func (c *Context) Scope() *scope.Stack { return c.session.Stack() }

// SetLast records the value of the most recent plain statement.
func (c *Context) SetLast(v value.Value) { c.last = v }

// Last returns the value of the most recent plain statement.
func (c *Context) Last() value.Value { return c.last }

// SetResult records an explicit plan result.
func (c *Context) SetResult(v value.Value) {
	c.result = v
	c.hasResult = true
}

// Result returns the explicit result, if one was set.
func (c *Context) Result() (value.Value, bool) { return c.result, c.hasResult }
