// Package executor runs a parsed plan inside an execution session.
package executor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/plan"
	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/value"
)

// RootKey attributes faults raised by the executor itself.
var RootKey = fault.Key{Kind: "plan", Action: "root"}

// Result is what a successful run hands back to the caller.
type Result struct {
	Status  int
	Headers map[string]string
	Body    value.Value
}

// Executor runs one plan in one session. It is single use: Execute closes
// the session.
type Executor struct {
	session *session.Session
	plan    *plan.Plan
}

// New creates an executor for p over s.
func New(s *session.Session, p *plan.Plan) *Executor {
	return &Executor{session: s, plan: p}
}

// Execute walks the plan's root statements. The root scope frame is popped
// and the session closed on every path, including faults and panics that
// escape a block's fault boundary.
//
// The result body is the value set by response/result when present,
// otherwise the value of the last plain statement, otherwise Null.
func (e *Executor) Execute(ctx context.Context) (res *Result, err error) {
	logger := e.session.Logger().With("plan", e.plan.Meta.Name)
	start := time.Now()

	defer func() {
		if cerr := e.session.Close(ctx); cerr != nil {
			logger.Warn("Failed to release session resources.", "error", cerr)
		}
	}()

	stack := e.session.Stack()
	if _, err := stack.Push(); err != nil {
		if errors.Is(err, scope.ErrOverflow) {
			return nil, fault.New(fault.LimitExceeded, RootKey, nil, err.Error(), fault.WithCause(err))
		}
		return nil, fault.Wrap(err, RootKey, nil)
	}
	defer func() {
		if perr := stack.Pop(); perr != nil && err == nil {
			res, err = nil, fault.Wrap(perr, RootKey, nil)
		}
	}()

	logger.Info("▶️ Executing plan.", "statements", e.plan.Root.Len())

	bctx := block.NewContext(ctx, e.session)
	if err := block.RunStatements(bctx, e.plan.Root); err != nil {
		logger.Error("Plan execution failed.", "error", err, "duration", time.Since(start))
		return nil, err
	}

	body, ok := bctx.Result()
	if !ok {
		body = bctx.Last()
	}
	status := e.session.Status()
	if status == 0 {
		status = http.StatusOK
	}

	logger.Info("✅ Plan finished.", "status", status, "duration", time.Since(start))
	return &Result{
		Status:  status,
		Headers: e.session.Headers(),
		Body:    body,
	}, nil
}

// Run opens a session for p and executes it. Plans in the test environment
// run in test mode. The session is returned, closed, whenever it was
// admitted so callers can read its message pool; it is nil when admission
// control rejected the run.
func Run(ctx context.Context, p *plan.Plan, opts session.Options) (*Result, *session.Session, error) {
	if p.Test() {
		opts.Test = true
	}
	if opts.Identity.BizUnit == "" {
		opts.Identity.BizUnit = p.Meta.BizUnit
	}
	if opts.Identity.Environment == "" {
		opts.Identity.Environment = p.Meta.Environment
	}

	s, err := session.New(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	res, err := New(s, p).Execute(ctx)
	return res, s, err
}
