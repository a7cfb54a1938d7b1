// Package session implements the per-request execution session. A Session
// aggregates the caller's identity, the request being served, the scope
// stack, a message-pool logger and lazily-acquired external resources. It is
// created once per plan invocation, after admission control, and closed when
// the invocation ends.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/msgpool"
	"github.com/specialistvlad/planrunner/internal/quota"
	"github.com/specialistvlad/planrunner/internal/resource"
	"github.com/specialistvlad/planrunner/internal/scope"
	"github.com/specialistvlad/planrunner/internal/value"
	"resty.dev/v3"
)

// EnvironmentTest marks plans and identities that run in test mode.
const EnvironmentTest = "test"

// ResourceKey is the exception key of faults raised while acquiring
// session resources.
var ResourceKey = fault.Key{Kind: "session", Action: "resource"}

// Identity describes who is executing.
type Identity struct {
	Account     string
	Transaction string
	BizUnit     string
	Environment string
}

// Request is the inbound request state a plan can read.
type Request struct {
	Method  string
	Path    string
	Params  map[string]value.Value
	Headers map[string]string
}

// Options configures a new Session.
type Options struct {
	Identity Identity
	Request  Request

	// Quota decides admission; nil admits everything.
	Quota quota.Controller
	// Resources provides the shared SQL pool and HTTP client; may be nil.
	Resources *resource.Pool

	// Variables are configuration values exposed to plans.
	Variables map[string]value.Value
	// APIKeys are the keys accepted by simple-key authentication, mapped
	// to the account they belong to.
	APIKeys map[string]string
	// TokenSecret signs and verifies session tokens.
	TokenSecret []byte

	// Test forces test mode regardless of the identity's environment.
	Test bool

	// Logger is the base logger; defaults to the one on the context.
	Logger       *slog.Logger
	PoolCapacity int
	MaxDepth     int
}

// Session is the per-request aggregate. It is used by one goroutine at a
// time.
type Session struct {
	identity Identity
	request  Request
	test     bool

	logger *slog.Logger
	pool   *msgpool.Pool
	stack  *scope.Stack

	quota     quota.Controller
	usage     quota.Usage
	resources *resource.Pool

	variables   map[string]value.Value
	apiKeys     map[string]string
	tokenSecret []byte
	principal   string

	status  int
	headers map[string]string

	conn      *sql.Conn
	ownREST   *resty.Client
	closeOnce sync.Once
	closeErr  error
}

// New builds a session and runs admission control. When the account is over
// quota New returns a QuotaExceeded fault and no session. Admission records
// the execution against the account unless the session runs in test mode or
// the account's tier bypasses the limit.
func New(ctx context.Context, opts Options) (*Session, error) {
	base := opts.Logger
	if base == nil {
		base = ctxlog.FromContext(ctx)
	}

	id := opts.Identity
	if id.Transaction == "" {
		id.Transaction = uuid.NewString()
	}

	pool := msgpool.New(opts.PoolCapacity)
	logger := slog.New(msgpool.NewHandler(base.Handler(), pool, slog.LevelDebug)).With(
		"account", id.Account,
		"transaction", id.Transaction,
	)

	s := &Session{
		identity:    id,
		request:     cloneRequest(opts.Request),
		test:        opts.Test || id.Environment == EnvironmentTest,
		logger:      logger,
		pool:        pool,
		stack:       scope.New(opts.MaxDepth),
		quota:       opts.Quota,
		resources:   opts.Resources,
		variables:   maps.Clone(opts.Variables),
		apiKeys:     maps.Clone(opts.APIKeys),
		tokenSecret: opts.TokenSecret,
		headers:     map[string]string{},
	}

	if s.quota != nil {
		usage, err := quota.Admit(ctx, s.quota, id.Account, s.test)
		if err != nil {
			logger.Warn("Session rejected by admission control.", "error", err)
			return nil, err
		}
		s.usage = usage
	}

	logger.Debug("Session opened.", "bizunit", id.BizUnit, "environment", id.Environment)
	return s, nil
}

func cloneRequest(r Request) Request {
	out := Request{Method: r.Method, Path: r.Path, Params: maps.Clone(r.Params), Headers: map[string]string{}}
	if out.Params == nil {
		out.Params = map[string]value.Value{}
	}
	for k, v := range r.Headers {
		out.Headers[http.CanonicalHeaderKey(k)] = v
	}
	return out
}

// Identity returns the caller identity.
func (s *Session) Identity() Identity { return s.identity }

// Request returns the inbound request.
func (s *Session) Request() Request { return s.request }

// Test reports whether the session runs in test mode. Test sessions bypass
// quota and return debug payloads.
func (s *Session) Test() bool { return s.test }

// Usage returns the quota usage observed at admission.
func (s *Session) Usage() quota.Usage { return s.usage }

// Logger returns the session logger; everything logged through it is also
// kept in the message pool.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Messages returns the message pool rendered as lines.
func (s *Session) Messages() []string { return s.pool.Messages() }

// Stack returns the scope stack.
func (s *Session) Stack() *scope.Stack { return s.stack }

// Param returns a request parameter.
func (s *Session) Param(name string) (value.Value, bool) {
	v, ok := s.request.Params[name]
	return v, ok
}

// Header returns a request header; lookup is case-insensitive.
func (s *Session) Header(name string) (string, bool) {
	v, ok := s.request.Headers[http.CanonicalHeaderKey(name)]
	return v, ok
}

// Variable returns a configuration variable.
func (s *Session) Variable(name string) (value.Value, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// Variables returns a copy of every configuration variable.
func (s *Session) Variables() map[string]value.Value { return maps.Clone(s.variables) }

// APIKeyAccount returns the account owning key.
func (s *Session) APIKeyAccount(key string) (string, bool) {
	acc, ok := s.apiKeys[key]
	return acc, ok
}

// TokenSecret returns the key used to sign session tokens.
func (s *Session) TokenSecret() []byte { return s.tokenSecret }

// SetPrincipal records the authenticated subject.
func (s *Session) SetPrincipal(subject string) { s.principal = subject }

// Principal returns the authenticated subject, if any.
func (s *Session) Principal() string { return s.principal }

// SetStatus sets the response status code.
func (s *Session) SetStatus(code int) { s.status = code }

// Status returns the response status, zero when unset.
func (s *Session) Status() int { return s.status }

// SetHeader sets a response header.
func (s *Session) SetHeader(name, v string) {
	s.headers[http.CanonicalHeaderKey(name)] = v
}

// Headers returns a copy of the response headers.
func (s *Session) Headers() map[string]string { return maps.Clone(s.headers) }

// SQL returns the session's database connection, taking it from the shared
// pool on first use. The connection is returned to the pool by Close.
func (s *Session) SQL(ctx context.Context) (*sql.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	if s.resources == nil {
		return nil, fault.New(fault.Storage, ResourceKey, nil, "no database available to this session")
	}
	db, err := s.resources.DB(ctx)
	if err != nil {
		return nil, fault.WrapAs(fault.Storage, err, ResourceKey, nil)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fault.WrapAs(fault.Storage, fmt.Errorf("acquiring connection: %w", err), ResourceKey, nil)
	}
	s.conn = conn
	return conn, nil
}

// HTTPClient returns the client used for outbound calls.
func (s *Session) HTTPClient() *http.Client {
	if s.resources == nil {
		return http.DefaultClient
	}
	return s.resources.HTTPClient()
}

// REST returns the REST client used by outbound-call blocks. Sessions
// without a resource pool get a private client released by Close.
func (s *Session) REST() *resty.Client {
	if s.resources != nil {
		return s.resources.REST()
	}
	if s.ownREST == nil {
		s.ownREST = resty.NewWithClient(http.DefaultClient)
	}
	return s.ownREST
}

// Close releases every resource the session acquired. It is safe to call
// more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.closeErr = s.conn.Close()
			s.conn = nil
		}
		if s.ownREST != nil {
			s.ownREST.Close()
			s.ownREST = nil
		}
		s.logger.Debug("Session closed.",
			"scope_pushes", s.stack.Pushes(),
			"scope_pops", s.stack.Pops(),
		)
	})
	return s.closeErr
}
