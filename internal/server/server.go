// Package server exposes plans over HTTP. Each POST /plans/{name} request
// resolves the plan, opens a session for the caller and maps the outcome to
// a JSON response.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/executor"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/planstore"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Identity headers.
const (
	HeaderAccount     = "X-Account"
	HeaderBizUnit     = "X-Bizunit"
	HeaderTransaction = "X-Request-Id"
)

// DefaultMaxBodyBytes bounds request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Store planstore.Store
	// Session is the template every request's session options start from.
	// Identity and Request are filled in per request.
	Session      session.Options
	MaxBodyBytes int64
}

// Server is the plan API.
type Server struct {
	logger *slog.Logger
	store  planstore.Store
	base   session.Options
	limit  int64
}

// New creates a Server.
func New(logger *slog.Logger, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{logger: logger, store: opts.Store, base: opts.Session, limit: opts.MaxBodyBytes}
}

// Handler returns the HTTP handler serving the plan API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /plans/{name...}", s.handlePlan)
	mux.HandleFunc("GET /plans", s.handleList)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), s.logger)
	names, err := s.store.Names(ctx)
	if err != nil {
		s.logger.Error("Listing plans failed.", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Internal", err.Error()))
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": names})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := r.PathValue("name")
	logger := s.logger.With("plan", name, "account", r.Header.Get(HeaderAccount))
	ctx := ctxlog.WithLogger(r.Context(), logger)

	p, err := s.store.Load(ctx, name)
	if err != nil {
		if errors.Is(err, planstore.ErrNotFound) {
			logger.Debug("Plan not found.")
			writeJSON(w, http.StatusNotFound, errorBody("NotFound", err.Error()))
			return
		}
		s.writeFault(w, err, nil, s.base.Test)
		return
	}

	params, err := s.params(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(fault.InvalidArgument.String(), err.Error()))
		return
	}

	opts := s.base
	opts.Logger = logger
	opts.Identity = session.Identity{
		Account:     r.Header.Get(HeaderAccount),
		BizUnit:     r.Header.Get(HeaderBizUnit),
		Transaction: r.Header.Get(HeaderTransaction),
	}
	opts.Request = session.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Params:  params,
		Headers: firstValues(r.Header),
	}

	res, sess, err := executor.Run(ctx, p, opts)
	if err != nil {
		s.writeFault(w, err, sess, s.base.Test || p.Test())
		logger.Info("Plan request failed.", "status", fault.HTTPStatus(err), "duration", time.Since(start))
		return
	}

	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	writeJSON(w, res.Status, res.Body)
	logger.Info("Plan request served.", "status", res.Status, "duration", time.Since(start))
}

// params merges query parameters with the fields of a JSON object body.
// Body fields win. Repeated query parameters become lists.
func (s *Server) params(w http.ResponseWriter, r *http.Request) (map[string]value.Value, error) {
	out := map[string]value.Value{}
	for k, vs := range r.URL.Query() {
		if len(vs) == 1 {
			out[k] = value.String(vs[0])
			continue
		}
		items := make([]value.Value, len(vs))
		for i, v := range vs {
			items[i] = value.String(v)
		}
		out[k] = value.List(items...)
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.limit))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	for k, raw := range doc {
		v, err := value.FromNative(raw)
		if err != nil {
			return nil, fmt.Errorf("request body field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func (s *Server) writeFault(w http.ResponseWriter, err error, sess *session.Session, debug bool) {
	status := fault.HTTPStatus(err)
	f, ok := fault.As(err)
	if !ok {
		s.logger.Error("Unexpected error serving plan.", "error", err)
		writeJSON(w, status, errorBody("Internal", err.Error()))
		return
	}

	body := errorBody(f.Kind.String(), f.Message)
	if f.Kind == fault.AuthorizationInvalid {
		if m, ok := value.ToNative(f.Body).(map[string]any); ok {
			body = m
		}
	}
	if debug {
		messages := []string{}
		if sess != nil {
			messages = sess.Messages()
		}
		trace := f.Trace()
		extra := trace.Extra
		if extra == nil {
			extra = map[string]any{}
		}
		body["debug"] = map[string]any{
			"key":      trace.Key,
			"extra":    extra,
			"messages": messages,
		}
	}
	writeJSON(w, status, body)
}

func errorBody(kind, msg string) map[string]any {
	return map[string]any{"error": kind, "message": msg}
}

func firstValues(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
