package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/control"
	"github.com/specialistvlad/planrunner/internal/plan"
	"github.com/specialistvlad/planrunner/internal/planstore"
	"github.com/specialistvlad/planrunner/internal/quota"
	"github.com/specialistvlad/planrunner/internal/server"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/modules/auth"
	"github.com/specialistvlad/planrunner/modules/primitive"
	"github.com/specialistvlad/planrunner/modules/request"
	"github.com/specialistvlad/planrunner/modules/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]*plan.Plan

func (m mapStore) Load(_ context.Context, name string) (*plan.Plan, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%q: %w", name, planstore.ErrNotFound)
}

func (m mapStore) Names(context.Context) ([]string, error) {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out, nil
}

func newStore(t *testing.T) mapStore {
	t.Helper()
	reg := block.NewRegistry(&control.Module{}, &primitive.Module{}, &request.Module{}, &response.Module{}, &auth.Module{})
	decode := func(doc map[string]any) *plan.Plan {
		p, err := plan.Decode(reg, doc)
		require.NoError(t, err)
		return p
	}
	return mapStore{
		"classify": decode(map[string]any{
			"name": "classify",
			"statements": []any{
				testutil.If([]any{testutil.Param("x"), testutil.Op("gt"), testutil.Int(5)},
					testutil.Raw("response", "result", map[string]any{"value": testutil.Str("big")})),
				testutil.Else(
					testutil.Raw("response", "status", map[string]any{"code": testutil.Int(202)}),
					testutil.Raw("response", "header", map[string]any{"name": testutil.Str("X-Plan"), "value": testutil.Str("classify")}),
					testutil.Raw("response", "result", map[string]any{"value": testutil.Str("small")}),
				),
			},
		}),
		"secure/echo": decode(map[string]any{
			"name": "secure/echo",
			"statements": []any{
				testutil.Raw("auth", "simple-key", map[string]any{
					"key": testutil.Raw("request", "header", map[string]any{"name": "X-Api-Key", "default": testutil.Str("")}),
				}),
				testutil.Param("msg"),
			},
		}),
	}
}

func newServer(t *testing.T, base session.Options) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&testutil.SafeBuffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	srv := server.New(logger, server.Options{Store: newStore(t), Session: base})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	if m, ok := out.(map[string]any); ok {
		return resp, m
	}
	return resp, map[string]any{"value": out}
}

func TestPlanSuccess(t *testing.T) {
	ts := newServer(t, session.Options{})

	resp, body := post(t, ts, "/plans/classify", `{"x": 10}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "big", body["value"])

	resp, body = post(t, ts, "/plans/classify", `{"x": 1}`, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "classify", resp.Header.Get("X-Plan"))
	assert.Equal(t, "small", body["value"])
}

func TestPlanNotFound(t *testing.T) {
	ts := newServer(t, session.Options{})
	resp, body := post(t, ts, "/plans/missing", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", body["error"])
}

func TestBadBody(t *testing.T) {
	ts := newServer(t, session.Options{})
	resp, body := post(t, ts, "/plans/classify", `[1, 2]`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidArgument", body["error"])
}

func TestQueryParams(t *testing.T) {
	ts := newServer(t, session.Options{APIKeys: map[string]string{"k1": "acme"}})
	resp, body := post(t, ts, "/plans/secure/echo?msg=hello", ``, map[string]string{"X-Api-Key": "k1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", body["value"])
}

func TestAuthFaultBody(t *testing.T) {
	ts := newServer(t, session.Options{APIKeys: map[string]string{"k1": "acme"}})
	resp, body := post(t, ts, "/plans/secure/echo", `{"msg": "hi"}`, map[string]string{"X-Api-Key": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "unauthorized", "message": "invalid api key"}, body)
}

func TestDebugPayloadInTestMode(t *testing.T) {
	ts := newServer(t, session.Options{Test: true})
	resp, body := post(t, ts, "/plans/secure/echo", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	debug, ok := body["debug"].(map[string]any)
	require.True(t, ok, "debug block expected, got %v", body)
	assert.Equal(t, map[string]any{"type": "auth", "action": "simple-key"}, debug["key"])
	messages, ok := debug["messages"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, messages)
}

func TestQuotaExceeded(t *testing.T) {
	q := quota.NewMemory(1)
	ts := newServer(t, session.Options{Quota: q})
	headers := map[string]string{server.HeaderAccount: "acme"}

	resp, _ := post(t, ts, "/plans/classify", `{"x": 10}`, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, ts, "/plans/classify", `{"x": 10}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "QuotaExceeded", body["error"])
	assert.NotContains(t, body, "debug")
}

func TestListPlans(t *testing.T) {
	ts := newServer(t, session.Options{})
	resp, err := ts.Client().Get(ts.URL + "/plans")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct{ Plans []string }
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.ElementsMatch(t, []string{"classify", "secure/echo"}, out.Plans)
}
