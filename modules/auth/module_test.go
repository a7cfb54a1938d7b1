package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/specialistvlad/planrunner/modules/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h   *testutil.Harness
	reg *block.Registry
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{now: time.Unix(1709296245, 0)}
	f.reg = block.NewRegistry(&Module{Now: func() time.Time { return f.now }}, &primitive.Module{})
	f.h = testutil.NewHarness(t, session.Options{
		APIKeys:     map[string]string{"k-123": "acme"},
		TokenSecret: []byte("s3cret"),
	})
	return f
}

func (f *fixture) eval(t *testing.T, raw map[string]any) (value.Value, error) {
	t.Helper()
	b, err := f.reg.Parse(raw)
	require.NoError(t, err)
	return block.Eval(f.h.Block, b)
}

func TestSimpleKey(t *testing.T) {
	f := newFixture(t)

	v, err := f.eval(t, testutil.Raw(Kind, "simple-key", map[string]any{"key": testutil.Str("k-123")}))
	require.NoError(t, err)
	assert.True(t, v.Equal(value.String("acme")))
	assert.Equal(t, "acme", f.h.Session.Principal())

	_, err = f.eval(t, testutil.Raw(Kind, "simple-key", map[string]any{"key": testutil.Str("nope")}))
	flt := testutil.RequireFault(t, err, fault.AuthorizationInvalid, Kind, "simple-key")
	assert.Equal(t, http.StatusUnauthorized, flt.Status)
	msg, _ := flt.Body.Get("message")
	assert.True(t, msg.Equal(value.String("invalid api key")))
	assert.Equal(t, http.StatusUnauthorized, fault.HTTPStatus(err))
}

func TestTokenLifecycle(t *testing.T) {
	f := newFixture(t)

	tok, err := f.eval(t, testutil.Raw(Kind, "token-issue", map[string]any{
		"subject": testutil.Str("user-7"),
		"ttl":     testutil.Int(60),
	}))
	require.NoError(t, err)
	token, ok := tok.AsString()
	require.True(t, ok)

	verify := testutil.Raw(Kind, "token-verify", map[string]any{"token": testutil.Str(token)})
	v, err := f.eval(t, verify)
	require.NoError(t, err)
	sub, _ := v.Get("subject")
	assert.True(t, sub.Equal(value.String("user-7")))
	exp, _ := v.Get("expires_at")
	assert.True(t, exp.Equal(value.Int(1709296245+60)))
	assert.Equal(t, "user-7", f.h.Session.Principal())

	f.now = f.now.Add(61 * time.Second)
	_, err = f.eval(t, verify)
	flt := testutil.RequireFault(t, err, fault.AuthorizationInvalid, Kind, "token-verify")
	assert.Equal(t, "token expired", flt.Message)
}

func TestTamperedToken(t *testing.T) {
	f := newFixture(t)

	tok, err := f.eval(t, testutil.Raw(Kind, "token-issue", map[string]any{"subject": testutil.Str("user-7")}))
	require.NoError(t, err)
	token, _ := tok.AsString()

	for _, bad := range []string{token + "x", "e30." + token[len(token)-10:], "garbage", ""} {
		_, err := f.eval(t, testutil.Raw(Kind, "token-verify", map[string]any{"token": testutil.Str(bad)}))
		testutil.RequireFault(t, err, fault.AuthorizationInvalid, Kind, "token-verify")
	}
}

func TestTokenRejectsOtherSigningMethods(t *testing.T) {
	f := newFixture(t)
	claims := jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(f.now.Add(time.Minute)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-7"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for _, bad := range []string{hs512, unsigned, noExpiry} {
		_, err := f.eval(t, testutil.Raw(Kind, "token-verify", map[string]any{"token": testutil.Str(bad)}))
		flt := testutil.RequireFault(t, err, fault.AuthorizationInvalid, Kind, "token-verify")
		assert.Equal(t, "invalid token", flt.Message)
	}
	assert.Empty(t, f.h.Session.Principal())
}

func TestTokenWithoutSecret(t *testing.T) {
	reg := block.NewRegistry(&Module{}, &primitive.Module{})
	h := testutil.NewHarness(t, session.Options{})
	b, err := reg.Parse(testutil.Raw(Kind, "token-issue", map[string]any{"subject": testutil.Str("u")}))
	require.NoError(t, err)
	_, err = block.Eval(h.Block, b)
	testutil.RequireFault(t, err, fault.Runtime, Kind, "token-issue")
}
