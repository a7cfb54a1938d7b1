package crypto

import (
	"testing"

	"github.com/google/uuid"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/specialistvlad/planrunner/modules/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func eval(t *testing.T, action string, slots map[string]any) (value.Value, error) {
	t.Helper()
	reg := block.NewRegistry(&Module{}, &primitive.Module{})
	h := testutil.NewHarness(t, session.Options{})

	b, err := reg.Parse(testutil.Raw(Kind, action, slots))
	require.NoError(t, err)
	return block.Eval(h.Block, b)
}

func str(t *testing.T, v value.Value, err error) string {
	t.Helper()
	require.NoError(t, err)
	s, ok := v.AsString()
	require.True(t, ok, "want String, got %s", v.Kind())
	return s
}

func TestHash(t *testing.T) {
	testCases := []struct {
		algorithm string
		want      string
	}{
		{"md5", "900150983cd24fb0d6963f7d28e17f72"},
		{"sha1", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"sha256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"SHA3-256", "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532"},
		{"blake2b-256", "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319"},
	}

	for _, tc := range testCases {
		t.Run(tc.algorithm, func(t *testing.T) {
			v, err := eval(t, "hash", map[string]any{"algorithm": testutil.Str(tc.algorithm), "target": testutil.Str("abc")})
			assert.Equal(t, tc.want, str(t, v, err))
		})
	}

	_, err := eval(t, "hash", map[string]any{"algorithm": testutil.Str("crc32"), "target": testutil.Str("abc")})
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "hash")
}

func TestHMAC(t *testing.T) {
	v, err := eval(t, "hmac", map[string]any{
		"algorithm": testutil.Str("sha256"),
		"key":       testutil.Str("key"),
		"target":    testutil.Str("The quick brown fox jumps over the lazy dog"),
	})
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", str(t, v, err))
}

func TestEncodings(t *testing.T) {
	v, err := eval(t, "base64-encode", map[string]any{"target": testutil.Str("hello")})
	assert.Equal(t, "aGVsbG8=", str(t, v, err))

	v, err = eval(t, "base64-decode", map[string]any{"target": testutil.Str("aGVsbG8=")})
	assert.Equal(t, "hello", str(t, v, err))

	_, err = eval(t, "base64-decode", map[string]any{"target": testutil.Str("%%%")})
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "base64-decode")

	v, err = eval(t, "hex-encode", map[string]any{"target": testutil.Str("hi")})
	assert.Equal(t, "6869", str(t, v, err))
}

func TestBcrypt(t *testing.T) {
	v, err := eval(t, "bcrypt-hash", map[string]any{"target": testutil.Str("s3cret"), "cost": testutil.Int(4)})
	hashed := str(t, v, err)

	v, err = eval(t, "bcrypt-verify", map[string]any{"hash": testutil.Str(hashed), "target": testutil.Str("s3cret")})
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Bool(true)))

	v, err = eval(t, "bcrypt-verify", map[string]any{"hash": testutil.Str(hashed), "target": testutil.Str("guess")})
	require.NoError(t, err)
	assert.True(t, v.Equal(value.Bool(false)))

	_, err = eval(t, "bcrypt-hash", map[string]any{"target": testutil.Str("x"), "cost": testutil.Int(99)})
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "bcrypt-hash")

	v, err = eval(t, "bcrypt-hash", map[string]any{"target": testutil.Str("x")})
	cost, cerr := bcrypt.Cost([]byte(str(t, v, err)))
	require.NoError(t, cerr)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestUUIDAndRandom(t *testing.T) {
	v, err := eval(t, "uuid", nil)
	_, perr := uuid.Parse(str(t, v, err))
	assert.NoError(t, perr)

	v, err = eval(t, "random", map[string]any{"bytes": testutil.Int(16)})
	assert.Len(t, str(t, v, err), 32)

	_, err = eval(t, "random", map[string]any{"bytes": testutil.Int(0)})
	testutil.RequireFault(t, err, fault.InvalidArgument, Kind, "random")
}
